package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append(opts, WithHTTPClient(srv.Client()))
	return NewClient("test-key", srv.URL, "proj-1", opts...)
}

func TestSessionsCursorPagination(t *testing.T) {
	var paths []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		if r.URL.Query().Get("cursor") == "abc" {
			fmt.Fprint(w, `{"results": [{"id": "s3"}], "next": null}`)
			return
		}
		fmt.Fprintf(w, `{"results": [{"id": "s1"}, {"id": "s2"}], "next": "%s?cursor=abc"}`, "http://ignored.example.com/api/projects/proj-1/sessions/")
	})
	c := newTestClient(t, handler)

	var got [][]byte
	err := c.Sessions(context.Background(), 0, func(page [][]byte) error {
		got = append(got, page...)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.JSONEq(t, `{"id": "s1"}`, string(got[0]))
	assert.JSONEq(t, `{"id": "s3"}`, string(got[2]))
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "/api/projects/proj-1/sessions/")
	assert.Contains(t, paths[1], "cursor=abc")
}

func TestSessionsBareArrayPagination(t *testing.T) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": "s3"}]`) // short page ends pagination
			return
		}
		fmt.Fprint(w, `[{"id": "s1"}, {"id": "s2"}]`)
	})
	c := newTestClient(t, handler, WithPageSize(2))

	var got [][]byte
	err := c.Sessions(context.Background(), 0, func(page [][]byte) error {
		got = append(got, page...)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, requests)
}

func TestSessionsMaxPages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [{"id": "s"}], "next": "http://x.example.com/?cursor=more"}`)
	})
	c := newTestClient(t, handler)

	pages := 0
	err := c.Sessions(context.Background(), 2, func(page [][]byte) error {
		pages++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestRateLimitRetry(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results": [], "next": null}`)
	})

	var slept []time.Duration
	c := newTestClient(t, handler, WithSleep(func(d time.Duration) { slept = append(slept, d) }))

	err := c.Sessions(context.Background(), 0, func([][]byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestRateLimitGivesUp(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, handler, WithSleep(func(time.Duration) {}))

	err := c.Sessions(context.Background(), 0, func([][]byte) error { return nil })
	require.Error(t, err)

	var cerr *ClientError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusTooManyRequests, cerr.StatusCode)
}

func TestServerErrorSurfaced(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(t, handler)

	err := c.Sessions(context.Background(), 0, func([][]byte) error { return nil })
	var cerr *ClientError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
}

func TestSessionMessages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/sessions/sess-1/messages/")
		fmt.Fprint(w, `{"results": [{"role": "user", "content": "hi"}], "next": null}`)
	})
	c := newTestClient(t, handler)

	msgs, err := c.SessionMessages(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"role": "user", "content": "hi"}`, string(msgs[0]))
}

func TestExperiments(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/experiments/")
		fmt.Fprint(w, `{"results": [{"id": "exp-1"}, {"id": "exp-2"}], "next": null}`)
	})
	c := newTestClient(t, handler)

	exps, err := c.Experiments(context.Background())
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.JSONEq(t, `{"id": "exp-1"}`, string(exps[0]))
}

func TestContextCancellation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [], "next": null}`)
	})
	c := newTestClient(t, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Sessions(ctx, 0, func([][]byte) error { return nil })
	require.Error(t, err)
}
