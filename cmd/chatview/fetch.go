package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ecdlabs/chatview/internal/config"
	"github.com/ecdlabs/chatview/internal/fetch"
	"github.com/ecdlabs/chatview/internal/snapshot"
)

func runFetch(args []string) {
	fs := flag.NewFlagSet("chatview fetch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chatview fetch [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterFetchFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.RequireCredentials(); err != nil {
		log.Fatalf("fetch: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := fetch.NewClient(cfg.APIKey, cfg.BaseURL, cfg.ProjectID,
		fetch.WithPageSize(cfg.PageSize),
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	)
	store := snapshot.NewStore(cfg.DataDir)

	dir, err := store.Create(time.Now())
	if err != nil {
		log.Fatalf("creating snapshot: %v", err)
	}
	fmt.Printf("Fetching project %s into %s\n", cfg.ProjectID, dir.Path())

	sessions, bundles, err := downloadSnapshot(ctx, client, dir, cfg.MaxPages)
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}

	if err := dir.WriteSummary(snapshot.Summary{
		FetchedAt: time.Now().UTC(),
		BaseURL:   cfg.BaseURL,
		Sessions:  sessions,
		Bundles:   bundles,
	}); err != nil {
		log.Printf("warning: writing summary: %v", err)
	}

	removed, err := store.Prune(cfg.KeepSnapshots)
	if err != nil {
		log.Printf("warning: pruning snapshots: %v", err)
	} else if removed > 0 {
		fmt.Printf("Pruned %d old snapshot(s)\n", removed)
	}

	fmt.Printf("Done: %d sessions, %d transcripts\n", sessions, bundles)
}

// downloadSnapshot streams session pages to disk, then fetches the
// transcript for each stored session.
func downloadSnapshot(ctx context.Context, client *fetch.Client, dir *snapshot.Dir, maxPages int) (sessions, bundles int, err error) {
	var ids []string
	err = client.Sessions(ctx, maxPages, func(page [][]byte) error {
		for _, raw := range page {
			id := gjson.GetBytes(raw, "id").String()
			if id == "" {
				log.Printf("Warning: skipping session record without id")
				continue
			}
			if err := dir.WriteSession(id, raw); err != nil {
				return err
			}
			ids = append(ids, id)
			sessions++
		}
		fmt.Printf("\r  %d sessions", sessions)
		return nil
	})
	if err != nil {
		return sessions, bundles, err
	}
	fmt.Println()

	for _, id := range ids {
		messages, err := client.SessionMessages(ctx, id)
		if err != nil {
			return sessions, bundles, fmt.Errorf("messages for %s: %w", id, err)
		}
		bundle, err := encodeBundle(id, messages)
		if err != nil {
			return sessions, bundles, err
		}
		if err := dir.WriteMessages(id, bundle); err != nil {
			return sessions, bundles, err
		}
		bundles++
		if bundles%25 == 0 {
			fmt.Printf("\r  %d/%d transcripts", bundles, len(ids))
		}
	}
	fmt.Printf("\r  %d/%d transcripts\n", bundles, len(ids))
	return sessions, bundles, nil
}

// encodeBundle wraps raw message records in the on-disk bundle shape
// keyed by session id.
func encodeBundle(id string, messages [][]byte) ([]byte, error) {
	raw := make([]json.RawMessage, len(messages))
	for i, m := range messages {
		raw[i] = m
	}
	return json.Marshal(struct {
		ID       string            `json:"id"`
		Messages []json.RawMessage `json:"messages"`
	}{ID: id, Messages: raw})
}
