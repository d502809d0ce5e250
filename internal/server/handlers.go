package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ecdlabs/chatview/internal/metrics"
	"github.com/ecdlabs/chatview/internal/report"
)

type metricsResponse struct {
	Snapshot string         `json:"snapshot"`
	Filtered bool           `json:"filtered"`
	Report   metrics.Report `json:"report"`
}

// handleMetrics returns the aggregate report. Without an experiments
// parameter the full dataset is reported; with one, the report is
// recomputed over the selected experiment/version subset.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ds := s.Dataset()

	q := r.URL.Query()
	if !q.Has("experiments") {
		writeJSON(w, http.StatusOK, metricsResponse{
			Snapshot: ds.Snapshot,
			Report:   metrics.Compute(ds.Sessions, ds.Bundles),
		})
		return
	}

	sel, err := parseSelection(q.Get("experiments"), ds)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metricsResponse{
		Snapshot: ds.Snapshot,
		Filtered: true,
		Report:   metrics.Recompute(ds.Sessions, ds.Bundles, sel),
	})
}

// parseSelection parses the experiments query parameter. The format
// is "expA:1,2;expB:3"; an experiment without versions selects all
// of its known versions. An empty value is an empty selection.
func parseSelection(param string, ds *Dataset) (metrics.Selection, error) {
	sel := make(metrics.Selection)
	if param == "" {
		return sel, nil
	}
	for _, clause := range strings.Split(param, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		expID, versionPart, hasVersions := strings.Cut(clause, ":")
		expID = strings.TrimSpace(expID)
		if expID == "" {
			return nil, fmt.Errorf("empty experiment id in %q", clause)
		}
		if !hasVersions || versionPart == "" {
			sel.Select(expID, metrics.KnownVersions(ds.Sessions, ds.Bundles, expID))
			continue
		}
		for _, vs := range strings.Split(versionPart, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(vs))
			if err != nil || v < 1 {
				return nil, fmt.Errorf("invalid version %q for experiment %s", vs, expID)
			}
			sel.SelectVersion(expID, v)
		}
	}
	return sel, nil
}

func (s *Server) handleExperiments(w http.ResponseWriter, _ *http.Request) {
	ds := s.Dataset()
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":    ds.Snapshot,
		"experiments": metrics.Experiments(ds.Sessions, ds.Bundles),
	})
}

type sessionSummary struct {
	ID           string   `json:"id"`
	ExperimentID string   `json:"experiment_id"`
	Experiment   string   `json:"experiment"`
	Team         string   `json:"team"`
	CreatedAt    string   `json:"created_at"`
	Version      int      `json:"version"`
	Messages     int      `json:"messages"`
	Tags         []string `json:"tags,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	ds := s.Dataset()

	counts := make(map[string]int, len(ds.Bundles))
	byID := make(map[string]int, len(ds.Bundles))
	for i := range ds.Bundles {
		counts[ds.Bundles[i].ID] = len(ds.Bundles[i].Messages)
		byID[ds.Bundles[i].ID] = i
	}

	out := make([]sessionSummary, 0, len(ds.Sessions))
	for _, sess := range ds.Sessions {
		summary := sessionSummary{
			ID:           sess.ID,
			ExperimentID: sess.Experiment.ID,
			Experiment:   sess.Experiment.Name,
			Team:         sess.Team.Name,
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
			Messages:     counts[sess.ID],
		}
		if i, ok := byID[sess.ID]; ok {
			summary.Version = metrics.ResolveVersion(sess, &ds.Bundles[i])
		} else {
			summary.Version = metrics.ResolveVersion(sess, nil)
		}
		for _, tag := range sess.Tags {
			if tag.Name != "" {
				summary.Tags = append(summary.Tags, tag.Name)
			}
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": ds.Snapshot,
		"sessions": out,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	ds := s.Dataset()
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":    ds.Snapshot,
		"loaded_at":   ds.LoadedAt.UTC().Format(time.RFC3339),
		"sessions":    len(ds.Sessions),
		"bundles":     len(ds.Bundles),
		"experiments": len(metrics.Experiments(ds.Sessions, ds.Bundles)),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.version)
}

// handleDashboard renders the dashboard for the current dataset on
// demand, so a reloaded snapshot shows up on the next refresh.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	ds := s.Dataset()

	data, err := report.Build(ds.Snapshot, ds.Sessions, ds.Bundles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
