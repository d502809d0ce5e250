// Package report renders the analytics dashboard as a standalone
// HTML file with the computed metrics and a JSON projection of the
// dataset embedded alongside.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ecdlabs/chatview/internal/metrics"
	"github.com/ecdlabs/chatview/internal/record"
)

// Data carries everything the template needs for one render.
type Data struct {
	GeneratedAt time.Time
	Snapshot    string
	Report      metrics.Report
	Experiments []metrics.ExperimentInfo

	// Embedded for download/inspection from the rendered page.
	ReportJSON  template.JS
	DatasetJSON template.JS
}

// datasetProjection is the slim JSON view of the dataset embedded in
// the page.
type datasetProjection struct {
	Sessions []sessionProjection `json:"sessions"`
}

type sessionProjection struct {
	ID           string   `json:"id"`
	ExperimentID string   `json:"experiment_id"`
	Experiment   string   `json:"experiment"`
	Team         string   `json:"team"`
	CreatedAt    string   `json:"created_at"`
	Version      int      `json:"version"`
	Messages     int      `json:"messages"`
	Tags         []string `json:"tags,omitempty"`
}

// Build assembles the render data for a dataset.
func Build(snapshot string, sessions []record.Session, bundles []record.MessageBundle) (Data, error) {
	rep := metrics.Compute(sessions, bundles)

	byID := make(map[string]*record.MessageBundle, len(bundles))
	for i := range bundles {
		byID[bundles[i].ID] = &bundles[i]
	}
	proj := datasetProjection{Sessions: make([]sessionProjection, 0, len(sessions))}
	for _, s := range sessions {
		sp := sessionProjection{
			ID:           s.ID,
			ExperimentID: s.Experiment.ID,
			Experiment:   s.Experiment.Name,
			Team:         s.Team.Name,
			CreatedAt:    s.CreatedAt.Format(time.RFC3339),
			Version:      metrics.ResolveVersion(s, byID[s.ID]),
		}
		if b := byID[s.ID]; b != nil {
			sp.Messages = len(b.Messages)
		}
		for _, tag := range s.Tags {
			if tag.Name != "" {
				sp.Tags = append(sp.Tags, tag.Name)
			}
		}
		proj.Sessions = append(proj.Sessions, sp)
	}

	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return Data{}, fmt.Errorf("encoding report: %w", err)
	}
	datasetJSON, err := json.Marshal(proj)
	if err != nil {
		return Data{}, fmt.Errorf("encoding dataset: %w", err)
	}

	return Data{
		GeneratedAt: time.Now().UTC(),
		Snapshot:    snapshot,
		Report:      rep,
		Experiments: metrics.Experiments(sessions, bundles),
		ReportJSON:  template.JS(reportJSON),
		DatasetJSON: template.JS(datasetJSON),
	}, nil
}

// Render writes the dashboard HTML to w.
func Render(w io.Writer, d Data) error {
	return dashboardTmpl.Execute(w, d)
}

// WriteFile renders the dashboard into dir and returns the file path.
func WriteFile(dir string, d Data) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	name := fmt.Sprintf("dashboard_%s.html", d.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()
	if err := Render(f, d); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return path, nil
}

// AnnotationRows returns annotation counts sorted by count
// descending, then name, for stable template output.
func (d Data) AnnotationRows() []CountRow {
	return sortedRows(d.Report.AnnotationStats.AnnotationCounts)
}

// QualityRows returns the fixed quality categories sorted by count
// descending, then name.
func (d Data) QualityRows() []CountRow {
	return sortedRows(d.Report.AnnotationStats.QualityCategories)
}

// CoachingRows returns coaching tag counts with percentages.
func (d Data) CoachingRows() []CoachingRow {
	rows := make([]CoachingRow, 0, len(d.Report.CoachingQuality.CoachingCounts))
	for name, count := range d.Report.CoachingQuality.CoachingCounts {
		rows = append(rows, CoachingRow{
			Name:    name,
			Count:   count,
			Percent: d.Report.CoachingQuality.CoachingPercentages[name],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// CountRow is one name/count pair for table rendering.
type CountRow struct {
	Name  string
	Count int
}

// CoachingRow is one coaching tag with its share of coaching
// sessions.
type CoachingRow struct {
	Name    string
	Count   int
	Percent float64
}

func sortedRows(counts map[string]int) []CountRow {
	rows := make([]CountRow, 0, len(counts))
	for name, count := range counts {
		rows = append(rows, CountRow{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
