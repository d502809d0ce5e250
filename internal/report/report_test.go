package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ecdlabs/chatview/internal/record"
)

func sampleDataset() ([]record.Session, []record.MessageBundle) {
	sessions := []record.Session{
		{
			ID:        "s1",
			CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			Experiment: record.Experiment{
				ID: "exp-a", Name: "Coaching Bot", VersionNumber: 1,
			},
			Team: record.Team{Name: "Health", Slug: "health"},
			Tags: []record.Tag{{Name: "coaching_good"}},
		},
		{
			ID:        "s2",
			CreatedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
			Experiment: record.Experiment{
				ID: "exp-a", Name: "Coaching Bot", VersionNumber: 2,
			},
		},
	}
	bundles := []record.MessageBundle{
		{ID: "s1", Messages: []record.Message{
			{Role: "user", Content: "thanks a lot", WordCount: 3},
			{Role: "assistant", Content: "glad to help", WordCount: 3},
		}},
	}
	return sessions, bundles
}

func TestBuildAndRender(t *testing.T) {
	sessions, bundles := sampleDataset()
	data, err := Build("20250301_100000", sessions, bundles)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatal(err)
	}
	html := buf.String()

	for _, want := range []string{
		"Session Analytics Dashboard",
		"snapshot 20250301_100000",
		"Coaching Bot",
		"coaching_good",
		`id="report-data"`,
		`id="dataset-data"`,
		`"total_sessions":2`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestBuildProjection(t *testing.T) {
	sessions, bundles := sampleDataset()
	data, err := Build("snap", sessions, bundles)
	if err != nil {
		t.Fatal(err)
	}

	ds := string(data.DatasetJSON)
	if !strings.Contains(ds, `"experiment_id":"exp-a"`) {
		t.Errorf("dataset projection missing experiment id: %s", ds)
	}
	if !strings.Contains(ds, `"messages":2`) {
		t.Errorf("dataset projection missing message count: %s", ds)
	}
}

func TestRenderEmptyDataset(t *testing.T) {
	data, err := Build("empty", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No experiments in this dataset") {
		t.Error("empty dataset should render the empty state")
	}
}

func TestWriteFile(t *testing.T) {
	sessions, bundles := sampleDataset()
	data, err := Build("snap", sessions, bundles)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path, err := WriteFile(dir, data)
	if err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "<!DOCTYPE html>") {
		t.Error("written report is not an HTML document")
	}
	if !strings.HasPrefix(filepath.Base(path), "dashboard_") {
		t.Errorf("unexpected report path %s", path)
	}
}

func TestSortedRowsDeterministic(t *testing.T) {
	rows := sortedRows(map[string]int{"b": 2, "a": 2, "c": 5})
	if rows[0].Name != "c" || rows[1].Name != "a" || rows[2].Name != "b" {
		t.Errorf("rows = %v, want count desc then name asc", rows)
	}
}
