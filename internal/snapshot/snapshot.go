// Package snapshot manages timestamped dataset directories on disk.
// Each snapshot is a directory named YYYYMMDD_HHMMSS containing a
// sessions/ and a messages/ subdirectory of per-session JSON files.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	timestampLayout = "20060102_150405"
	sessionsDir     = "sessions"
	messagesDir     = "messages"
	summaryFile     = "download_summary.json"
)

// MissingDatasetError indicates no snapshot exists under the data
// root. Report generation treats this as fatal.
type MissingDatasetError struct {
	Root string
}

func (e *MissingDatasetError) Error() string {
	return fmt.Sprintf("no snapshots found in %s (run fetch first)", e.Root)
}

// Store manages the snapshot directories under one data root.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the data directory the store manages.
func (st *Store) Root() string { return st.root }

// Create makes a new snapshot directory stamped with the given time.
func (st *Store) Create(now time.Time) (*Dir, error) {
	name := now.UTC().Format(timestampLayout)
	path := filepath.Join(st.root, name)
	for _, sub := range []string{sessionsDir, messagesDir} {
		if err := os.MkdirAll(filepath.Join(path, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot %s: %w", name, err)
		}
	}
	return &Dir{path: path, name: name}, nil
}

// Latest returns the newest snapshot, or a MissingDatasetError when
// none exists.
func (st *Store) Latest() (*Dir, error) {
	dirs, err := st.List()
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, &MissingDatasetError{Root: st.root}
	}
	return dirs[0], nil
}

// List returns all snapshots, newest first. Entries that do not look
// like snapshot directories are ignored.
func (st *Store) List() ([]*Dir, error) {
	entries, err := os.ReadDir(st.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir %s: %w", st.root, err)
	}
	var dirs []*Dir
	for _, e := range entries {
		if !e.IsDir() || !isSnapshotName(e.Name()) {
			continue
		}
		dirs = append(dirs, &Dir{
			path: filepath.Join(st.root, e.Name()),
			name: e.Name(),
		})
	}
	// Timestamp names sort lexicographically; newest first.
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].name > dirs[j].name })
	return dirs, nil
}

// Prune deletes all but the newest keep snapshots and returns how
// many were removed. keep < 1 is treated as 1.
func (st *Store) Prune(keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	dirs, err := st.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range dirs[min(keep, len(dirs)):] {
		if err := os.RemoveAll(d.path); err != nil {
			return removed, fmt.Errorf("prune snapshot %s: %w", d.name, err)
		}
		removed++
	}
	return removed, nil
}

func isSnapshotName(name string) bool {
	_, err := time.Parse(timestampLayout, name)
	return err == nil
}

// Dir is one snapshot directory.
type Dir struct {
	path string
	name string
}

func (d *Dir) Name() string { return d.name }
func (d *Dir) Path() string { return d.path }

// CreatedAt derives the snapshot time from its directory name.
func (d *Dir) CreatedAt() time.Time {
	t, _ := time.Parse(timestampLayout, d.name)
	return t
}

// WriteSession stores one raw session payload under sessions/.
func (d *Dir) WriteSession(id string, data []byte) error {
	return d.write(sessionsDir, "session_"+id+".json", data)
}

// WriteMessages stores one raw transcript payload under messages/.
func (d *Dir) WriteMessages(id string, data []byte) error {
	return d.write(messagesDir, "messages_"+id+".json", data)
}

func (d *Dir) write(sub, name string, data []byte) error {
	path := filepath.Join(d.path, sub, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// RawSessions reads every stored session payload in file-name order.
// Unreadable files are logged and skipped.
func (d *Dir) RawSessions() ([][]byte, error) {
	return d.readAll(sessionsDir, "session_")
}

// RawMessages reads every stored transcript payload in file-name
// order.
func (d *Dir) RawMessages() ([][]byte, error) {
	return d.readAll(messagesDir, "messages_")
}

func (d *Dir) readAll(sub, prefix string) ([][]byte, error) {
	dir := filepath.Join(d.path, sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: skipping unreadable file %s: %v", name, err)
			continue
		}
		docs = append(docs, data)
	}
	return docs, nil
}

// Summary records what a fetch run produced, stored alongside the
// downloaded records.
type Summary struct {
	FetchedAt time.Time `json:"fetched_at"`
	BaseURL   string    `json:"base_url"`
	Sessions  int       `json:"sessions"`
	Bundles   int       `json:"message_bundles"`
}

func (d *Dir) WriteSummary(s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return d.write(".", summaryFile, data)
}

// ReadSummary returns the stored fetch summary, or nil when the
// snapshot has none.
func (d *Dir) ReadSummary() (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(d.path, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// Info summarizes a snapshot's contents for listings.
type Info struct {
	Name      string
	Sessions  int
	Bundles   int
	SizeBytes int64
}

func (d *Dir) Info() (Info, error) {
	info := Info{Name: d.name}
	err := filepath.WalkDir(d.path, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		fi, err := entry.Info()
		if err != nil {
			return err
		}
		info.SizeBytes += fi.Size()
		name := entry.Name()
		switch {
		case strings.HasPrefix(name, "session_") && strings.HasSuffix(name, ".json"):
			info.Sessions++
		case strings.HasPrefix(name, "messages_") && strings.HasSuffix(name, ".json"):
			info.Bundles++
		}
		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("scan snapshot %s: %w", d.name, err)
	}
	return info, nil
}
