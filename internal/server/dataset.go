package server

import (
	"log"
	"time"

	"github.com/ecdlabs/chatview/internal/record"
	"github.com/ecdlabs/chatview/internal/snapshot"
)

// Dataset is one fully loaded snapshot. It is immutable once built;
// reloads build a fresh Dataset and swap it in.
type Dataset struct {
	Snapshot string
	Sessions []record.Session
	Bundles  []record.MessageBundle
	LoadedAt time.Time
}

// LoadLatest reads and normalizes the newest snapshot in the store.
func LoadLatest(store *snapshot.Store) (*Dataset, error) {
	dir, err := store.Latest()
	if err != nil {
		return nil, err
	}
	return LoadDir(dir)
}

// LoadDir reads and normalizes one snapshot directory.
func LoadDir(dir *snapshot.Dir) (*Dataset, error) {
	rawSessions, err := dir.RawSessions()
	if err != nil {
		return nil, err
	}
	rawMessages, err := dir.RawMessages()
	if err != nil {
		return nil, err
	}

	sessions, sres := record.LoadSessions(rawSessions)
	bundles, bres := record.LoadBundles(rawMessages)
	if sres.Skipped > 0 || bres.Skipped > 0 {
		log.Printf("Loaded snapshot %s with %d skipped records",
			dir.Name(), sres.Skipped+bres.Skipped)
	}

	return &Dataset{
		Snapshot: dir.Name(),
		Sessions: sessions,
		Bundles:  bundles,
		LoadedAt: time.Now(),
	}, nil
}
