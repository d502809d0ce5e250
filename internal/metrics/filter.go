package metrics

import (
	"sort"

	"github.com/ecdlabs/chatview/internal/record"
)

// Selection maps experiment ids to the set of version numbers chosen
// for that experiment. An experiment absent from the map is excluded
// entirely; an empty Selection therefore selects nothing.
type Selection map[string]VersionSet

// VersionSet is the set of selected version numbers for one
// experiment.
type VersionSet map[int]bool

// NewSelection returns a selection covering every experiment and
// every known version in the dataset.
func NewSelection(sessions []record.Session, bundles []record.MessageBundle) Selection {
	sel := make(Selection)
	for _, id := range experimentIDs(sessions) {
		sel.Select(id, KnownVersions(sessions, bundles, id))
	}
	return sel
}

// Select includes an experiment with the given versions, replacing
// any previous version choice for it.
func (sel Selection) Select(expID string, versions []int) {
	set := make(VersionSet, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	sel[expID] = set
}

// Deselect removes an experiment from the selection entirely.
func (sel Selection) Deselect(expID string) {
	delete(sel, expID)
}

// SelectVersion adds one version for an experiment, creating its
// entry if needed.
func (sel Selection) SelectVersion(expID string, version int) {
	if sel[expID] == nil {
		sel[expID] = make(VersionSet)
	}
	sel[expID][version] = true
}

// DeselectVersion drops one version. When the last version of an
// experiment is dropped the experiment itself is removed.
func (sel Selection) DeselectVersion(expID string, version int) {
	set, ok := sel[expID]
	if !ok {
		return
	}
	delete(set, version)
	if len(set) == 0 {
		delete(sel, expID)
	}
}

// Matches reports whether a session of the given experiment and
// resolved version survives the selection.
func (sel Selection) Matches(expID string, version int) bool {
	return sel[expID][version]
}

// Apply restricts the dataset to sessions surviving the selection,
// preserving input order. Bundles are restricted to the surviving
// sessions so that message and sentiment stats stay consistent with
// session stats.
func Apply(sessions []record.Session, bundles []record.MessageBundle, sel Selection) ([]record.Session, []record.MessageBundle) {
	byID := make(map[string]*record.MessageBundle, len(bundles))
	for i := range bundles {
		byID[bundles[i].ID] = &bundles[i]
	}

	kept := make([]record.Session, 0, len(sessions))
	keptIDs := make(map[string]bool)
	for _, s := range sessions {
		if !sel.Matches(s.Experiment.ID, ResolveVersion(s, byID[s.ID])) {
			continue
		}
		kept = append(kept, s)
		keptIDs[s.ID] = true
	}

	keptBundles := make([]record.MessageBundle, 0, len(bundles))
	for _, b := range bundles {
		if keptIDs[b.ID] {
			keptBundles = append(keptBundles, b)
		}
	}
	return kept, keptBundles
}

// Recompute runs the full aggregation over the selected subset.
func Recompute(sessions []record.Session, bundles []record.MessageBundle, sel Selection) Report {
	filtered, filteredBundles := Apply(sessions, bundles, sel)
	return Compute(filtered, filteredBundles)
}

// KnownVersions returns the version numbers an experiment is known
// under: declared experiment versions plus versions resolved from its
// sessions, deduplicated and ascending.
func KnownVersions(sessions []record.Session, bundles []record.MessageBundle, expID string) []int {
	byID := make(map[string]*record.MessageBundle, len(bundles))
	for i := range bundles {
		byID[bundles[i].ID] = &bundles[i]
	}

	seen := make(map[int]bool)
	for _, s := range sessions {
		if s.Experiment.ID != expID {
			continue
		}
		for _, v := range s.Experiment.Versions {
			if v.Number >= 1 {
				seen[v.Number] = true
			}
		}
		seen[ResolveVersion(s, byID[s.ID])] = true
	}

	versions := make([]int, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

func experimentIDs(sessions []record.Session) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range sessions {
		id := s.Experiment.ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
