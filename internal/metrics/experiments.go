package metrics

import (
	"sort"

	"github.com/ecdlabs/chatview/internal/record"
)

// ExperimentInfo describes one experiment for the filter UI.
type ExperimentInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Versions []int  `json:"versions"`
	Sessions int    `json:"sessions"`
}

// Experiments lists every experiment in the dataset with its known
// versions, ordered by session count descending, then id for
// deterministic output.
func Experiments(sessions []record.Session, bundles []record.MessageBundle) []ExperimentInfo {
	counts := make(map[string]int)
	names := make(map[string]string)
	for _, s := range sessions {
		id := s.Experiment.ID
		if id == "" {
			continue
		}
		counts[id]++
		if s.Experiment.Name != "" {
			names[id] = s.Experiment.Name
		}
	}

	infos := make([]ExperimentInfo, 0, len(counts))
	for id, n := range counts {
		infos = append(infos, ExperimentInfo{
			ID:       id,
			Name:     names[id],
			Versions: KnownVersions(sessions, bundles, id),
			Sessions: n,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Sessions != infos[j].Sessions {
			return infos[i].Sessions > infos[j].Sessions
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}
