package record

import "log"

// LoadResult reports what a batch normalization produced.
type LoadResult struct {
	Parsed  int
	Skipped int
}

// LoadSessions normalizes a batch of raw session payloads, preserving
// input order. Records that fail to parse are logged and skipped.
func LoadSessions(docs [][]byte) ([]Session, LoadResult) {
	sessions := make([]Session, 0, len(docs))
	var res LoadResult
	for _, doc := range docs {
		s, err := ParseSession(doc)
		if err != nil {
			log.Printf("Warning: skipping session record: %v", err)
			res.Skipped++
			continue
		}
		sessions = append(sessions, s)
		res.Parsed++
	}
	return sessions, res
}

// LoadBundles normalizes a batch of raw transcript payloads,
// preserving input order. Records that fail to parse are logged and
// skipped.
func LoadBundles(docs [][]byte) ([]MessageBundle, LoadResult) {
	bundles := make([]MessageBundle, 0, len(docs))
	var res LoadResult
	for _, doc := range docs {
		b, err := ParseMessageBundle(doc)
		if err != nil {
			log.Printf("Warning: skipping message record: %v", err)
			res.Skipped++
			continue
		}
		bundles = append(bundles, b)
		res.Parsed++
	}
	return bundles, res
}
