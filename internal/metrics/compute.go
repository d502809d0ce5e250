// Package metrics computes the analytics report from normalized
// session and transcript data. Compute is pure: the same inputs
// always produce the same Report, so filtered views are produced by
// re-running it on a restricted dataset.
package metrics

import (
	"regexp"
	"strconv"
	"time"

	"github.com/ecdlabs/chatview/internal/record"
)

// Report is the full set of aggregates the dashboard displays.
type Report struct {
	BasicStats      BasicStats      `json:"basic_stats"`
	MessageStats    MessageStats    `json:"message_stats"`
	SentimentStats  SentimentStats  `json:"sentiment_stats"`
	AnnotationStats AnnotationStats `json:"annotation_stats"`
	CoachingQuality CoachingQuality `json:"coaching_quality"`
	ExperimentStats ExperimentStats `json:"experiment_stats"`
}

// BasicStats counts sessions and the entities they span.
type BasicStats struct {
	TotalSessions        int        `json:"total_sessions"`
	SessionsWithMessages int        `json:"sessions_with_messages"`
	ExperimentsCount     int        `json:"experiments_count"`
	TeamsCount           int        `json:"teams_count"`
	DateRange            *DateRange `json:"date_range,omitempty"`
}

// DateRange spans the earliest and latest session creation times.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// MessageStats summarizes transcript volume and verbosity by role.
type MessageStats struct {
	TotalMessages        int     `json:"total_messages"`
	SessionsWithMessages int     `json:"sessions_with_messages"`
	MedianUserWords      float64 `json:"median_user_words"`
	MedianAssistantWords float64 `json:"median_assistant_words"`
	AvgUserWords         float64 `json:"avg_user_words"`
	AvgAssistantWords    float64 `json:"avg_assistant_words"`
}

// SentimentStats counts user messages matching the appreciation and
// dissatisfaction lexicons. The two counts are independent: a message
// matching both lexicons contributes to both.
type SentimentStats struct {
	AppreciationCount         int     `json:"appreciation_count"`
	DissatisfactionCount      int     `json:"dissatisfaction_count"`
	TotalUserMessages         int     `json:"total_user_messages"`
	AppreciationPercentage    float64 `json:"appreciation_percentage"`
	DissatisfactionPercentage float64 `json:"dissatisfaction_percentage"`
}

// AnnotationStats summarizes session tagging activity. Version tags
// (v1, v2, ...) are excluded from AnnotationCounts but still count
// toward SessionsWithTags and TotalTags.
type AnnotationStats struct {
	TotalTags         int            `json:"total_tags"`
	UniqueTags        int            `json:"unique_tags"`
	SessionsWithTags  int            `json:"sessions_with_tags"`
	AnnotationCounts  map[string]int `json:"annotation_counts"`
	QualityCategories map[string]int `json:"quality_categories"`
}

// CoachingQuality summarizes coaching review tags. A session with at
// least one coaching tag counts once toward the total.
type CoachingQuality struct {
	TotalCoachingAnnotations int                `json:"total_coaching_annotations"`
	CoachingCounts           map[string]int     `json:"coaching_counts"`
	CoachingPercentages      map[string]float64 `json:"coaching_percentages"`
}

// ExperimentStats breaks sessions down by experiment and resolved
// version. Version counts are keyed by experiment id, then version.
type ExperimentStats struct {
	ExperimentCounts map[string]int            `json:"experiment_counts"`
	ExperimentNames  map[string]string         `json:"experiment_names"`
	VersionCounts    map[string]map[string]int `json:"version_counts"`
}

// qualityCategoryNames is the closed set of review categories the
// dashboard always reports, present even at zero.
var qualityCategoryNames = []string{
	"bot_performance_good",
	"bot_performance_bad",
	"engagement_good",
	"engagement_bad",
	"coaching_good",
	"coaching_bad",
	"coaching_undetermined",
	"safe",
	"accurate",
	"user_knowledge_good",
	"user_knowledge_bad",
}

var versionTagPattern = regexp.MustCompile(`(?i)^v(\d+)$`)

// Compute aggregates the full report over the given dataset. Bundles
// are joined to sessions by id; bundles without a matching session
// still contribute to message and sentiment stats, which keeps the
// computation a pure function of exactly what it is handed.
func Compute(sessions []record.Session, bundles []record.MessageBundle) Report {
	byID := make(map[string]*record.MessageBundle, len(bundles))
	for i := range bundles {
		byID[bundles[i].ID] = &bundles[i]
	}
	return Report{
		BasicStats:      computeBasicStats(sessions, byID),
		MessageStats:    computeMessageStats(bundles),
		SentimentStats:  computeSentimentStats(bundles),
		AnnotationStats: computeAnnotationStats(sessions),
		CoachingQuality: computeCoachingQuality(sessions),
		ExperimentStats: computeExperimentStats(sessions, byID),
	}
}

func computeBasicStats(sessions []record.Session, byID map[string]*record.MessageBundle) BasicStats {
	stats := BasicStats{TotalSessions: len(sessions)}

	experiments := make(map[string]bool)
	teams := make(map[string]bool)
	var earliest, latest time.Time
	for _, s := range sessions {
		if _, ok := byID[s.ID]; ok {
			stats.SessionsWithMessages++
		}
		if s.Experiment.ID != "" {
			experiments[s.Experiment.ID] = true
		}
		if s.Team.Slug != "" {
			teams[s.Team.Slug] = true
		}
		if !s.CreatedAt.IsZero() {
			if earliest.IsZero() || s.CreatedAt.Before(earliest) {
				earliest = s.CreatedAt
			}
			if latest.IsZero() || s.CreatedAt.After(latest) {
				latest = s.CreatedAt
			}
		}
	}
	stats.ExperimentsCount = len(experiments)
	stats.TeamsCount = len(teams)
	if !earliest.IsZero() {
		stats.DateRange = &DateRange{Earliest: earliest, Latest: latest}
	}
	return stats
}

func computeMessageStats(bundles []record.MessageBundle) MessageStats {
	stats := MessageStats{}
	var userWords, assistantWords []int
	for _, b := range bundles {
		if len(b.Messages) > 0 {
			stats.SessionsWithMessages++
		}
		stats.TotalMessages += len(b.Messages)
		for _, m := range b.Messages {
			switch {
			case m.IsUser():
				userWords = append(userWords, m.WordCount)
			case m.IsAssistant():
				assistantWords = append(assistantWords, m.WordCount)
			}
		}
	}
	stats.MedianUserWords = medianInts(userWords)
	stats.MedianAssistantWords = medianInts(assistantWords)
	stats.AvgUserWords = meanInts(userWords)
	stats.AvgAssistantWords = meanInts(assistantWords)
	return stats
}

func computeSentimentStats(bundles []record.MessageBundle) SentimentStats {
	stats := SentimentStats{}
	for _, b := range bundles {
		for _, m := range b.Messages {
			if !m.IsUser() {
				continue
			}
			stats.TotalUserMessages++
			if matchesAny(m.Content, appreciationPatterns) {
				stats.AppreciationCount++
			}
			if matchesAny(m.Content, dissatisfactionPatterns) {
				stats.DissatisfactionCount++
			}
		}
	}
	if stats.TotalUserMessages > 0 {
		stats.AppreciationPercentage = percent(stats.AppreciationCount, stats.TotalUserMessages)
		stats.DissatisfactionPercentage = percent(stats.DissatisfactionCount, stats.TotalUserMessages)
	}
	return stats
}

func computeAnnotationStats(sessions []record.Session) AnnotationStats {
	stats := AnnotationStats{
		AnnotationCounts:  make(map[string]int),
		QualityCategories: make(map[string]int, len(qualityCategoryNames)),
	}
	unique := make(map[string]bool)
	for _, s := range sessions {
		if len(s.Tags) > 0 {
			stats.SessionsWithTags++
		}
		stats.TotalTags += len(s.Tags)
		for _, tag := range s.Tags {
			if tag.Name == "" {
				continue
			}
			unique[tag.Name] = true
			if versionTagPattern.MatchString(tag.Name) {
				continue
			}
			stats.AnnotationCounts[tag.Name]++
		}
	}
	stats.UniqueTags = len(unique)
	for _, name := range qualityCategoryNames {
		stats.QualityCategories[name] = stats.AnnotationCounts[name]
	}
	return stats
}

func computeCoachingQuality(sessions []record.Session) CoachingQuality {
	quality := CoachingQuality{
		CoachingCounts:      make(map[string]int),
		CoachingPercentages: make(map[string]float64),
	}
	for _, s := range sessions {
		tagged := false
		for _, tag := range s.Tags {
			if isCoachingTag(tag.Name) {
				quality.CoachingCounts[tag.Name]++
				tagged = true
			}
		}
		if tagged {
			quality.TotalCoachingAnnotations++
		}
	}
	if quality.TotalCoachingAnnotations > 0 {
		for name, count := range quality.CoachingCounts {
			quality.CoachingPercentages[name] = percent(count, quality.TotalCoachingAnnotations)
		}
	}
	return quality
}

func computeExperimentStats(sessions []record.Session, byID map[string]*record.MessageBundle) ExperimentStats {
	stats := ExperimentStats{
		ExperimentCounts: make(map[string]int),
		ExperimentNames:  make(map[string]string),
		VersionCounts:    make(map[string]map[string]int),
	}
	for _, s := range sessions {
		expID := s.Experiment.ID
		if expID == "" {
			continue
		}
		stats.ExperimentCounts[expID]++
		if name := s.Experiment.Name; name != "" {
			stats.ExperimentNames[expID] = name
		}
		version := ResolveVersion(s, byID[s.ID])
		if stats.VersionCounts[expID] == nil {
			stats.VersionCounts[expID] = make(map[string]int)
		}
		stats.VersionCounts[expID][strconv.Itoa(version)]++
	}
	return stats
}

// ResolveVersion determines which experiment version served a
// session. A version tag (v1, v2, ...) on any transcript message wins,
// taking the first one in transcript order; otherwise the session's
// nominal version number applies, defaulting to 1.
func ResolveVersion(s record.Session, bundle *record.MessageBundle) int {
	if bundle != nil {
		for _, m := range bundle.Messages {
			for _, tag := range m.Tags {
				if match := versionTagPattern.FindStringSubmatch(tag); match != nil {
					if v, err := strconv.Atoi(match[1]); err == nil {
						return v
					}
				}
			}
		}
	}
	if s.Experiment.VersionNumber >= 1 {
		return s.Experiment.VersionNumber
	}
	return 1
}

func isCoachingTag(name string) bool {
	return containsFold(name, "coaching")
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
