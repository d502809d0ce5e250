// Package record defines the normalized analytics data model and the
// lenient parsers that build it from raw API payloads.
package record

import (
	"strings"
	"time"
)

// Session is one conversation between a participant and a bot
// experiment. Substructure fields default to zero values when the raw
// payload omits them; only ID and CreatedAt are required.
type Session struct {
	ID          string
	URL         string
	Experiment  Experiment
	Team        Team
	Participant Participant
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []Tag
}

// Experiment identifies the bot configuration a session ran against.
type Experiment struct {
	ID            string
	Name          string
	URL           string
	VersionNumber int
	Versions      []ExperimentVersion
}

// ExperimentVersion is one published revision of an experiment.
type ExperimentVersion struct {
	Number      int
	Name        string
	IsDefault   bool
	Description string
}

// Team is the workspace that owns a session.
type Team struct {
	Name string
	Slug string
}

// Participant is the human side of a session.
type Participant struct {
	Identifier string
	RemoteID   string
}

// Tag is a qualitative label attached to a session. The upstream API
// emits tags either as plain strings or as objects with a name field;
// ParseTag normalizes both forms, and Name is the tag's identity.
type Tag struct {
	Name string
}

// MessageBundle holds the ordered transcript for one session. The
// bundle ID equals the session ID it belongs to.
type MessageBundle struct {
	ID       string
	Messages []Message
}

// Message is a single transcript entry.
type Message struct {
	Role        string
	Content     string
	CreatedAt   time.Time
	Tags        []string
	Attachments int
	WordCount   int
}

// IsUser reports whether the message was authored by the participant.
func (m Message) IsUser() bool { return m.Role == "user" }

// IsAssistant reports whether the message was authored by the bot.
func (m Message) IsAssistant() bool { return m.Role == "assistant" }

// countWords splits on whitespace; punctuation stays attached to its
// word.
func countWords(content string) int {
	return len(strings.Fields(content))
}
