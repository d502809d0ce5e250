package record

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ParseError reports a raw record that could not be normalized. Batch
// loaders skip the offending record and continue.
type ParseError struct {
	Kind  string // "session" or "messages"
	ID    string // record id when known
	Field string // field that failed
	Err   error
}

func (e *ParseError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("parse %s %s: field %q: %v", e.Kind, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: field %q: %v", e.Kind, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissing = fmt.Errorf("missing or empty")

// ParseSession normalizes one raw session payload. The record must
// carry a non-empty id and a parseable created_at; everything else is
// optional and defaults to zero values.
func ParseSession(data []byte) (Session, error) {
	if !gjson.ValidBytes(data) {
		return Session{}, &ParseError{Kind: "session", Field: "", Err: fmt.Errorf("invalid JSON")}
	}
	doc := gjson.ParseBytes(data)

	id := doc.Get("id").String()
	if id == "" {
		return Session{}, &ParseError{Kind: "session", Field: "id", Err: errMissing}
	}

	createdAt, err := parseTime(doc.Get("created_at").Str)
	if err != nil {
		return Session{}, &ParseError{Kind: "session", ID: id, Field: "created_at", Err: err}
	}

	s := Session{
		ID:        id,
		URL:       doc.Get("url").Str,
		CreatedAt: createdAt,
	}
	// updated_at is informational; a bad value does not reject the
	// session.
	if t, err := parseTime(doc.Get("updated_at").Str); err == nil {
		s.UpdatedAt = t
	}

	if exp := doc.Get("experiment"); exp.IsObject() {
		s.Experiment = parseExperiment(exp)
	}
	if team := doc.Get("team"); team.IsObject() {
		s.Team = Team{
			Name: team.Get("name").Str,
			Slug: team.Get("slug").Str,
		}
	}
	if p := doc.Get("participant"); p.IsObject() {
		s.Participant = Participant{
			Identifier: p.Get("identifier").Str,
			RemoteID:   p.Get("remote_id").String(),
		}
	}
	for _, raw := range doc.Get("tags").Array() {
		s.Tags = append(s.Tags, ParseTag(raw))
	}
	return s, nil
}

func parseExperiment(exp gjson.Result) Experiment {
	e := Experiment{
		ID:            exp.Get("id").String(),
		Name:          exp.Get("name").Str,
		URL:           exp.Get("url").Str,
		VersionNumber: int(exp.Get("version_number").Int()),
	}
	for _, v := range exp.Get("versions").Array() {
		e.Versions = append(e.Versions, ExperimentVersion{
			Number:      int(v.Get("version_number").Int()),
			Name:        v.Get("name").Str,
			IsDefault:   v.Get("is_default_version").Bool(),
			Description: v.Get("version_description").Str,
		})
	}
	return e
}

// ParseTag accepts the two tag encodings the API produces: a bare
// string, or an object whose name field carries the display name.
func ParseTag(raw gjson.Result) Tag {
	if raw.Type == gjson.String {
		return Tag{Name: raw.Str}
	}
	return Tag{Name: raw.Get("name").Str}
}

// ParseMessageBundle normalizes one raw transcript payload. Only the
// bundle id is required; individual messages are normalized leniently
// and keep their payload order.
func ParseMessageBundle(data []byte) (MessageBundle, error) {
	if !gjson.ValidBytes(data) {
		return MessageBundle{}, &ParseError{Kind: "messages", Field: "", Err: fmt.Errorf("invalid JSON")}
	}
	doc := gjson.ParseBytes(data)

	id := doc.Get("id").String()
	if id == "" {
		return MessageBundle{}, &ParseError{Kind: "messages", Field: "id", Err: errMissing}
	}

	b := MessageBundle{ID: id}
	for _, raw := range doc.Get("messages").Array() {
		b.Messages = append(b.Messages, parseMessage(raw))
	}
	return b, nil
}

func parseMessage(raw gjson.Result) Message {
	m := Message{
		Role:        raw.Get("role").Str,
		Content:     raw.Get("content").Str,
		Attachments: len(raw.Get("attachments").Array()),
	}
	if t, err := parseTime(raw.Get("created_at").Str); err == nil {
		m.CreatedAt = t
	}
	for _, tag := range raw.Get("tags").Array() {
		if name := ParseTag(tag).Name; name != "" {
			m.Tags = append(m.Tags, name)
		}
	}
	m.WordCount = countWords(m.Content)
	return m
}

// parseTime accepts ISO-8601 timestamps with or without an explicit
// offset. Naive timestamps are taken as UTC.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errMissing
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
