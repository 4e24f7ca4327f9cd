package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/signed-book-watch/internal/domain"
)

// EventTypeTitlesChanged labels a change notification for the signed title list.
const EventTypeTitlesChanged = "signed_titles_changed"

// Event is the change notification handed to publishers.
type Event struct {
	Type        string    `json:"type"`
	SourceURL   string    `json:"source_url"`
	Timestamp   string    `json:"timestamp"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Added       []string  `json:"added"`
	Removed     []string  `json:"removed"`
	Current     []string  `json:"current"`
	PublishedAt time.Time `json:"published_at"`
}

// NewEvent builds a notification for a snapshot, its diff and the rendered issue.
func NewEvent(snap domain.Snapshot, d domain.Diff, title, body string) Event {
	return Event{
		Type:        EventTypeTitlesChanged,
		SourceURL:   snap.SourceURL,
		Timestamp:   snap.Timestamp,
		Title:       title,
		Body:        body,
		Added:       d.Added,
		Removed:     d.Removed,
		Current:     d.Current,
		PublishedAt: time.Now().UTC(),
	}
}

// payload is the JSON message body shared by the queue and topic publishers.
func (e Event) payload() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(b), nil
}

// dedupeKey identifies one check run; redelivering the same run is a no-op
// for sinks that deduplicate.
func (e Event) dedupeKey() string {
	return e.Type + "@" + e.Timestamp
}
