// Package events publishes domain events about articles. Publishing is best
// effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

type Type string

const (
	ArticleCreated    Type = "article.created"
	ArticleUpdated    Type = "article.updated"
	ArticleDeleted    Type = "article.deleted"
	ArticleViewed     Type = "article.viewed"
	ArticleRated      Type = "article.rated"
	ArticleUnrated    Type = "article.unrated"
	ArticleAttached   Type = "article.attached"
	GallerySwept      Type = "gallery.swept"
	BlobReleaseFailed Type = "blob.release_failed"
)

type Event struct {
	Type       Type                   `json:"type"`
	ArticleID  uint                   `json:"article_id,omitempty"`
	UserID     *uint                  `json:"user_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Key partitions events by article so one article's events stay ordered.
func (e Event) Key() string {
	return strconv.FormatUint(uint64(e.ArticleID), 10)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
