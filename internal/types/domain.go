package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// User represents the authenticated account.
type User struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  Time   `json:"created_at"`
	UpdatedAt  Time   `json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Timestamp is a single "time → description" marker inside a note.
type Timestamp struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

// Note is a structured note generated server-side from a video link.
type Note struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	SourceURL       string      `json:"youtube_url"`
	Title           *string     `json:"video_title,omitempty"`
	ChannelName     *string     `json:"channel_name,omitempty"`
	Summary         *string     `json:"summary,omitempty"`
	KeyPoints       []string    `json:"key_points,omitempty"`
	Timestamps      []Timestamp `json:"timestamps,omitempty"`
	DurationSeconds *int        `json:"duration_in_seconds,omitempty"`
	ThumbnailURL    *string     `json:"thumbnail_url,omitempty"`
	Views           *int64      `json:"views,omitempty"`
	Likes           *int64      `json:"likes,omitempty"`
	PublishDate     *Time       `json:"publish_date,omitempty"`
	CreatedAt       Time        `json:"created_at"`
	UpdatedAt       Time        `json:"updated_at"`
}

// NotePage is one page of the note listing. It is rebuilt from every list
// response and never patched in place.
type NotePage struct {
	Items       []Note
	TotalItems  int
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// Contains reports whether a note with id is on the page.
func (p *NotePage) Contains(id int64) bool {
	if p == nil {
		return false
	}
	for _, n := range p.Items {
		if n.ID == id {
			return true
		}
	}
	return false
}

// ------------------------------
// Time
// ------------------------------

// naiveLayouts are the ISO-8601 forms the backend emits without a zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time decodes both RFC3339 and the backend's zone-less timestamps; the
// latter are taken as UTC.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	for _, layout := range naiveLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("time: unrecognised timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
