package types

import (
	"net/url"
	"strconv"
)

// ------------------------------
// Request Types
// ------------------------------

// RegisterRequest holds parameters for a new account.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest holds credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateNoteRequest asks the backend to process a video link into a note.
type CreateNoteRequest struct {
	SourceURL string `json:"youtube_url"`
}

// UpdateNoteRequest carries the fields to change; nil fields are left alone.
type UpdateNoteRequest struct {
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
}

// ListNotesParams filters the note listing. Zero values are "not provided"
// and are left out of the query string.
type ListNotesParams struct {
	CurrentPage int
	PageSize    int
	Search      string
}

// MaxPageSize mirrors the backend's upper bound for page_size.
const MaxPageSize = 100

// Values renders only the parameters that were provided.
func (p ListNotesParams) Values() url.Values {
	v := url.Values{}
	if p.CurrentPage > 0 {
		v.Set("current_page", strconv.Itoa(p.CurrentPage))
	}
	if p.PageSize > 0 {
		size := p.PageSize
		if size > MaxPageSize {
			size = MaxPageSize
		}
		v.Set("page_size", strconv.Itoa(size))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}
