package types

// ------------------------------
// Response Types
// ------------------------------

// LoginResponse is the body of POST /api/users/login.
type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// TokenResponse is the body of POST /api/users/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// MessageResponse is returned by logout and delete endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ListNotesResponse wraps the list endpoint response.
type ListNotesResponse struct {
	Notes       []Note `json:"notes"`
	TotalNotes  int    `json:"total_notes"`
	TotalPages  int    `json:"total_pages"`
	CurrentPage int    `json:"current_page"`
	PageSize    int    `json:"page_size"`
}

// Page converts the wire form into a NotePage.
func (r ListNotesResponse) Page() *NotePage {
	items := r.Notes
	if items == nil {
		items = []Note{}
	}
	return &NotePage{
		Items:       items,
		TotalItems:  r.TotalNotes,
		TotalPages:  r.TotalPages,
		CurrentPage: r.CurrentPage,
		PageSize:    r.PageSize,
	}
}
