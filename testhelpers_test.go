package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var testUser = types.User{ID: 3, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", IsActive: true}

// fakeBackend is an in-memory notes service. Password "pw" signs in; once
// expire is called every authenticated endpoint answers 401.
type fakeBackend struct {
	mu       sync.Mutex
	notes    map[int64]types.Note
	nextID   int64
	expired  bool
	calls    map[string]int
	listHold chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{notes: map[int64]types.Note{}, nextID: 1, calls: map[string]int{}}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", b.login)
	mux.HandleFunc("POST /api/users/register", b.register)
	mux.HandleFunc("POST /api/users/logout", b.authed(b.logout))
	mux.HandleFunc("GET /api/users/me", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, testUser)
	}))
	mux.HandleFunc("POST /api/users/refresh", b.authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, types.TokenResponse{AccessToken: "tok", RefreshToken: "ref", TokenType: "bearer", User: testUser})
	}))
	mux.HandleFunc("GET /api/notes/{$}", b.authed(b.list))
	mux.HandleFunc("POST /api/notes/{$}", b.authed(b.create))
	mux.HandleFunc("GET /api/notes/{id}", b.authed(b.get))
	mux.HandleFunc("PUT /api/notes/{id}", b.authed(b.update))
	mux.HandleFunc("DELETE /api/notes/{id}", b.authed(b.remove))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[call]
}

func (b *fakeBackend) expire() {
	b.mu.Lock()
	b.expired = true
	b.mu.Unlock()
}

func (b *fakeBackend) seed(url string) types.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(url)
}

func (b *fakeBackend) addLocked(url string) types.Note {
	now := types.Time{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	title := "video " + strconv.FormatInt(b.nextID, 10)
	n := types.Note{ID: b.nextID, UserID: testUser.ID, SourceURL: url, Title: &title, CreatedAt: now, UpdatedAt: now}
	b.notes[n.ID] = n
	b.nextID++
	return n
}

func (b *fakeBackend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("access_token")
		b.mu.Lock()
		ok := err == nil && c.Value == "tok" && !b.expired
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		h(w, r)
	}
}

func (b *fakeBackend) signIn(w http.ResponseWriter) {
	b.mu.Lock()
	b.expired = false
	b.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "tok", Path: "/"})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in types.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Password != "pw" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	b.signIn(w)
	writeJSON(w, http.StatusOK, types.LoginResponse{Message: "Login successful", AccessToken: "tok", TokenType: "bearer", User: testUser})
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var in types.RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	u := testUser
	u.FirstName, u.LastName, u.Email = in.FirstName, in.LastName, in.Email
	b.signIn(w)
	writeJSON(w, http.StatusCreated, u)
}

func (b *fakeBackend) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Logout successful"})
}

func (b *fakeBackend) list(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	hold := b.listHold
	b.mu.Unlock()
	if hold != nil {
		<-hold
	}
	b.mu.Lock()
	resp := types.ListNotesResponse{Notes: []types.Note{}, CurrentPage: 1, PageSize: 10}
	for id := int64(1); id < b.nextID; id++ {
		if n, ok := b.notes[id]; ok {
			resp.Notes = append(resp.Notes, n)
		}
	}
	b.mu.Unlock()
	resp.TotalNotes = len(resp.Notes)
	resp.TotalPages = 1
	writeJSON(w, http.StatusOK, resp)
}

func (b *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var in types.CreateNoteRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	writeJSON(w, http.StatusCreated, b.seed(in.SourceURL))
}

func (b *fakeBackend) lookup(w http.ResponseWriter, r *http.Request) (types.Note, bool) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	b.mu.Lock()
	n, ok := b.notes[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Note not found"})
	}
	return n, ok
}

func (b *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	if n, ok := b.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, n)
	}
}

func (b *fakeBackend) update(w http.ResponseWriter, r *http.Request) {
	n, ok := b.lookup(w, r)
	if !ok {
		return
	}
	var in types.UpdateNoteRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Title != nil {
		n.Title = in.Title
	}
	if in.Summary != nil {
		n.Summary = in.Summary
	}
	b.mu.Lock()
	b.notes[n.ID] = n
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, n)
}

func (b *fakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	n, ok := b.lookup(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	delete(b.notes, n.ID)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Note deleted successfully"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// redirectLog records sign-in redirects.
type redirectLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *redirectLog) record(path string) {
	l.mu.Lock()
	l.paths = append(l.paths, path)
	l.mu.Unlock()
}

func (l *redirectLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newTestClient(t *testing.T, b *fakeBackend, opts ...Option) (*Client, *redirectLog) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	redirects := &redirectLog{}
	base := []Option{WithLogger(zerolog.Nop()), WithSignInRedirect(redirects.record), WithSweepInterval(0)}
	c, err := New(srv.URL, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, redirects
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
