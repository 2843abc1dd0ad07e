package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

const userJSON = `{"id":3,"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","is_active":true,"is_verified":false,"created_at":"2024-01-01T00:00:00","updated_at":"2024-01-01T00:00:00"}`

func TestLogin_DecodesEmbeddedUser(t *testing.T) {
	t.Parallel()
	f := &fakeRequester{reply: `{"message":"Login successful","access_token":"x","token_type":"bearer","user":` + userJSON + `}`}
	u, err := Login(context.Background(), f, types.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Ada Lovelace", u.FullName())

	c := f.last()
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/api/users/login", c.path)
}

func TestLogin_ValidatesBeforeSending(t *testing.T) {
	t.Parallel()
	f := &fakeRequester{}
	_, err := Login(context.Background(), f, types.LoginRequest{Email: "", Password: "pw"})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.Empty(t, f.calls)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := &fakeRequester{reply: userJSON}
	u, err := Register(context.Background(), f, types.RegisterRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "/api/users/register", f.last().path)
}

func TestMeLogoutRefresh(t *testing.T) {
	t.Parallel()
	f := &fakeRequester{reply: userJSON}
	u, err := Me(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, http.MethodGet, f.last().method)
	assert.Equal(t, "/api/users/me", f.last().path)

	f.reply = `{"message":"Logout successful"}`
	require.NoError(t, Logout(context.Background(), f))
	assert.Equal(t, "/api/users/logout", f.last().path)
	assert.Equal(t, http.MethodPost, f.last().method)

	f.reply = `{"access_token":"a","refresh_token":"r","token_type":"bearer","user":` + userJSON + `}`
	u, err = Refresh(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "/api/users/refresh", f.last().path)
}

func TestUsers_PropagateErrors(t *testing.T) {
	t.Parallel()
	users := Users{R: errRequester{}}
	_, err := users.Me(context.Background())
	assert.Error(t, err)
	_, err = users.Login(context.Background(), types.LoginRequest{Email: "a", Password: "b"})
	assert.Error(t, err)
	assert.Error(t, users.Logout(context.Background()))
	_, err = users.Refresh(context.Background())
	assert.Error(t, err)
}

func TestUsers_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeRequester{reply: userJSON}
	_, err := Me(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestPathClassification(t *testing.T) {
	t.Parallel()
	assert.True(t, IsCredentialPath("/api/users/login"))
	assert.True(t, IsCredentialPath("/api/users/register"))
	assert.False(t, IsCredentialPath("/api/users/me"))
	assert.True(t, IsIdentityPath("/api/users/me"))
	assert.False(t, IsIdentityPath("/api/notes/"))
}
