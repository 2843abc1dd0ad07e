package api

import (
	"context"
	"net/http"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// Register creates an account; the backend also starts a session cookie.
func Register(ctx context.Context, r Requester, req types.RegisterRequest) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}
	var user types.User
	if err := r.Do(ctx, http.MethodPost, pathRegister, nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and returns the identity embedded in the login response.
func Login(ctx context.Context, r Requester, req types.LoginRequest) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := types.ValidateCredentials(req.Email, req.Password); err != nil {
		return nil, err
	}
	var lr types.LoginResponse
	if err := r.Do(ctx, http.MethodPost, pathLogin, nil, req, &lr); err != nil {
		return nil, err
	}
	return &lr.User, nil
}

// Logout clears the session cookie server-side.
func Logout(ctx context.Context, r Requester) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var mr types.MessageResponse
	return r.Do(ctx, http.MethodPost, pathLogout, nil, nil, &mr)
}

// Me returns the identity bound to the current session cookie.
func Me(ctx context.Context, r Requester) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user types.User
	if err := r.Do(ctx, http.MethodGet, pathMe, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh rotates the session token and returns the refreshed identity.
func Refresh(ctx context.Context, r Requester) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tr types.TokenResponse
	if err := r.Do(ctx, http.MethodPost, pathRefresh, nil, nil, &tr); err != nil {
		return nil, err
	}
	return &tr.User, nil
}

// Users binds the user endpoints to a Requester.
type Users struct{ R Requester }

func (u Users) Register(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	return Register(ctx, u.R, req)
}

func (u Users) Login(ctx context.Context, req types.LoginRequest) (*types.User, error) {
	return Login(ctx, u.R, req)
}

func (u Users) Logout(ctx context.Context) error { return Logout(ctx, u.R) }

func (u Users) Me(ctx context.Context) (*types.User, error) { return Me(ctx, u.R) }

func (u Users) Refresh(ctx context.Context) (*types.User, error) { return Refresh(ctx, u.R) }
