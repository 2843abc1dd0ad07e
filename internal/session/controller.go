package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/types"
)

// AuthAPI is the subset of the users service the controller drives.
// api.Users satisfies it.
type AuthAPI interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.User, error)
	Login(ctx context.Context, req types.LoginRequest) (*types.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*types.User, error)
	Refresh(ctx context.Context) (*types.User, error)
}

// Config wires a Controller.
type Config struct {
	Executor *query.Executor
	API      AuthAPI
	// Policy is the identity freshness window.
	Policy query.Policy
	// StrictProbe keeps transient probe failures from signing the user out.
	StrictProbe bool
	// SignInRedirect is called with the API path of a request that came back
	// 401 and cost the session. Nil disables redirects.
	SignInRedirect func(path string)
	Logger         zerolog.Logger
}

// Controller exposes the auth flows on top of the Resolver state machine.
// Auth mutations are serialized.
type Controller struct {
	*Resolver

	api      AuthAPI
	exec     *query.Executor
	policy   query.Policy
	redirect func(string)
	log      zerolog.Logger

	authMu sync.Mutex
}

// New returns a controller in the unknown state. Call Start to run the first
// probe.
func New(cfg Config) *Controller {
	log := cfg.Logger.With().Str("component", "session").Logger()
	return &Controller{
		Resolver: newResolver(cfg.Executor, cfg.API.Me, cfg.Policy, cfg.StrictProbe, log),
		api:      cfg.API,
		exec:     cfg.Executor,
		policy:   cfg.Policy,
		redirect: cfg.SignInRedirect,
		log:      log,
	}
}

// Start runs the initial probe.
func (c *Controller) Start(ctx context.Context) (Session, error) {
	return c.Probe(ctx, TriggerMount)
}

// Focus re-probes after the application regains focus.
func (c *Controller) Focus(ctx context.Context) (Session, error) {
	return c.Probe(ctx, TriggerFocus)
}

// Revalidate re-probes on explicit request.
func (c *Controller) Revalidate(ctx context.Context) (Session, error) {
	return c.Probe(ctx, TriggerRevalidate)
}

// Login signs in and caches the returned identity.
func (c *Controller) Login(ctx context.Context, req types.LoginRequest) (*types.User, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return query.Mutate(ctx, c.exec, signIn(c, "login", c.api.Login), req)
}

// Register creates an account and treats the new user as signed in.
func (c *Controller) Register(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return query.Mutate(ctx, c.exec, signIn(c, "register", c.api.Register), req)
}

// Refresh renews the session token and caches the refreshed identity.
func (c *Controller) Refresh(ctx context.Context) (*types.User, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	refresh := func(ctx context.Context, _ struct{}) (*types.User, error) { return c.api.Refresh(ctx) }
	return query.Mutate(ctx, c.exec, signIn(c, "refresh", refresh), struct{}{})
}

// Logout ends the session and empties the whole cache so nothing fetched for
// this user survives into the next session.
func (c *Controller) Logout(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	_, err := query.Mutate(ctx, c.exec, query.Mutation[struct{}, struct{}]{
		Name: "logout",
		Do: func(ctx context.Context, _ struct{}) (struct{}, error) {
			if err := c.api.Logout(ctx); err != nil {
				return struct{}{}, err
			}
			c.set(Session{Status: StatusAnonymous}, true)
			return struct{}{}, nil
		},
		Effects: func(struct{}, struct{}) []query.Effect {
			return []query.Effect{query.RemoveEntry(IdentityKey), query.ClearAll()}
		},
	}, struct{}{})
	return err
}

// signIn builds a mutation that authenticates with the identity returned by
// do. The session epoch advances and the identity entry is fenced before the
// identity is cached, so 401s and probe results from requests issued under
// the previous session are ignored.
func signIn[In any](c *Controller, name string, do func(context.Context, In) (*types.User, error)) query.Mutation[In, *types.User] {
	return query.Mutation[In, *types.User]{
		Name: name,
		Do: func(ctx context.Context, in In) (*types.User, error) {
			u, err := do(ctx, in)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, fmt.Errorf("%s: response carried no user", name)
			}
			c.set(Session{Identity: u, Status: StatusAuthenticated}, true)
			return u, nil
		},
		Effects: func(_ In, u *types.User) []query.Effect {
			return []query.Effect{query.SetEntry(IdentityKey, u, c.policy)}
		},
	}
}
