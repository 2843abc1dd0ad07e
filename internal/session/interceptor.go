package session

import (
	"net/http"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/api"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/transport"
)

// Interceptor returns the transport hook that turns a 401 on any request into
// session loss: the state becomes anonymous, the cached identity is dropped
// and the sign-in redirect fires.
//
// Exceptions:
//   - login and register, where 401 means bad credentials;
//   - requests issued before the latest login, logout or refresh;
//   - the identity probe while not signed in, where 401 is the expected
//     "anonymous" answer and no redirect is wanted.
func (c *Controller) Interceptor() transport.Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return transport.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			epoch := c.currentEpoch()
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			path := transport.PathFromContext(req.Context())
			if path == "" {
				path = req.URL.Path
			}
			if !api.IsCredentialPath(path) {
				c.sessionLost(epoch, path)
			}
			return resp, nil
		})
	}
}

func (c *Controller) sessionLost(epoch uint64, path string) {
	c.mu.Lock()
	wasAuthenticated := c.state.Status == StatusAuthenticated
	c.mu.Unlock()

	if api.IsIdentityPath(path) && !wasAuthenticated {
		return
	}

	if !c.dropIdentity(epoch) {
		c.log.Debug().Str("path", path).Msg("ignoring 401 from a previous session")
		return
	}
	forcedLossesTotal.Inc()
	c.log.Info().Str("path", path).Msg("session lost, sign-in required")
	if c.redirect != nil {
		c.redirect(path)
	}
}
