package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statify/internal/services"
	"github.com/desertthunder/statify/internal/session"
	"github.com/desertthunder/statify/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// TokenRefresher is the slice of the OAuth wrapper the accessor needs.
// Implemented by [services.SpotifyAuth].
type TokenRefresher interface {
	IsExpired(tok *oauth2.Token) bool
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// ClientAccessor turns a session token into a resource-API client whose
// access token is guaranteed non-expired, refreshing and re-persisting lazily
// when needed. There is no background refresh scheduler; every authenticated
// request passes through here.
type ClientAccessor struct {
	sessions *session.Manager
	auth     TokenRefresher
	locks    *session.KeyedMutex
	limiter  *rate.Limiter
	factory  func(accessToken string) services.Client
	logger   *log.Logger
}

// AccessorOpts contains dependencies for creating a [ClientAccessor].
type AccessorOpts struct {
	Sessions *session.Manager
	Auth     TokenRefresher
	Limiter  *rate.Limiter
	Logger   *log.Logger
	// Factory builds the resource client from an access token; defaults to
	// [services.NewSpotifyService]. Tests substitute doubles here.
	Factory func(accessToken string) services.Client
}

// NewClientAccessor creates a [ClientAccessor].
func NewClientAccessor(opts AccessorOpts) *ClientAccessor {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	a := &ClientAccessor{
		sessions: opts.Sessions,
		auth:     opts.Auth,
		locks:    session.NewKeyedMutex(),
		limiter:  opts.Limiter,
		logger:   opts.Logger,
	}

	if opts.Factory != nil {
		a.factory = opts.Factory
	} else {
		a.factory = func(accessToken string) services.Client {
			return services.NewSpotifyService(accessToken, opts.Limiter)
		}
	}

	return a
}

// Client loads the session behind token and returns a ready resource client
// alongside the session payload.
//
// When the access token sits within the refresh margin of expiry, the
// check-refresh-persist sequence runs under a per-session mutex: contending
// requests in this process refresh once, not once each. Other processes can
// still interleave; the store write is last-writer-wins and both writers hold
// tokens the provider considers valid, so the overlap costs an extra refresh,
// not correctness.
//
// A rejected refresh token degrades to [shared.ErrSessionExpired] with
// nothing persisted. Store or provider outages pass through unchanged.
func (a *ClientAccessor) Client(ctx context.Context, token string) (services.Client, *session.Session, error) {
	sess, err := a.sessions.Load(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if a.auth.IsExpired(sess.TokenInfo.OAuth()) {
		sess, err = a.refresh(ctx, token)
		if err != nil {
			return nil, nil, err
		}
	}

	return a.factory(sess.TokenInfo.AccessToken), sess, nil
}

// refresh re-checks expiry under the session's lock and, if still stale,
// replaces token_info and re-persists with a renewed TTL.
func (a *ClientAccessor) refresh(ctx context.Context, token string) (*session.Session, error) {
	a.locks.Lock(token)
	defer a.locks.Unlock(token)

	// A request that held the lock first may have refreshed already; reload
	// and re-check before spending a refresh token use.
	sess, err := a.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}

	if !a.auth.IsExpired(sess.TokenInfo.OAuth()) {
		return sess, nil
	}

	// Detach from request cancellation: an abandoned HTTP client must not
	// leave the store holding a half-updated session.
	rctx := context.WithoutCancel(ctx)

	fresh, err := a.auth.Refresh(rctx, sess.TokenInfo.OAuth())
	if err != nil {
		if errors.Is(err, shared.ErrRefreshFailed) {
			a.logger.Info("refresh rejected, degrading session", "user_id", sess.UserInfo.ID)
			return nil, fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
		}
		return nil, err
	}

	scope := sess.TokenInfo.Scope
	sess.TokenInfo = session.TokenFromOAuth(fresh)
	if sess.TokenInfo.Scope == "" {
		sess.TokenInfo.Scope = scope
	}

	if err := a.sessions.Save(rctx, sess); err != nil {
		return nil, err
	}

	a.logger.Debug("access token refreshed", "user_id", sess.UserInfo.ID, "expires_at", sess.TokenInfo.ExpiresAt)
	return sess, nil
}
