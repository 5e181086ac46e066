package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statify/internal/shared"
	"github.com/desertthunder/statify/internal/store"
	"golang.org/x/oauth2"
)

const (
	sessionKeyPrefix = "session:"
	loginKeyPrefix   = "login:"
)

// Exchanger produces authorize URLs and trades authorization codes for tokens.
// Implemented by [services.SpotifyAuth].
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ProfileFetcher retrieves the provider profile for a freshly issued access token.
type ProfileFetcher interface {
	Profile(ctx context.Context, accessToken string) (UserInfo, error)
}

// ManagerOpts contains dependencies and settings for creating a [Manager].
type ManagerOpts struct {
	Store          store.Store
	Auth           Exchanger
	Profiles       ProfileFetcher
	TTL            time.Duration
	LoginTTL       time.Duration
	RevokeOnLogout bool
	Logger         *log.Logger
}

// Manager issues opaque session tokens, binds them to token and profile data
// in the store with a TTL, and retrieves them on each request.
//
// The session token is the sole store key. There is deliberately no index
// from provider user id to session, so one account can hold any number of
// concurrent sessions.
type Manager struct {
	store          store.Store
	auth           Exchanger
	profiles       ProfileFetcher
	logins         *KeyedMutex
	ttl            time.Duration
	loginTTL       time.Duration
	revokeOnLogout bool
	logger         *log.Logger
}

// NewManager creates a [Manager], applying defaults for unset durations
// (24h sessions, 10m pending logins).
func NewManager(opts ManagerOpts) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.LoginTTL <= 0 {
		opts.LoginTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Manager{
		store:          opts.Store,
		auth:           opts.Auth,
		profiles:       opts.Profiles,
		logins:         NewKeyedMutex(),
		ttl:            opts.TTL,
		loginTTL:       opts.LoginTTL,
		revokeOnLogout: opts.RevokeOnLogout,
		logger:         opts.Logger,
	}
}

// TTL returns the session time-to-live.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// StartLogin generates a state token, records it as a pending login with a
// short TTL, and returns the provider authorize URL. No session exists yet.
func (m *Manager) StartLogin(ctx context.Context) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	record, err := json.Marshal(pendingLogin{CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to encode pending login: %w", err)
	}

	if err := m.store.Set(ctx, loginKeyPrefix+state, record, m.loginTTL); err != nil {
		return "", err
	}

	m.logger.Debug("pending login recorded", "state", state)
	return m.auth.AuthCodeURL(state), nil
}

// CompleteCallback validates and consumes the pending-login state, exchanges
// the authorization code, fetches the user profile, and persists a new
// session under a freshly minted token.
//
// A missing or unknown state fails with [shared.ErrStateMismatch]. Exchange
// or profile failures fail with [shared.ErrAuthExchange] and are never
// retried: authorization codes are single-use.
func (m *Manager) CompleteCallback(ctx context.Context, state, code string) (*Session, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: no state parameter", shared.ErrStateMismatch)
	}

	if err := m.consumeState(ctx, state); err != nil {
		return nil, err
	}

	tok, err := m.auth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider returned no access token", shared.ErrAuthExchange)
	}

	user, err := m.profiles.Profile(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: profile fetch: %v", shared.ErrAuthExchange, err)
	}

	sess := &Session{
		Token:     shared.GenerateID(),
		TokenInfo: TokenFromOAuth(tok),
		UserInfo:  user,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.Info("session created", "user_id", user.ID)
	return sess, nil
}

// consumeState validates the pending-login record and removes it. The
// per-state lock makes check-and-delete a critical section, so concurrent
// callbacks presenting the same state pass validation at most once in this
// process.
func (m *Manager) consumeState(ctx context.Context, state string) error {
	m.logins.Lock(state)
	defer m.logins.Unlock(state)

	if _, err := m.store.Get(ctx, loginKeyPrefix+state); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: unknown or expired state", shared.ErrStateMismatch)
		}
		return err
	}

	return m.store.Delete(ctx, loginKeyPrefix+state)
}

// Load retrieves the session bound to token.
//
// An empty token fails with [shared.ErrNoSession]; an absent store entry
// fails with [shared.ErrSessionExpired]. TTL expiry and logout are
// indistinguishable here, on purpose. Store outages pass through unchanged
// so callers never mistake infrastructure failure for an expired login.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, shared.ErrNoSession
	}

	data, err := m.store.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, shared.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}

	sess, err := Decode(data)
	if err != nil {
		m.logger.Warn("discarding undecodable session payload", "error", err)
		return nil, shared.ErrSessionExpired
	}

	sess.Token = token
	return sess, nil
}

// Save persists the session under its token with a renewed TTL. Used both at
// creation and after a token refresh replaces token_info in place.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, sessionKeyPrefix+sess.Token, data, m.ttl)
}

// Logout ends a session. The browser cookie is the caller's to clear; the
// store entry is deleted eagerly only when the revoke-on-logout policy is
// set, and otherwise lingers inertly until its TTL elapses.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" || !m.revokeOnLogout {
		return nil
	}
	return m.store.Delete(ctx, sessionKeyPrefix+token)
}

// pendingLogin is the record held under login:<state> between the authorize
// redirect and the provider callback.
type pendingLogin struct {
	CreatedAt time.Time `json:"created_at"`
}
