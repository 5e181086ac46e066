// OAuth2 authorization-code flow wrapper for Spotify.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/statify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// Margin subtracted from token expiry so a token is refreshed before the
	// provider would actually reject it mid-request.
	defaultRefreshMargin = 60 * time.Second

	// Timeout on calls to the provider's token endpoint.
	providerTimeout = 10 * time.Second
)

// defaultScopes covers profile reads plus the library/listening data the
// /me passthroughs serve.
var defaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"user-top-read",
}

// SpotifyAuth wraps a per-instance [oauth2.Config] for the authorization-code
// flow: authorize URL generation, code exchange, expiry checks, and refresh.
//
// Each instance owns its config; nothing here is package-level mutable state,
// so substitute configs slot in cleanly for tests.
type SpotifyAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time
}

// NewSpotifyAuth creates a [SpotifyAuth] from the given OAuth2 credentials.
func NewSpotifyAuth(credentials map[string]string) (*SpotifyAuth, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       defaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyAuth{
		config:     config,
		httpClient: &http.Client{Timeout: providerTimeout},
		margin:     defaultRefreshMargin,
		now:        time.Now,
	}, nil
}

// SetRefreshMargin overrides the expiry safety margin.
func (a *SpotifyAuth) SetRefreshMargin(margin time.Duration) {
	if margin > 0 {
		a.margin = margin
	}
}

// AuthCodeURL returns the provider authorize URL embedding client id, scopes,
// redirect URI, and the given CSRF state parameter.
func (a *SpotifyAuth) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
}

// Exchange trades a one-time authorization code for a token pair.
//
// The exchange always goes to the provider; no cached token is ever
// substituted for a freshly issued one. Provider rejections wrap
// [shared.ErrAuthExchange]; network failures and timeouts wrap
// [shared.ErrProviderUnavailable] instead, since retrying a login is
// pointless when the provider is down.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthExchange)
	}

	tok, err := a.config.Exchange(a.clientContext(ctx), code)
	if err != nil {
		return nil, a.classify(err, shared.ErrAuthExchange, "code exchange")
	}

	return tok, nil
}

// IsExpired reports whether the access token is within the safety margin of
// its expiry. Tokens without an expiry never report expired.
func (a *SpotifyAuth) IsExpired(tok *oauth2.Token) bool {
	if tok.Expiry.IsZero() {
		return false
	}
	return !a.now().Add(a.margin).Before(tok.Expiry)
}

// Refresh obtains a new access token using the refresh token.
//
// A provider rejection (revoked or invalid refresh token) wraps
// [shared.ErrRefreshFailed]: the session is dead and must be treated as
// expired, not retried. When the provider omits a rotated refresh token the
// previous one is carried forward.
func (a *SpotifyAuth) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	src := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: tok.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return nil, a.classify(err, shared.ErrRefreshFailed, "refresh")
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	return fresh, nil
}

// clientContext injects the timeout-bound HTTP client for oauth2 transport.
func (a *SpotifyAuth) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// classify separates hard provider rejections (4xx on the token endpoint)
// from transient transport failures. Only the former wrap the terminal
// sentinel; everything else is [shared.ErrProviderUnavailable] and may be
// retried by the caller.
func (a *SpotifyAuth) classify(err error, terminal error, op string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return fmt.Errorf("%w: %s rejected: %v", terminal, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrProviderUnavailable, op, err)
}
