package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/statify/internal/shared"
	"golang.org/x/oauth2"
)

func newTestAuth(t *testing.T) *SpotifyAuth {
	t.Helper()
	a, err := NewSpotifyAuth(map[string]string{
		"client_id":     "test-client",
		"client_secret": "test-secret",
		"redirect_uri":  "http://localhost:8080/callback",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return a
}

// tokenEndpoint stands in for the provider's token URL with a canned response.
func tokenEndpoint(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewSpotifyAuth(t *testing.T) {
	t.Run("Valid Credentials", func(t *testing.T) {
		a := newTestAuth(t)

		if a.config.ClientID != "test-client" {
			t.Errorf("expected client id set, got %q", a.config.ClientID)
		}
		if a.margin != defaultRefreshMargin {
			t.Errorf("expected default margin, got %v", a.margin)
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		_, err := NewSpotifyAuth(map[string]string{"client_secret": "s"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Client Secret", func(t *testing.T) {
		_, err := NewSpotifyAuth(map[string]string{"client_id": "c"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Default Redirect URI", func(t *testing.T) {
		a, err := NewSpotifyAuth(map[string]string{"client_id": "c", "client_secret": "s"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if a.config.RedirectURL != "http://localhost:8080/callback" {
			t.Errorf("unexpected redirect URI %q", a.config.RedirectURL)
		}
	})
}

func TestAuthCodeURL(t *testing.T) {
	a := newTestAuth(t)

	raw := a.AuthCodeURL("csrf-state")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse authorize URL: %v", err)
	}

	q := u.Query()
	checks := map[string]string{
		"client_id":    "test-client",
		"state":        "csrf-state",
		"redirect_uri": "http://localhost:8080/callback",
		"access_type":  "offline",
		"show_dialog":  "true",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("expected %s=%q, got %q", key, want, got)
		}
	}

	if !strings.Contains(q.Get("scope"), "user-top-read") {
		t.Errorf("expected scopes in authorize URL, got %q", q.Get("scope"))
	}
	if u.Host != "accounts.spotify.com" {
		t.Errorf("expected provider host, got %q", u.Host)
	}
}

func TestIsExpired(t *testing.T) {
	a := newTestAuth(t)
	base := time.Now()
	a.now = func() time.Time { return base }

	t.Run("Zero Expiry Never Expires", func(t *testing.T) {
		if a.IsExpired(&oauth2.Token{}) {
			t.Error("expected token without expiry to stay valid")
		}
	})

	t.Run("Outside Margin", func(t *testing.T) {
		tok := &oauth2.Token{Expiry: base.Add(5 * time.Minute)}
		if a.IsExpired(tok) {
			t.Error("expected token well before expiry to be valid")
		}
	})

	t.Run("Inside Margin", func(t *testing.T) {
		tok := &oauth2.Token{Expiry: base.Add(30 * time.Second)}
		if !a.IsExpired(tok) {
			t.Error("expected token inside the safety margin to read expired")
		}
	})

	t.Run("Past Expiry", func(t *testing.T) {
		tok := &oauth2.Token{Expiry: base.Add(-time.Minute)}
		if !a.IsExpired(tok) {
			t.Error("expected stale token to read expired")
		}
	})

	t.Run("Custom Margin", func(t *testing.T) {
		a.SetRefreshMargin(10 * time.Minute)
		defer a.SetRefreshMargin(defaultRefreshMargin)

		tok := &oauth2.Token{Expiry: base.Add(5 * time.Minute)}
		if !a.IsExpired(tok) {
			t.Error("expected widened margin to catch the token")
		}
	})
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusOK,
			`{"access_token":"fresh-access","token_type":"Bearer","refresh_token":"fresh-refresh","expires_in":3600,"scope":"user-read-private"}`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"}

		tok, err := a.Exchange(ctx, "auth-code")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if tok.AccessToken != "fresh-access" {
			t.Errorf("expected access token, got %q", tok.AccessToken)
		}
		if tok.RefreshToken != "fresh-refresh" {
			t.Errorf("expected refresh token, got %q", tok.RefreshToken)
		}
		if tok.Expiry.IsZero() {
			t.Error("expected expiry derived from expires_in")
		}
	})

	t.Run("Empty Code", func(t *testing.T) {
		a := newTestAuth(t)

		_, err := a.Exchange(ctx, "")
		if !errors.Is(err, shared.ErrAuthExchange) {
			t.Errorf("expected ErrAuthExchange, got %v", err)
		}
	})

	t.Run("Provider Rejection", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		_, err := a.Exchange(ctx, "used-code")
		if !errors.Is(err, shared.ErrAuthExchange) {
			t.Errorf("expected ErrAuthExchange, got %v", err)
		}
	})

	t.Run("Provider Outage", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusInternalServerError, `oops`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		_, err := a.Exchange(ctx, "auth-code")
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
		if errors.Is(err, shared.ErrAuthExchange) {
			t.Error("outage must not read as a rejected exchange")
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusOK,
			`{"access_token":"rotated-access","token_type":"Bearer","refresh_token":"rotated-refresh","expires_in":3600}`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		fresh, err := a.Refresh(ctx, &oauth2.Token{RefreshToken: "old-refresh"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if fresh.AccessToken != "rotated-access" {
			t.Errorf("expected new access token, got %q", fresh.AccessToken)
		}
		if fresh.RefreshToken != "rotated-refresh" {
			t.Errorf("expected rotated refresh token, got %q", fresh.RefreshToken)
		}
	})

	t.Run("Refresh Token Carried Forward", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusOK,
			`{"access_token":"rotated-access","token_type":"Bearer","expires_in":3600}`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		fresh, err := a.Refresh(ctx, &oauth2.Token{RefreshToken: "old-refresh"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if fresh.RefreshToken != "old-refresh" {
			t.Errorf("expected previous refresh token kept, got %q", fresh.RefreshToken)
		}
	})

	t.Run("No Refresh Token", func(t *testing.T) {
		a := newTestAuth(t)

		_, err := a.Refresh(ctx, &oauth2.Token{AccessToken: "access"})
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Revoked Refresh Token", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		_, err := a.Refresh(ctx, &oauth2.Token{RefreshToken: "revoked"})
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Provider Outage", func(t *testing.T) {
		server := tokenEndpoint(t, http.StatusServiceUnavailable, `down`)

		a := newTestAuth(t)
		a.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

		_, err := a.Refresh(ctx, &oauth2.Token{RefreshToken: "old-refresh"})
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
		if errors.Is(err, shared.ErrRefreshFailed) {
			t.Error("outage must not kill the session")
		}
	})
}
