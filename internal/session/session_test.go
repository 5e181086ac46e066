package session

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestCodec(t *testing.T) {
	t.Run("Round Trip Preserves Every Field", func(t *testing.T) {
		expiry := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		created := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

		original := &Session{
			Token: "opaque-token",
			TokenInfo: TokenInfo{
				AccessToken:  "access-abc",
				RefreshToken: "refresh-xyz",
				ExpiresAt:    expiry,
				Scope:        "user-read-private user-read-email",
			},
			UserInfo: UserInfo{
				ID:          "spotify_user",
				DisplayName: "Test User",
				Email:       "user@example.com",
			},
			CreatedAt: created,
		}

		data, err := Encode(original)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if decoded.TokenInfo != original.TokenInfo {
			t.Errorf("token info changed: got %+v, want %+v", decoded.TokenInfo, original.TokenInfo)
		}
		if decoded.UserInfo != original.UserInfo {
			t.Errorf("user info changed: got %+v, want %+v", decoded.UserInfo, original.UserInfo)
		}
		if !decoded.CreatedAt.Equal(original.CreatedAt) {
			t.Errorf("created_at changed: got %v, want %v", decoded.CreatedAt, original.CreatedAt)
		}
	})

	t.Run("Token Stays Out Of The Payload", func(t *testing.T) {
		data, err := Encode(&Session{Token: "secret-session-token"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if strings.Contains(string(data), "secret-session-token") {
			t.Error("session token leaked into encoded payload")
		}
	})

	t.Run("Decode Rejects Garbage", func(t *testing.T) {
		if _, err := Decode([]byte("not json")); err == nil {
			t.Error("expected error decoding invalid payload")
		}
	})
}

func TestTokenConversion(t *testing.T) {
	t.Run("From OAuth Token", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour)
		tok := (&oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       expiry,
		}).WithExtra(map[string]any{"scope": "user-top-read"})

		info := TokenFromOAuth(tok)

		if info.AccessToken != "access" || info.RefreshToken != "refresh" {
			t.Errorf("unexpected token pair: %+v", info)
		}
		if !info.ExpiresAt.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, info.ExpiresAt)
		}
		if info.Scope != "user-top-read" {
			t.Errorf("expected scope from extras, got %q", info.Scope)
		}
	})

	t.Run("Missing Scope Extra", func(t *testing.T) {
		info := TokenFromOAuth(&oauth2.Token{AccessToken: "access"})

		if info.Scope != "" {
			t.Errorf("expected empty scope, got %q", info.Scope)
		}
	})

	t.Run("Back To OAuth Token", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour)
		info := TokenInfo{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: expiry}

		tok := info.OAuth()

		if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
			t.Errorf("unexpected token pair: %+v", tok)
		}
		if tok.TokenType != "Bearer" {
			t.Errorf("expected Bearer token type, got %q", tok.TokenType)
		}
		if !tok.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
		}
	})
}
