// package session implements server-side sessions binding opaque tokens to
// Spotify credentials and cached profile data.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// TokenInfo is the provider-issued token pair with its expiry and scope.
//
// The refresh token never leaves the server; only the opaque session token
// crosses into the browser cookie.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
}

// UserInfo is the minimal profile subset cached at login. The provider stays
// authoritative; this exists to spare a profile round trip on status checks.
type UserInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Session is one store entry, keyed by its opaque token.
type Session struct {
	Token     string    `json:"-"`
	TokenInfo TokenInfo `json:"token_info"`
	UserInfo  UserInfo  `json:"user_info"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenFromOAuth converts an [oauth2.Token] into a [TokenInfo].
func TokenFromOAuth(tok *oauth2.Token) TokenInfo {
	info := TokenInfo{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		info.Scope = scope
	}
	return info
}

// OAuth converts a [TokenInfo] back into an [oauth2.Token].
func (t TokenInfo) OAuth() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
		TokenType:    "Bearer",
	}
}

// Encode serializes a session payload for storage.
func Encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

// Decode deserializes a stored session payload.
//
// Decode(Encode(s)) preserves every field exactly; expiry timestamps and
// refresh tokens must survive the round trip for refresh decisions to hold.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
