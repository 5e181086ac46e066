package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/statify/internal/shared"
	tu "github.com/desertthunder/statify/internal/testing"
	"golang.org/x/time/rate"
)

// apiStub serves a canned Spotify API response and records the last request.
type apiStub struct {
	status  int
	body    string
	lastReq *http.Request
}

func (s *apiStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lastReq = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		w.Write([]byte(s.body))
	}
}

func newStubService(t *testing.T, stub *apiStub) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	svc := NewSpotifyService("test-access-token", nil)
	svc.baseURL = server.URL
	return svc
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		svc := NewSpotifyService("token", nil)
		if svc.Name() != "Spotify" {
			t.Errorf("expected Spotify, got %s", svc.Name())
		}
	})

	t.Run("UserProfile", func(t *testing.T) {
		stub := &apiStub{status: http.StatusOK, body: `{
			"id": "spotify_user",
			"display_name": "Test User",
			"email": "user@example.com",
			"country": "US",
			"product": "premium",
			"followers": {"total": 42}
		}`}
		svc := newStubService(t, stub)

		user, err := svc.UserProfile(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if user.ID != "spotify_user" || user.DisplayName != "Test User" {
			t.Errorf("unexpected profile: %+v", user)
		}
		if user.Followers.Total != 42 {
			t.Errorf("expected 42 followers, got %d", user.Followers.Total)
		}
		if stub.lastReq.URL.Path != "/me" {
			t.Errorf("expected /me, got %s", stub.lastReq.URL.Path)
		}
		if got := stub.lastReq.Header.Get("Authorization"); got != "Bearer test-access-token" {
			t.Errorf("expected bearer header, got %q", got)
		}
	})

	t.Run("UserPlaylists", func(t *testing.T) {
		stub := &apiStub{status: http.StatusOK, body: `{
			"items": [{"id": "pl1", "name": "Jams", "owner": {"id": "spotify_user"}, "tracks": {"total": 12}}],
			"total": 1, "limit": 20, "offset": 0
		}`}
		svc := newStubService(t, stub)

		playlists, err := svc.UserPlaylists(ctx, 0, 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(playlists.Items) != 1 || playlists.Items[0].Name != "Jams" {
			t.Errorf("unexpected playlists: %+v", playlists)
		}

		q := stub.lastReq.URL.Query()
		if q.Get("limit") != "20" {
			t.Errorf("expected default limit 20, got %q", q.Get("limit"))
		}
		if q.Get("offset") != "0" {
			t.Errorf("expected offset 0, got %q", q.Get("offset"))
		}
	})

	t.Run("TopTracks", func(t *testing.T) {
		stub := &apiStub{status: http.StatusOK, body: `{
			"items": [{
				"id": "t1", "name": "Song",
				"artists": [{"id": "a1", "name": "Artist"}],
				"album": {"id": "al1", "name": "Album", "images": [{"url": "https://img", "height": 300, "width": 300}]}
			}],
			"total": 1, "limit": 5, "offset": 0
		}`}
		svc := newStubService(t, stub)

		tracks, err := svc.TopTracks(ctx, 0, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks.Items) != 1 || tracks.Items[0].Artists[0].Name != "Artist" {
			t.Errorf("unexpected tracks: %+v", tracks)
		}

		q := stub.lastReq.URL.Query()
		if q.Get("limit") != "5" {
			t.Errorf("expected default limit 5, got %q", q.Get("limit"))
		}
		if q.Get("time_range") != "medium_term" {
			t.Errorf("expected default time range, got %q", q.Get("time_range"))
		}
		if stub.lastReq.URL.Path != "/me/top/tracks" {
			t.Errorf("expected /me/top/tracks, got %s", stub.lastReq.URL.Path)
		}
	})

	t.Run("TopTracks Caps Limit", func(t *testing.T) {
		stub := &apiStub{status: http.StatusOK, body: `{"items": []}`}
		svc := newStubService(t, stub)

		if _, err := svc.TopTracks(ctx, 500, "long_term"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		q := stub.lastReq.URL.Query()
		if q.Get("limit") != "50" {
			t.Errorf("expected capped limit 50, got %q", q.Get("limit"))
		}
		if q.Get("time_range") != "long_term" {
			t.Errorf("expected long_term, got %q", q.Get("time_range"))
		}
	})

	t.Run("Rejected Token", func(t *testing.T) {
		stub := &apiStub{status: http.StatusUnauthorized, body: `{"error": {"status": 401}}`}
		svc := newStubService(t, stub)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Provider Outage", func(t *testing.T) {
		stub := &apiStub{status: http.StatusBadGateway, body: `bad gateway`}
		svc := newStubService(t, stub)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("Other API Error", func(t *testing.T) {
		stub := &apiStub{status: http.StatusForbidden, body: `{"error": {"status": 403}}`}
		svc := newStubService(t, stub)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		svc := NewSpotifyService("token", nil)
		svc.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("Missing Access Token", func(t *testing.T) {
		svc := NewSpotifyService("", nil)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("Honors Rate Limiter", func(t *testing.T) {
		stub := &apiStub{status: http.StatusOK, body: `{"id": "u"}`}
		server := httptest.NewServer(stub.handler())
		t.Cleanup(server.Close)

		// A zero-rate limiter blocks forever; a canceled context unblocks it.
		svc := NewSpotifyService("token", rate.NewLimiter(0, 0))
		svc.baseURL = server.URL

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := svc.UserProfile(canceled); err == nil {
			t.Error("expected rate limit wait to fail on canceled context")
		}
	})
}
