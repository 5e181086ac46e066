// package services implements the Spotify Web API client and OAuth2 wrapper
package services

import "context"

// Client is the resource-API surface route handlers consume. A [SpotifyService]
// satisfies it; tests substitute doubles.
type Client interface {
	// UserProfile retrieves the authenticated user's profile.
	UserProfile(ctx context.Context) (*SpotifyUser, error)

	// UserPlaylists retrieves the user's playlists with pagination.
	UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error)

	// TopTracks retrieves the user's most played tracks for a time range.
	TopTracks(ctx context.Context, limit int, timeRange string) (*SpotifyTopTracks, error)

	// Name returns the provider name.
	Name() string
}
