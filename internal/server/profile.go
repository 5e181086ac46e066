package server

import (
	"context"

	"github.com/desertthunder/statify/internal/services"
	"github.com/desertthunder/statify/internal/session"
	"golang.org/x/time/rate"
)

// ProfileService adapts the resource API to the session manager's profile
// lookup at callback time.
type ProfileService struct {
	limiter *rate.Limiter
	factory func(accessToken string) services.Client
}

// NewProfileService creates a [ProfileService] sharing the given rate limiter.
func NewProfileService(limiter *rate.Limiter) *ProfileService {
	return &ProfileService{
		limiter: limiter,
		factory: func(accessToken string) services.Client {
			return services.NewSpotifyService(accessToken, limiter)
		},
	}
}

// Profile fetches the provider profile for a freshly issued access token and
// reduces it to the cached subset.
func (p *ProfileService) Profile(ctx context.Context, accessToken string) (session.UserInfo, error) {
	user, err := p.factory(accessToken).UserProfile(ctx)
	if err != nil {
		return session.UserInfo{}, err
	}

	return session.UserInfo{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}
