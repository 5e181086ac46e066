// Package services implements the Spotify side of the proxy: the OAuth2
// authorization-code wrapper and the resource-API client.
//
// # OAuth Wrapper
//
// [SpotifyAuth] owns a per-instance [oauth2.Config] and exposes the four
// operations the session layer needs: authorize-URL generation, one-time code
// exchange, expiry checks with a safety margin, and refresh.
//
// Exchange never consults any cached token; a stale token can therefore never
// shadow a freshly issued one.
//
// # Error Classification
//
// Provider responses split into terminal and transient failures:
//   - [shared.ErrAuthExchange] : the provider rejected the authorization code
//   - [shared.ErrRefreshFailed] : the provider rejected the refresh token;
//     the owning session is dead
//   - [shared.ErrProviderUnavailable] : network failure, timeout, or 5xx;
//     safe to retry, never to be confused with an expired login
//   - [shared.ErrTokenExpired] : the API rejected the access token mid-flight
//
// # Resource Client
//
// [SpotifyService] makes Bearer-authenticated requests against
// api.spotify.com/v1. Instances are built per request from the session's
// current access token, after the accessor has guaranteed freshness. All
// calls carry an explicit timeout and flow through a shared
// [rate.Limiter] when one is configured.
package services
