// Package server provides HTTP routing, middleware, and the session-backed
// OAuth surface of the proxy.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// Three [Handler] implementations cover the HTTP surface:
//
//   - [AuthHandler] : /login, /callback, /logout, /status — the OAuth2
//     session lifecycle. The callback validates the state parameter against
//     the pending-login record before any exchange happens and consumes it,
//     so a replayed or forged callback is rejected with a 400.
//   - [MeHandler] : /me/playlists, /me/top-tracks — thin passthroughs that
//     run after the accessor has guaranteed a fresh token.
//   - [SystemHandler] : / and /health.
//
// # Authenticated Client Accessor
//
// [ClientAccessor] is the chokepoint between sessions and the resource API.
// It loads the session, refreshes the access token lazily when it sits
// within the safety margin of expiry, re-persists the session before any
// client is handed out, and degrades a rejected refresh to an expired
// session.
//
// Refresh runs under a per-session [session.KeyedMutex] so concurrent
// requests on one session trigger a single refresh. The guarantee is
// process-local: two replicas can still race on the store key,
// last-writer-wins, which is documented rather than hidden.
//
// # Error Boundary
//
// Absent and expired sessions are indistinguishable in responses (401, or
// authenticated:false on /status) and distinguishable only in logs. Store
// and provider outages surface as 5xx, never as unauthenticated, so an
// infrastructure incident cannot masquerade as a logout wave.
package server
