package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statify/internal/session"
	"github.com/desertthunder/statify/internal/shared"
)

// sessionCookie is the only credential that ever reaches the browser. The
// token pair stays server-side.
const sessionCookie = "session_token"

// AuthHandler serves the OAuth2 session lifecycle: login redirect, provider
// callback, logout, and the status check.
// Implements the [Handler] interface for registration with a [Router].
type AuthHandler struct {
	sessions *session.Manager
	accessor *ClientAccessor
	secure   bool
	postURL  string
	logger   *log.Logger
}

// AuthHandlerOpts contains dependencies for creating an [AuthHandler].
type AuthHandlerOpts struct {
	Sessions *session.Manager
	Accessor *ClientAccessor
	// SecureCookies marks issued cookies Secure; enabled in production where
	// the service terminates TLS.
	SecureCookies bool
	// PostLoginURL is where the browser lands after a successful callback.
	PostLoginURL string
	Logger       *log.Logger
}

// NewAuthHandler creates a new [AuthHandler].
func NewAuthHandler(opts AuthHandlerOpts) *AuthHandler {
	if opts.PostLoginURL == "" {
		opts.PostLoginURL = "/status"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &AuthHandler{
		sessions: opts.Sessions,
		accessor: opts.Accessor,
		secure:   opts.SecureCookies,
		postURL:  opts.PostLoginURL,
		logger:   opts.Logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/login", "/callback", "/logout", "/status"}
}

// ServeHTTP dispatches to the lifecycle endpoints.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	case "/logout":
		h.logout(w, r)
	case "/status":
		h.status(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login records a pending login and redirects the browser to the provider
// authorize URL. No session or cookie exists yet.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	authURL, err := h.sessions.StartLogin(r.Context())
	if err != nil {
		h.logger.Error("failed to start login", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("login temporarily unavailable"))
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback validates state, exchanges the authorization code, mints the
// session, and hands the browser its cookie.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam, "description", query.Get("error_description"))
		writeJSON(w, http.StatusBadRequest, errorBody("authorization failed: "+errParam))
		return
	}

	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing authorization code"))
		return
	}

	sess, err := h.sessions.CompleteCallback(r.Context(), query.Get("state"), code)
	switch {
	case errors.Is(err, shared.ErrStateMismatch):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid state parameter"))
		return
	case errors.Is(err, shared.ErrAuthExchange):
		h.logger.Error("authorization exchange failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("authorization exchange failed"))
		return
	case err != nil:
		h.logger.Error("callback failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("service unavailable"))
		return
	}

	h.setSessionCookie(w, sess.Token)
	http.Redirect(w, r, h.postURL, http.StatusFound)
}

// logout removes the browser's reference to the session. Whether the store
// entry is deleted eagerly is the session manager's policy; an untargetable
// entry is inert either way.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to revoke session entry", "error", err)
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// statusUser mirrors the cached profile in status responses. Email is a
// pointer so an absent address renders as JSON null.
type statusUser struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
}

type statusResponse struct {
	Authenticated  bool        `json:"authenticated"`
	User           *statusUser `json:"user,omitempty"`
	SessionCreated string      `json:"session_created,omitempty"`
}

// status reports whether the request carries a live session. It runs the
// full accessor so a token whose refresh was rejected degrades to
// unauthenticated right here rather than on the next API call.
func (h *AuthHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, sess, err := h.accessor.Client(r.Context(), sessionToken(r))
	switch {
	case errors.Is(err, shared.ErrNoSession), errors.Is(err, shared.ErrSessionExpired):
		// Indistinguishable to the caller; the log line carries the difference.
		h.logger.Debug("unauthenticated status check", "reason", err)
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	case errors.Is(err, shared.ErrStoreUnavailable), errors.Is(err, shared.ErrProviderUnavailable):
		h.logger.Error("status check degraded", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("service unavailable"))
		return
	case err != nil:
		h.logger.Error("status check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	user := statusUser{ID: sess.UserInfo.ID, DisplayName: sess.UserInfo.DisplayName}
	if sess.UserInfo.Email != "" {
		user.Email = &sess.UserInfo.Email
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Authenticated:  true,
		User:           &user,
		SessionCreated: sess.CreatedAt.Format(time.RFC3339),
	})
}

// setSessionCookie issues the session reference cookie with a lifetime
// matching the store TTL.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie immediately.
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the session token from the request cookie, returning
// an empty string when no cookie is present.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform JSON error payload.
func errorBody(detail string) map[string]string {
	return map[string]string{"detail": detail}
}
