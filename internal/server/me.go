package server

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statify/internal/services"
	"github.com/desertthunder/statify/internal/shared"
)

// MeHandler serves thin passthroughs over the authenticated resource API:
// the user's playlists and top tracks.
// Implements the [Handler] interface for registration with a [Router].
type MeHandler struct {
	accessor *ClientAccessor
	logger   *log.Logger
}

// NewMeHandler creates a new [MeHandler].
func NewMeHandler(accessor *ClientAccessor, logger *log.Logger) *MeHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MeHandler{accessor: accessor, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *MeHandler) Routes() []string {
	return []string{"/me/playlists", "/me/top-tracks"}
}

// ServeHTTP dispatches to the passthrough endpoints.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	client, _, err := h.accessor.Client(r.Context(), sessionToken(r))
	if err != nil {
		h.writeAccessError(w, err)
		return
	}

	switch r.URL.Path {
	case "/me/playlists":
		h.playlists(w, r, client)
	case "/me/top-tracks":
		h.topTracks(w, r, client)
	default:
		http.NotFound(w, r)
	}
}

// playlists returns the user's playlists in the provider's paginated shape.
func (h *MeHandler) playlists(w http.ResponseWriter, r *http.Request, client services.Client) {
	limit, offset := 20, 0

	playlists, err := client.UserPlaylists(r.Context(), limit, offset)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlists)
}

// trackSummary is the reduced top-track shape: name, primary artist, album art.
type trackSummary struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Image  string `json:"image"`
}

// topTracks returns the user's top 5 tracks for the requested time range.
func (h *MeHandler) topTracks(w http.ResponseWriter, r *http.Request, client services.Client) {
	timeRange := r.URL.Query().Get("time_range")

	top, err := client.TopTracks(r.Context(), 5, timeRange)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	summaries := make([]trackSummary, 0, len(top.Items))
	for _, track := range top.Items {
		summary := trackSummary{Name: track.Name}
		if len(track.Artists) > 0 {
			summary.Artist = track.Artists[0].Name
		}
		if len(track.Album.Images) > 0 {
			summary.Image = track.Album.Images[0].URL
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": summaries})
}

// writeAccessError maps accessor failures onto the API boundary: absent and
// expired sessions are both a plain 401, infrastructure trouble is not.
func (h *MeHandler) writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNoSession), errors.Is(err, shared.ErrSessionExpired):
		h.logger.Debug("unauthenticated request", "reason", err)
		writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated, please login"))
	case errors.Is(err, shared.ErrStoreUnavailable), errors.Is(err, shared.ErrProviderUnavailable):
		h.logger.Error("session access degraded", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody("service unavailable"))
	default:
		h.logger.Error("session access failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// writeProviderError maps resource-API failures after authentication.
func (h *MeHandler) writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrTokenExpired):
		// The token looked fresh but the provider disagreed; the next request
		// will refresh it. Treat as unauthenticated rather than a crash.
		h.logger.Warn("provider rejected access token", "error", err)
		writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated, please login"))
	case errors.Is(err, shared.ErrProviderUnavailable):
		h.logger.Error("provider unavailable", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("provider unavailable"))
	default:
		h.logger.Error("provider request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("provider request failed"))
	}
}
