package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/statify/internal/server"
	"github.com/desertthunder/statify/internal/services"
	"github.com/desertthunder/statify/internal/session"
	"github.com/desertthunder/statify/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// spotifyRPS bounds outbound Spotify API calls across all sessions.
const spotifyRPS = 10

// Serve runs the session proxy HTTP server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	sessionStore, err := r.buildStore(config)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	auth, err := services.NewSpotifyAuth(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify auth: %w", err)
	}
	auth.SetRefreshMargin(config.Session.RefreshMargin())

	limiter := rate.NewLimiter(rate.Limit(spotifyRPS), spotifyRPS)

	sessions := session.NewManager(session.ManagerOpts{
		Store:          sessionStore,
		Auth:           auth,
		Profiles:       server.NewProfileService(limiter),
		TTL:            config.Session.TTL(),
		LoginTTL:       config.Session.LoginTTL(),
		RevokeOnLogout: config.Session.RevokeOnLogout,
		Logger:         r.logger,
	})

	accessor := server.NewClientAccessor(server.AccessorOpts{
		Sessions: sessions,
		Auth:     auth,
		Limiter:  limiter,
		Logger:   r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewSystemHandler(sessionStore))
	router.Handler(server.NewAuthHandler(server.AuthHandlerOpts{
		Sessions:      sessions,
		Accessor:      accessor,
		SecureCookies: config.Server.SecureCookies,
		PostLoginURL:  config.Server.PostLoginURL,
		Logger:        r.logger,
	}))
	router.Handler(server.NewMeHandler(accessor, r.logger))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("statify listening at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Serving on http://%s\n", addr)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	return nil
}

// serveCommand runs the HTTP session proxy.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Statify session proxy server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}
