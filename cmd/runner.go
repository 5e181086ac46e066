package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statify/internal/shared"
	"github.com/desertthunder/statify/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration for a command, preferring the file at
// the --config flag and falling back to embedded defaults.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			return config
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if r.config != nil {
		return r.config
	}
	return shared.DefaultConfig()
}

// buildStore constructs the session store selected by the configuration.
func (r *Runner) buildStore(config *shared.Config) (store.Store, error) {
	switch config.Store.Backend {
	case "redis":
		rc := config.Store.Redis
		if rc.URL != "" {
			s, err := store.NewRedisStoreFromURL(rc.URL, rc.MaxRetries)
			if err != nil {
				return nil, err
			}
			r.logger.Info("using redis session store from url")
			return s, nil
		}
		s := store.NewRedisStore(rc.Addr, rc.Password, rc.DB, rc.MaxRetries)
		r.logger.Info("using redis session store", "addr", rc.Addr)
		return s, nil
	case "sqlite":
		sc := config.Store.SQLite
		s, err := store.OpenSQLiteStore(sc.Path, sc.MaxOpenConns, sc.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		r.logger.Info("using sqlite session store", "path", sc.Path)
		return s, nil
	case "memory", "":
		r.logger.Warn("using in-memory session store, sessions do not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, config.Store.Backend)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
