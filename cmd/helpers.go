package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pgindex/pgindex/internal/app"
	"github.com/pgindex/pgindex/internal/config"
	"github.com/pgindex/pgindex/internal/errs"
	"github.com/pgindex/pgindex/internal/logging"
)

// session is what every subcommand needs once flags are parsed.
type session struct {
	config *config.Config
	logger *zap.Logger
	app    *app.App
}

func newSession(cmd *cobra.Command) (*session, error) {
	logger, err := logging.New(logging.Options{
		Verbose: verbose,
		Format:  logFormat,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, errs.E(errs.KindConfig, "logging", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errs.E(errs.KindConfig, "load config", err)
	}
	if cfg.ConfigFilePath == "" {
		printConfigNotFound(logger)
	} else {
		logger.Debug("loaded config", zap.String("path", cfg.ConfigFilePath))
	}

	return &session{
		config: cfg,
		logger: logger,
		app: &app.App{
			Logger:   logger,
			Out:      cmd.OutOrStdout(),
			Verbose:  verbose,
			Progress: progress,
			Version:  version,
		},
	}, nil
}

func (s *session) connections() (*config.Connections, error) {
	conns, err := config.ResolveConnections(s.config, envFile)
	if err != nil {
		return nil, errs.E(errs.KindConfig, "resolve connections", err)
	}
	if conns.FromDotenv {
		s.logger.Debug("applied dotenv overrides", zap.String("path", conns.DotenvPath))
	}
	return conns, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// printConfigNotFound notes that no pg_index_import.toml was found
func printConfigNotFound(logger *zap.Logger) {
	logger.Info(config.DefaultFileName+" not found, using defaults and flags",
		zap.String("hint", "create one with [source], [target], [export] and [import] sections"))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
