package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nodecms/app/internal/app/bootstrap"
	"nodecms/app/internal/config"
	applog "nodecms/app/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nodecms",
		Short:         "Incremental site compiler and page server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Compile the site in the background and serve it over HTTP",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "compile",
			Short: "Run a single compilation pass and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCompile(cmd.Context())
			},
		},
	)

	return root
}

// application holds the components shared by every command.
type application struct {
	cfg     *config.Config
	logger  *logrus.Logger
	result  bootstrap.Result
	release func()
}

func setup(ctx context.Context) (*application, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising sentry")
	}

	result, err := bootstrap.Build(ctx, bootstrap.Dependencies{
		Config:    cfg,
		Logger:    logger,
		SentryHub: sentryHub,
	})
	if err != nil {
		flush()
		return nil, eris.Wrap(err, "failure building application")
	}

	release := func() {
		if closeErr := result.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing application")
		}
		flush()
	}

	return &application{cfg: cfg, logger: logger, result: result, release: release}, nil
}

func runCompile(ctx context.Context) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.release()

	if _, err := app.result.Runner.Run(ctx, nil); err != nil {
		return eris.Wrap(err, "compiling site")
	}
	return nil
}
