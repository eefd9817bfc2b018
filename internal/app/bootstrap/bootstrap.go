package bootstrap

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"nodecms/app/internal/compiler"
	"nodecms/app/internal/config"
	"nodecms/app/internal/db"
	apphttp "nodecms/app/internal/http"
	"nodecms/app/internal/seed"
	"nodecms/app/internal/site"
	"nodecms/app/internal/store"
)

const rateLimiterClientTTL = 10 * time.Minute

type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Compiler   *compiler.Compiler
	Runner     *compiler.Runner
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// Build composes the storage, compiler and transport layers.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Config == nil {
		return Result{}, eris.New("config is required")
	}
	if deps.Logger == nil {
		return Result{}, eris.New("logger is required")
	}
	cfg := deps.Config

	database, err := db.Open(db.Options{Path: cfg.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := db.Close(database); closeErr != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := store.Migrate(ctx, database, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running migrations"))
	}

	pages, err := store.NewPageRepository(database, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page repository"))
	}

	index, err := store.NewCompiledPageRepository(database, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating compiled page repository"))
	}

	if _, err := seed.Import(ctx, pages, cfg.SeedPath, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "importing seed pages"))
	}

	registry, err := site.NewRegistry()
	if err != nil {
		return closeOnError(eris.Wrap(err, "registering page types"))
	}

	siteCompiler, err := compiler.New(compiler.Options{
		Root:     cfg.Webroot,
		Langs:    cfg.Langs,
		Registry: registry,
		Pages:    pages,
		Index:    index,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating compiler"))
	}

	runner, err := compiler.NewRunner(siteCompiler, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating compilation runner"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Runner:    runner,
		Index:     index,
		Database:  database,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		Webroot:   cfg.Webroot,
		Langs:     cfg.Langs,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             cfg.CompileRateBurst,
			RequestsPerSecond: cfg.CompileRatePerSecond,
			ClientTTL:         rateLimiterClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return db.Close(database)
	}

	return Result{
		Compiler:   siteCompiler,
		Runner:     runner,
		HTTPServer: httpServer,
		Database:   database,
		Cleanup:    cleanup,
	}, nil
}
