package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

func runServe(ctx context.Context) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.release()

	compileCtx, stopCompiles := context.WithCancel(ctx)
	compileDone := make(chan struct{})
	go func() {
		defer close(compileDone)
		app.result.Runner.Start(compileCtx)
	}()
	defer func() {
		stopCompiles()
		<-compileDone
	}()

	// Bring the webroot in line with the store before the first request.
	app.result.Runner.Trigger()

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", app.cfg.ServerPort),
		Handler: app.result.HTTPServer.Handler(),
	}

	app.logger.WithFields(logrus.Fields{
		"addr":    httpServer.Addr,
		"webroot": app.cfg.Webroot,
		"langs":   app.cfg.Langs,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	app.logger.Info("http server shut down cleanly")
	return nil
}
