package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse staged documents through a read-only STAC API",
		Long: `Serve the collections and items staged by dryrun runs and create-items
through a read-only STAC API, so they can be checked with STAC clients
before they are posted. The stage directory is read once at startup.

Listen address, public URL and paging limits come from PREVIEW_HOST,
PREVIEW_PORT, PREVIEW_BASE_URL, PREVIEW_DEFAULT_LIMIT and PREVIEW_MAX_LIMIT.`,
		Args:        cobra.NoArgs,
		Annotations: localOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Files.StageDir
			}
			return a.serve(dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Stage directory to serve (default CCI_STAGE_DIR)")
	return cmd
}

func (a *app) serve(dir string) error {
	pc := a.cfg.Preview

	srv, err := server.New(server.Options{
		StageDir:     dir,
		BaseURL:      pc.BaseURL,
		Title:        pc.Title,
		Description:  pc.Description,
		DefaultLimit: pc.DefaultLimit,
		MaxLimit:     pc.MaxLimit,
		Fs:           a.fs,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	collections, items := srv.Counts()
	a.logger.Info("starting preview server",
		"dir", dir,
		"collections", collections,
		"items", items,
		"base_url", pc.BaseURL,
	)

	httpServer := &http.Server{
		Addr:         pc.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  pc.ReadTimeout,
		WriteTimeout: pc.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pc.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down server", "timeout", pc.ShutdownTimeout)
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
