package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-job-acquisition/internal/engine"
	"go-job-acquisition/internal/server"
	"go-job-acquisition/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operator API",
	Long:  "Serves title preferences, pending security checks and stored listings over HTTP. With --acquire it also runs the enabled platforms once, resolving security checks through POST /challenges/:platform/resolve.",
	RunE:  runServe,
}

var (
	serveAcquire   bool
	servePlatforms []string
)

func init() {
	serveCmd.Flags().BoolVar(&serveAcquire, "acquire", false, "Also run one acquisition per platform in the background")
	serveCmd.Flags().StringSliceVarP(&servePlatforms, "platform", "p", nil, "Platforms to run with --acquire (default: every enabled platform)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var names []string
	if serveAcquire {
		if names, err = selectPlatforms(cfg, servePlatforms); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	challenges := session.NewSignalResolver()
	var listings server.ListingReader
	if a.repo != nil {
		listings = a.repo
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(a.prefs, challenges, listings, a.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Msg("🌐 Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if serveAcquire {
		g.Go(func() error {
			_, err := a.acquireAll(gctx, names, challenges, engine.Options{})
			if err != nil {
				a.log.Error().Err(err).Msg("❌ Acquisition finished with errors")
			}
			return nil
		})
	}
	return g.Wait()
}
