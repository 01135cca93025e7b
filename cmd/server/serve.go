package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/gst-ledger/internal/auth"
	"github.com/diewo77/gst-ledger/internal/db"
	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled overdue sweep",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-sweep", false, "Do not schedule the overdue sweep")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")
	noSweep, _ := cmd.Flags().GetBool("no-sweep")

	dbConn, err := connect()
	if err != nil {
		return err
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokens(secretOr(cfg.Auth.JWTSecret, devJWTSecret, "JWT_SECRET"), cfg.Auth.Issuer, auth.DefaultTokenTTL)
	if err != nil {
		return err
	}
	verifier, err := services.NewHMACVerifier(secretOr(cfg.Gateway.KeySecret, devGatewaySecret, "GATEWAY_KEY_SECRET"))
	if err != nil {
		return err
	}
	loc := cfg.Ledger.Location()

	app := NewApp(Deps{DB: dbConn, Tokens: tokens, Verifier: verifier, Location: loc})

	scheduler := cron.New(cron.WithLocation(loc))
	if !noSweep {
		sweeper := services.NewOverdueSweeper(dbConn, services.WithLocation(loc))
		if _, err := sweeper.Schedule(scheduler, cfg.Ledger.OverdueSweepCron); err != nil {
			return err
		}
		scheduler.Start()
		log.Info().Str("spec", cfg.Ledger.OverdueSweepCron).Msg("overdue sweep scheduled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(app),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-scheduler.Stop().Done()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}
