package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/laurateck/examdesk/internal/api"
	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/gateway"
	"github.com/laurateck/examdesk/internal/logger"
	"github.com/laurateck/examdesk/internal/media"
	"github.com/laurateck/examdesk/internal/store"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.GatewayPort).
		Str("backend", cfg.APIBaseURL).
		Str("store", cfg.StoreBackend).
		Msg("Starting ExamDesk kiosk gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Session Store ────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer closeStore()

	// ─── Initialize Backend Client ─────────────────────────────────────
	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout, log)

	// ─── Initialize Capture Device ─────────────────────────────────────
	// The gateway ships with the null device; a hardware build swaps in a
	// real one here.
	var device media.Device = &media.NullDevice{}

	// ─── Setup Router ──────────────────────────────────────────────────
	handler := gateway.NewSessionHandler(cfg, client, st, device, log)
	r := gateway.SetupRouter(cfg, handler, log)

	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.GatewayPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Gateway error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Gateway shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// openStore selects the store backend from config.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		rs, err := store.NewRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case "memory":
		return store.NewMemory(), func() {}, nil
	default:
		fs, err := store.NewFile(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
