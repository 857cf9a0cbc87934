package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studyhub-app/studyhub/internal/adapters/auth"
	router "github.com/studyhub-app/studyhub/internal/adapters/http"
	"github.com/studyhub-app/studyhub/internal/ai"
	"github.com/studyhub-app/studyhub/internal/app"
	"github.com/studyhub-app/studyhub/internal/config"
	"github.com/studyhub-app/studyhub/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	tokens := auth.NewJWT(cfg.Secret, cfg.TokenTTL)

	hub := app.NewHub(app.Options{
		FocusSecs:     cfg.Timer.FocusSecs,
		BreakSecs:     cfg.Timer.BreakSecs,
		CycleTarget:   cfg.Timer.CycleTarget,
		QuestionLimit: time.Duration(cfg.Quiz.QuestionSecs) * time.Second,
		RingTimeout:   cfg.Call.RingTimeout,
		QuizIdleEvict: cfg.Quiz.IdleEvict,
		SweepInterval: cfg.Quiz.SweepInterval,
	}, store, tokens)
	if err := hub.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start hub")
	}

	api := &router.API{
		Hub:       hub,
		Store:     store,
		Tokens:    tokens,
		Summarize: ai.WithFallback(ai.HTTPClient(cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Timeout)),
	}

	r := router.SetupRouter(ctx, cfg, api)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("StudyHub server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := hub.Stop(); err != nil {
		log.Error().Err(err).Msg("hub stop failed")
	}
	log.Info().Msg("Server exited gracefully")
}
