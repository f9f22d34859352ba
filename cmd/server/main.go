package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buildrush/buildrush-backend/internal/config"
	"github.com/buildrush/buildrush-backend/internal/game"
	"github.com/buildrush/buildrush-backend/internal/history"
	"github.com/buildrush/buildrush-backend/internal/server"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	cfg := config.Load()

	var recorder game.MatchRecorder
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := history.NewStore(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open match history store")
		}
		defer store.Close()
		recorder = store
		log.Info().Msg("match history archiving enabled")
	}

	registry := game.NewRegistry(recorder)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go registry.StartJanitor(janitorCtx)

	srv := server.New(registry)
	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, srv.RegisterRoutes()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
