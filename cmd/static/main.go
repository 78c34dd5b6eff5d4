package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrjackwills/mealpedant/internal/appstate"
	"github.com/mrjackwills/mealpedant/internal/config"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/mrjackwills/mealpedant/internal/logger"
	"github.com/mrjackwills/mealpedant/internal/staticserve"
)

// The static server shares appstate.State with cmd/api (same rate limiter,
// same cookie key, spec §4.I) but serves only /photo/<name> and the
// precompressed frontend bundle, never the /v1 API surface.
func main() {
	env, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level := "info"
	if !env.Production {
		level = "debug"
	}
	if err := logger.Initialize(level, env.Production, env.LocationLogs); err != nil {
		log.Fatalf("logger: %v", err)
	}

	database, err := db.NewDatabase(db.Config{
		Host:     env.PgHost,
		Port:     env.PgPort,
		User:     env.PgUser,
		Password: env.PgPass,
		DBName:   env.PgDatabase,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("connect postgres")
	}
	defer database.Close()

	kvClient, err := kv.NewClient(kv.Config{
		Host:     env.RedisHost,
		Port:     env.RedisPort,
		Password: env.RedisPass,
		DB:       env.RedisDB,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("connect redis")
	}
	defer kvClient.Close()

	state := appstate.New(env, database, kvClient)
	router := staticserve.NewRouter(state)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", env.StaticHost, env.StaticPort),
		Handler: router,

		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("static server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("static server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("static server forced shutdown")
	}
}
