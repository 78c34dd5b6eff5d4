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
	"github.com/mrjackwills/mealpedant/internal/backup"
	"github.com/mrjackwills/mealpedant/internal/config"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/httpapi"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/mrjackwills/mealpedant/internal/logger"
)

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
	router := httpapi.NewRouter(state)

	scheduler := backup.New(env)
	if err := scheduler.Start(); err != nil {
		logger.Log.Fatal().Err(err).Msg("start backup scheduler")
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", env.APIHost, env.APIPort),
		Handler: router,

		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("api server forced shutdown")
	}
}
