package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trubid-backend/internal/config"
	"trubid-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := router.CreateApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}
	defer a.Close()

	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("postgres connection failed")
		}
		log.Info().Msg("postgres connected")
	}
	if err := a.Rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	if a.Clock != nil {
		go a.Clock.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		_ = a.Fiber.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info().Str("url", fmt.Sprintf("http://localhost:%s", cfg.Port)).Msg("server running")
	if err := a.Fiber.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
