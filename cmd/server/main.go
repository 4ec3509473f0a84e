// Package main starts the blackjack table server process lifecycle.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/sync/errgroup"

	"github.com/cardtable/blackjack-go/internal/api"
	"github.com/cardtable/blackjack-go/internal/ledger"
	"github.com/cardtable/blackjack-go/internal/table"
)

type config struct {
	Addr          string        `env:"BLACKJACK_ADDR"           envDefault:":8080"`
	DBPath        string        `env:"BLACKJACK_DB"             envDefault:"blackjack.db"`
	MaxPlayers    int           `env:"BLACKJACK_MAX_PLAYERS"    envDefault:"6"`
	MinBet        int64         `env:"BLACKJACK_MIN_BET"        envDefault:"10"`
	MaxBet        int64         `env:"BLACKJACK_MAX_BET"        envDefault:"1000000"`
	TurnTimeout   time.Duration `env:"BLACKJACK_TURN_TIMEOUT"   envDefault:"30s"`
	WaitingTTL    time.Duration `env:"BLACKJACK_WAITING_TTL"    envDefault:"5m"`
	SweepInterval time.Duration `env:"BLACKJACK_SWEEP_INTERVAL" envDefault:"5s"`
}

func main() {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags|log.Lshortfile)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatalf("parse env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("failed to serve: %v", err)
	}
}

func run(ctx context.Context, cfg config, logger *log.Logger) error {
	store, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tableCfg := table.Config{
		MaxPlayers:    cfg.MaxPlayers,
		MinBet:        cfg.MinBet,
		MaxBet:        cfg.MaxBet,
		TurnTimeout:   cfg.TurnTimeout,
		WaitingTTL:    cfg.WaitingTTL,
		SweepInterval: cfg.SweepInterval,
	}
	registry := table.NewRegistry(tableCfg, store, logger)
	registry.OnExpire(func(hostID string) {
		logger.Printf("waiting session expired host=%s", hostID)
	})
	sweeper := table.NewSweeper(registry, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewServer(registry, store).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
