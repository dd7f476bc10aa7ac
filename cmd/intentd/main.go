package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"intentnet/config"
	"intentnet/core"
	"intentnet/core/types"
	"intentnet/native/bank"
	"intentnet/native/intents"
	"intentnet/native/venues"
	"intentnet/observability/logging"
	"intentnet/observability/metrics"
	"intentnet/rpc"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "intentd.toml", "path to intentd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("INTENTNET_ENV"))
	if env == "" {
		env = cfg.Log.Environment
	}
	logger := logging.SetupWithOptions("intentd", env, logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ledger := bank.NewLedger()
	registry := venues.NewRegistry()
	if err := applyGenesis(cfg.Genesis, ledger, registry); err != nil {
		log.Fatalf("apply genesis: %v", err)
	}

	store, err := intents.OpenBoltStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("open intent store %s: %v", cfg.Storage.Path, err)
	}
	defer store.Close()

	engine := intents.NewEngine()
	engine.SetState(store)
	engine.SetLedger(ledger)

	dust, _ := cfg.DustThreshold()
	node, err := core.NewNode(core.Config{
		Ledger:           ledger,
		Intents:          engine,
		Registry:         registry,
		HubAsset:         types.AssetID(cfg.Chain.HubAsset),
		DustThreshold:    dust,
		MaxIntentsPerRun: cfg.Chain.MaxIntentsPerRun,
		SolverEnabled:    cfg.Chain.SolverEnabled,
		Logger:           logger,
		Metrics:          metrics.Default(),
	})
	if err != nil {
		log.Fatalf("assemble node: %v", err)
	}

	limiter := rpc.NewRateLimiter(rpc.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})
	server := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      rpc.NewServer(node, logger, limiter),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("intentd listening", "addr", cfg.Server.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("block production started", "interval", cfg.BlockInterval().String())
		if err := node.Run(ctx, cfg.BlockInterval()); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("fatal error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceMs)*time.Millisecond)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced server stop", "error", err)
	}
}

// applyGenesis funds the configured accounts and registers the configured
// venues. Venue reserves are the pool account's ledger balances, so a venue
// is live once its account is funded.
func applyGenesis(genesis config.GenesisConfig, ledger *bank.Ledger, registry *venues.Registry) error {
	for _, account := range genesis.Accounts {
		addr, err := types.ParseAddress(account.Address)
		if err != nil {
			return fmt.Errorf("account %s: %w", account.Address, err)
		}
		balance, ok := new(big.Int).SetString(strings.TrimSpace(account.Balance), 10)
		if !ok {
			return fmt.Errorf("account %s: bad balance %q", account.Address, account.Balance)
		}
		if err := ledger.Mint(addr, types.AssetID(account.Asset), balance); err != nil {
			return fmt.Errorf("fund account %s: %w", account.Address, err)
		}
	}
	for _, venue := range genesis.Venues {
		account, err := types.ParseAddress(venue.Account)
		if err != nil {
			return fmt.Errorf("venue %s: %w", venue.ID, err)
		}
		switch venue.Kind {
		case "xyk":
			registry.Register(venues.NewConstantProduct(
				venue.ID, account,
				types.AssetID(venue.Assets[0]), types.AssetID(venue.Assets[1]),
				uint64(venue.FeeBps), ledger,
			))
		case "stable":
			basket := make([]types.AssetID, 0, len(venue.Assets))
			for _, asset := range venue.Assets {
				basket = append(basket, types.AssetID(asset))
			}
			registry.Register(venues.NewStableVenue(venue.ID, account, basket, uint64(venue.SpreadBps), ledger))
		default:
			return fmt.Errorf("venue %s: unknown kind %q", venue.ID, venue.Kind)
		}
	}
	return nil
}
