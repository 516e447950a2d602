package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yieldvault/config"
	"yieldvault/core/events"
	"yieldvault/core/state"
	"yieldvault/crypto"
	"yieldvault/native/vault"
	"yieldvault/observability/logging"
	"yieldvault/rpc"
	"yieldvault/storage"
)

func main() {
	configFile := flag.String("config", "./vault.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("vaultd", cfg.LogLevel)

	var db storage.Database
	switch cfg.Persistence {
	case config.PersistenceMemory:
		db = storage.NewMemDB()
	default:
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := applyGenesis(manager, cfg); err != nil {
		logger.Error("failed to apply genesis funding", slog.Any("error", err))
		os.Exit(1)
	}
	if err := bootstrapVault(manager, cfg, logger); err != nil {
		logger.Error("failed to bootstrap vault", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.New(rpc.Config{
		Manager:          manager,
		Logger:           logger,
		Emitter:          events.NewLogEmitter(logger),
		ReferralBonusBps: cfg.ReferralBonusBps,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("address", cfg.ListenAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

// applyGenesis credits the configured startup balances. Minting is additive,
// so genesis entries are only applied to holders that have never been funded.
func applyGenesis(manager *state.Manager, cfg *config.Config) error {
	for _, bal := range cfg.Genesis {
		asset, err := crypto.DecodeAddress(bal.Asset)
		if err != nil {
			return err
		}
		holder, err := crypto.DecodeAddress(bal.Holder)
		if err != nil {
			return err
		}
		existing, err := manager.Balance(asset, holder)
		if err != nil {
			return err
		}
		if existing > 0 {
			continue
		}
		if err := manager.Mint(asset, holder, bal.Amount); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapVault initializes the configured authority's vault when it does
// not exist yet, so a fresh node comes up ready to register assets.
func bootstrapVault(manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	authority, err := cfg.AuthorityAddress()
	if err != nil {
		return err
	}
	if authority.IsZero() {
		return nil
	}
	return manager.Execute(func(txn *state.Txn) error {
		eng := vault.NewEngine()
		eng.SetState(txn)
		eng.SetLedger(txn)
		eng.SetReferralBonusBps(cfg.ReferralBonusBps)
		vaultID, err := eng.InitializeVault(authority, cfg.BasePointsRate)
		if errors.Is(err, vault.ErrVaultExists) {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("vault bootstrapped",
			slog.String("vault", vaultID.Hex()),
			slog.String("authority", authority.String()),
		)
		return nil
	})
}
