package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sliceledger/config"
	"sliceledger/core"
	"sliceledger/crypto"
	"sliceledger/envelope"
	"sliceledger/observability/logging"
	"sliceledger/rpc"
	"sliceledger/rpc/middleware"
	"sliceledger/storage"
	"sliceledger/store"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SLICELEDGER_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Env != "" {
		env = cfg.Env
	}

	var logOpts []logging.Option
	if cfg.LogPath != "" {
		logOpts = append(logOpts, logging.WithRotatingFile(cfg.LogPath))
	}
	logger := logging.Setup("ledgerd", env, logOpts...)

	digester, err := crypto.NewDigester(cfg.DigestAlgorithm)
	if err != nil {
		logger.Error("configure digester", "error", err)
		os.Exit(1)
	}

	ledger, err := core.NewLedger(cfg.Difficulty, digester, cfg.Keys(), core.WithLogger(logger))
	if err != nil {
		logger.Error("construct ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger initialised",
		"difficulty", cfg.Difficulty,
		"digest", digester.Name(),
		"genesis", ledger.Latest().Hash,
	)

	var db storage.Database
	if cfg.DataDir != "" {
		db, err = storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open archive database", "path", cfg.DataDir, "error", err)
			os.Exit(1)
		}
	} else {
		db = storage.NewMemDB()
	}
	defer db.Close()

	codec := envelope.NewCodec(digester, ledger)
	server := rpc.NewServer(rpc.Config{
		Ledger:   ledger,
		Auditor:  core.NewAuditor(ledger),
		Repairer: core.NewRepairEngine(ledger),
		Slices:   store.New(ledger, codec),
		Archive:  storage.NewArchive(db),
		Logger:   logger,
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}
}
