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

	"nftlend/bank"
	"nftlend/config"
	"nftlend/native/lending"
	"nftlend/observability/logging"
	"nftlend/pricefeed"
	"nftlend/rpc"
	"nftlend/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	if err := run(configPath); err != nil {
		slog.Error("lendingd exiting", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Setup("lendingd", "")
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Service.Name, cfg.Service.Environment)

	var db storage.Database
	if cfg.Storage.Path == "" {
		logger.Warn("no storage path configured, state will not survive restarts")
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open storage %s: %w", cfg.Storage.Path, err)
		}
		db = ldb
	}
	defer db.Close()

	book := bank.NewBook(db)
	vault := bank.NewVault(book, cfg.Pool.CustodianAddress)

	feed := pricefeed.NewStatic()
	for _, asset := range cfg.Oracle.Assets {
		feed.SetQuote(asset.Asset, asset.Price, asset.Decimals)
	}

	engine := lending.NewEngine(cfg.Pool.CustodianAddress, lending.NewRiskEngine(feed, cfg.RiskParameters()))
	engine.SetState(lending.NewKeeper(db))
	engine.SetVaults(vault, vault)
	engine.SetPoolID(cfg.Pool.ID)
	if err := engine.SetInterestModel(cfg.InterestModel()); err != nil {
		return fmt.Errorf("configure interest model: %w", err)
	}
	if err := engine.InitPool(cfg.PoolRecord()); err != nil {
		return fmt.Errorf("initialise pool %s: %w", cfg.Pool.ID, err)
	}

	srv := &http.Server{
		Addr:              cfg.Service.ListenAddress,
		Handler:           rpc.NewServer(engine, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lending daemon listening",
			"address", cfg.Service.ListenAddress,
			"pool", cfg.Pool.ID,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
