package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/config"
	"github.com/franckalain/eatsmarty/internal/database"
	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/logger"
	"github.com/franckalain/eatsmarty/internal/openfoodfacts"
	"github.com/franckalain/eatsmarty/internal/product"
	"github.com/franckalain/eatsmarty/internal/server"
	"github.com/franckalain/eatsmarty/internal/store"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	level := cfg.Logging.Level
	if cfg.Server.Debug {
		level = "debug"
	}
	lg, err := logger.New(level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer lg.Sync() //nolint:errcheck

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	products := store.NewProductStore(db)
	if err := products.Load(ctx); err != nil {
		lg.Warn("discarding stored products", zap.Error(err))
	}
	settings := store.NewSettingsStore(db)
	if err := settings.Load(ctx); err != nil {
		lg.Warn("discarding stored settings", zap.Error(err))
	}

	// Initialize barcode decoder
	dec, err := decoder.NewDecoder(ctx, cfg.Decoder)
	if err != nil {
		return err
	}
	if c, ok := dec.(io.Closer); ok {
		defer c.Close()
	}
	lg.Info("barcode decoder ready", zap.String("type", cfg.Decoder.Type))

	cat, err := catalog.Load()
	if err != nil {
		return err
	}

	client := openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.Timeout, cfg.OpenFoodFacts.UserAgent, lg.Named("openfoodfacts"))
	resolver := product.NewResolver(client, products, settings, db, lg.Named("product"))

	srv := server.New(server.Deps{
		DB:       db,
		Decoder:  dec,
		Resolver: resolver,
		Products: products,
		Settings: settings,
		Catalog:  cat,
	}, cfg.Server.StaticDir, lg.Named("server"))

	if _, err := os.Stat(cfg.Server.StaticDir); err != nil {
		lg.Warn("static directory not available", zap.String("dir", cfg.Server.StaticDir), zap.Error(err))
	}
	return srv.Start(ctx, cfg.Server.Port)
}
