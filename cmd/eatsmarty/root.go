package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/config"
	"github.com/franckalain/eatsmarty/internal/database"
	"github.com/franckalain/eatsmarty/internal/logger"
	"github.com/franckalain/eatsmarty/internal/openfoodfacts"
	"github.com/franckalain/eatsmarty/internal/product"
	"github.com/franckalain/eatsmarty/internal/store"
)

// options are the global flags
type options struct {
	configFile string
	logLevel   string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "eatsmarty",
		Short: "Look up food products by barcode",
		Long: `eatsmarty resolves product barcodes against Open Food Facts, keeps a
history of recently scanned products and explains common food additives.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: config/config.json or config.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print raw JSON")

	cmd.AddCommand(lookupCmd(opts))
	cmd.AddCommand(scanCmd(opts))
	cmd.AddCommand(historyCmd(opts))
	cmd.AddCommand(settingsCmd(opts))
	cmd.AddCommand(additivesCmd(opts))
	cmd.AddCommand(additiveCmd(opts))
	cmd.AddCommand(categoriesCmd(opts))

	return cmd
}

// app holds the components a command works with
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.SQLiteDB
	products *store.ProductStore
	settings *store.SettingsStore
	resolver *product.Resolver
	catalog  *catalog.Catalog
}

func (o *options) loadConfig() (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = config.GetConfigPath()
	}
	return config.LoadConfig(path)
}

// openApp loads configuration, opens the database and wires the resolver.
func (o *options) openApp(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	lg, err := logger.New(o.logLevel, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	db, err := database.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	products := store.NewProductStore(db)
	if err := products.Load(ctx); err != nil {
		lg.Warn("discarding stored products", zap.Error(err))
	}
	settings := store.NewSettingsStore(db)
	if err := settings.Load(ctx); err != nil {
		lg.Warn("discarding stored settings", zap.Error(err))
	}

	cat, err := catalog.Load()
	if err != nil {
		db.Close()
		return nil, err
	}

	client := openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.Timeout, cfg.OpenFoodFacts.UserAgent, lg)
	return &app{
		cfg:      cfg,
		logger:   lg,
		db:       db,
		products: products,
		settings: settings,
		resolver: product.NewResolver(client, products, settings, db, lg),
		catalog:  cat,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
}

// render prints v as indented JSON with --json, or the rendered text otherwise.
func (o *options) render(w io.Writer, v any, text func() string) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text())
	return err
}
