// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"economy-ledger/internal/config"
	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/repository/memory"
	"economy-ledger/internal/repository/sqlstore"
	"economy-ledger/internal/repository/yamlfile"
	"economy-ledger/internal/service"
	"economy-ledger/internal/util"
	"economy-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB // nil for the yaml and memory stores

	// Storage
	Store repository.DocumentStore

	// Services
	Ledger service.LedgerService
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize loads the configuration and initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		app.Logger = util.GetLogger()
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.InitializeWithConfig(ctx, cfg)
}

// InitializeWithConfig initializes all application components from cfg.
func (app *Application) InitializeWithConfig(ctx context.Context, cfg *config.AppConfig) error {
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel, cfg.LogFormat)
	app.Logger = util.GetLogger()
	app.Logger.Debug("Application configuration loaded successfully.", "store", cfg.Store.Driver)

	// 3. Open the document store
	store, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	app.Store = store

	// 4. Initialize Services
	currency, err := domain.NewCurrency(cfg.Ledger.CurrencyCode, cfg.Ledger.CurrencyName)
	if err != nil {
		return fmt.Errorf("failed to configure currency: %w", err)
	}
	app.Ledger, err = service.NewLedgerService(ctx, app.Store,
		service.WithLogger(app.Logger),
		service.WithCurrency(currency),
		service.WithStartingBalance(cfg.Ledger.StartingBalance),
		service.WithOverdraft(cfg.Ledger.AllowOverdraft),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	app.Logger.Debug("Services initialized.")

	return nil
}

func (app *Application) openStore(ctx context.Context) (repository.DocumentStore, error) {
	switch app.Config.Store.Driver {
	case config.StoreMemory:
		return memory.New(), nil

	case config.StoreYAML:
		path := app.Config.Store.AccountsPath()
		app.Logger.Debug("Using YAML accounts file", "path", path)
		return yamlfile.New(path), nil

	case config.StoreSQLite, config.StorePostgres:
		var (
			database *sqlx.DB
			err      error
		)
		if app.Config.Store.Driver == config.StoreSQLite {
			database, err = db.NewSQLiteDB(app.Config.Store.SQLitePath)
		} else {
			database, err = db.NewPostgresDB(app.Config.DB)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		app.Logger.Debug("Database connection established.", "driver", database.DriverName())

		repo := sqlstore.NewDocumentRepository(app.DB)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", util.ErrInvalidInput, app.Config.Store.Driver)
	}
}

// Shutdown saves the ledger and releases application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Debug("Shutting down application...")

	var saveErr error
	if app.Ledger != nil {
		saveErr = app.Ledger.SaveLedger(ctx)
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Debug("Database connection closed.")
	}
	if saveErr != nil {
		return fmt.Errorf("failed to save ledger: %w", saveErr)
	}
	app.Logger.Debug("Application shut down gracefully.")
	return nil
}
