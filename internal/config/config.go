// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"economy-ledger/internal/balance"
	"economy-ledger/pkg/db" // Import db package for its Config struct
)

// Supported document store drivers.
const (
	StoreYAML     = "yaml"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Driver       string
	ConfigDir    string
	AccountsFile string
	SQLitePath   string
}

// AccountsPath is the location of the YAML accounts document.
func (c StoreConfig) AccountsPath() string {
	return filepath.Join(c.ConfigDir, c.AccountsFile)
}

// LedgerConfig holds the ledger policy settings.
type LedgerConfig struct {
	CurrencyCode    string
	CurrencyName    string
	StartingBalance decimal.Decimal
	AllowOverdraft  bool
}

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	Store     StoreConfig
	DB        db.Config
	Ledger    LedgerConfig
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables, after reading an
// optional .env file from the working directory. Variables already set in the
// environment win over the file.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	driver := strings.ToLower(getEnv("LEDGER_STORE", StoreYAML))
	switch driver {
	case StoreYAML, StoreSQLite, StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid LEDGER_STORE %q: want yaml, sqlite, postgres or memory", driver)
	}
	configDir := getEnv("LEDGER_CONFIG_DIR", filepath.Join("config", "ledger"))

	startingBalance, err := balance.ParseExact(getEnv("LEDGER_STARTING_BALANCE", "10.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_STARTING_BALANCE: %w", err)
	}
	allowOverdraft, err := strconv.ParseBool(getEnv("LEDGER_ALLOW_OVERDRAFT", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_ALLOW_OVERDRAFT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432")) // Default PostgreSQL port
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	return &AppConfig{
		Store: StoreConfig{
			Driver:       driver,
			ConfigDir:    configDir,
			AccountsFile: getEnv("LEDGER_ACCOUNTS_FILE", "accounts.yaml"),
			SQLitePath:   getEnv("LEDGER_SQLITE_PATH", filepath.Join(configDir, "accounts.db")),
		},
		DB: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "ledgerdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Ledger: LedgerConfig{
			CurrencyCode:    strings.ToUpper(getEnv("LEDGER_CURRENCY_CODE", "USD")),
			CurrencyName:    getEnv("LEDGER_CURRENCY_NAME", "Dollar"),
			StartingBalance: startingBalance,
			AllowOverdraft:  allowOverdraft,
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
