package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DataSourceCSV      = "csv"
	DataSourcePostgres = "postgres"
)

// Config holds the dashboard server settings
type Config struct {
	ServerPort     string
	DataSource     string
	CSVPath        string
	CurrencyPrefix string
	LogLevel       string
	GinMode        string
	DB             *DBConfig // only set for the postgres data source
}

// Load reads the configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DataSource:     strings.ToLower(getEnv("DATA_SOURCE", DataSourceCSV)),
		CSVPath:        getEnv("CSV_PATH", "digital_wallet_transactions.csv"),
		CurrencyPrefix: getEnv("CURRENCY_PREFIX", "INR"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		GinMode:        getEnv("GIN_MODE", "debug"),
	}

	if cfg.DataSource == DataSourcePostgres {
		dbCfg, err := LoadDBConfig()
		if err != nil {
			return nil, err
		}
		cfg.DB = dbCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.ServerPort); err != nil {
		problems = append(problems, fmt.Sprintf("invalid SERVER_PORT '%s': must be a number", c.ServerPort))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid SERVER_PORT %d: must be between 1 and 65535", port))
	}

	switch c.DataSource {
	case DataSourceCSV:
		if strings.TrimSpace(c.CSVPath) == "" {
			problems = append(problems, "CSV_PATH is required for the csv data source")
		}
	case DataSourcePostgres:
		if c.DB == nil {
			problems = append(problems, "database settings are required for the postgres data source")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DATA_SOURCE '%s': must be one of csv, postgres", c.DataSource))
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("invalid GIN_MODE '%s': must be one of debug, release, test", c.GinMode))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
