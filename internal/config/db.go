package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig, log *logrus.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				log.Info("Successfully connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		log.WithError(err).Warnf("Failed to connect to database (attempt %d/%d), retrying in %v", i+1, maxRetries, retryInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Execer is the part of a pool AutoMigrate needs
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// MigrationSQL creates the wallet transaction table. Monetary columns are nullable:
// a NULL paid_amt is derived at load time from the three components.
const MigrationSQL = `
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		transaction_id TEXT,
		transaction_date TIMESTAMP WITH TIME ZONE NOT NULL,
		payment_method TEXT,
		merchant_name TEXT,
		location TEXT,
		device_type TEXT,
		product_amount DOUBLE PRECISION,
		transaction_fee DOUBLE PRECISION,
		cashback DOUBLE PRECISION,
		paid_amt DOUBLE PRECISION
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_id ON wallet_transactions(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_date ON wallet_transactions(transaction_date);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_method ON wallet_transactions(payment_method);
	`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, log *logrus.Logger) error {
	if _, err := db.Exec(ctx, MigrationSQL); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	log.Info("AutoMigrate applied successfully")
	return nil
}
