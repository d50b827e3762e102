// Command import loads a wallet transaction CSV into Postgres.
// paid_amt is materialized during import, so the server never has to derive it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"wallet_dashboard/internal/config"
	"wallet_dashboard/internal/loader"
	"wallet_dashboard/internal/logger"
	"wallet_dashboard/internal/model"
	"wallet_dashboard/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	csvPath := flag.String("csv", "digital_wallet_transactions.csv", "path of the CSV export to import")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(os.Getenv("LOG_LEVEL"))

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("Failed to load DB config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Parsing the file and connecting to the database are independent
	var (
		raw *model.RawTable
		g   errgroup.Group
	)
	g.Go(func() error {
		var err error
		raw, err = loader.NewCSVSource(*csvPath).Load(ctx)
		return err
	})
	dbPool, err := config.ConnectDB(ctx, dbCfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()
	if err := g.Wait(); err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	ds, report, err := loader.Normalize(raw)
	if err != nil {
		log.Fatalf("Failed to normalize CSV: %v", err)
	}
	for _, r := range report.Rejected {
		log.WithField("row", r.Row).Warn("Skipping row: " + r.Reason)
	}

	if err := config.AutoMigrate(ctx, dbPool, log); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	n, err := repository.NewTransactionRepository(dbPool).BulkInsert(ctx, ds.Rows)
	if err != nil {
		log.Fatalf("Failed to import transactions: %v", err)
	}
	log.WithField("derived_paid_amt", report.DerivedPaidAmt).Infof("Imported %d of %d rows from %s", n, report.SourceRows, *csvPath)
}
