package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"wallet_dashboard/internal/model"

	"github.com/jackc/pgx/v5"
)

// TableName is the Postgres table holding wallet transactions
const TableName = "wallet_transactions"

// DB is the subset of *pgxpool.Pool the repository uses
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// TransactionRepository defines operations for wallet transaction data
type TransactionRepository interface {
	FindAll(ctx context.Context) (*model.RawTable, error)
	BulkInsert(ctx context.Context, transactions []model.Transaction) (int64, error)
}

type transactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Each amount is read as a value plus a presence flag so NULL stays distinguishable from zero
const findAllSQL = `SELECT COALESCE(transaction_id, ''), transaction_date,
       COALESCE(payment_method, ''), COALESCE(merchant_name, ''), COALESCE(location, ''), COALESCE(device_type, ''),
       COALESCE(product_amount, 0), product_amount IS NOT NULL,
       COALESCE(transaction_fee, 0), transaction_fee IS NOT NULL,
       COALESCE(cashback, 0), cashback IS NOT NULL,
       COALESCE(paid_amt, 0), paid_amt IS NOT NULL
FROM wallet_transactions
ORDER BY transaction_date, transaction_id`

// FindAll reads every stored transaction as a raw table
func (r *transactionRepository) FindAll(ctx context.Context) (*model.RawTable, error) {
	rows, err := r.db.Query(ctx, findAllSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	table := &model.RawTable{Columns: append([]string(nil), model.TransactionColumns...)}
	for rows.Next() {
		var (
			id, method, merchant, location, device   string
			product, fee, cashback, paid             float64
			hasProduct, hasFee, hasCashback, hasPaid bool
			date                                     time.Time
		)
		if err := rows.Scan(&id, &date, &method, &merchant, &location, &device,
			&product, &hasProduct, &fee, &hasFee, &cashback, &hasCashback, &paid, &hasPaid); err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction row: %w", err)
		}
		table.Rows = append(table.Rows, model.RawRecord{
			model.ColTransactionID:   id,
			model.ColTransactionDate: date.UTC().Format(time.RFC3339Nano),
			model.ColPaymentMethod:   method,
			model.ColMerchantName:    merchant,
			model.ColLocation:        location,
			model.ColDeviceType:      device,
			model.ColProductAmount:   formatAmount(product, hasProduct),
			model.ColTransactionFee:  formatAmount(fee, hasFee),
			model.ColCashback:        formatAmount(cashback, hasCashback),
			model.ColPaidAmt:         formatAmount(paid, hasPaid),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transaction rows: %w", err)
	}
	return table, nil
}

// formatAmount renders the shortest text that parses back to v exactly
func formatAmount(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BulkInsert copies normalized transactions into the table
func (r *transactionRepository) BulkInsert(ctx context.Context, transactions []model.Transaction) (int64, error) {
	if len(transactions) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx, pgx.Identifier{TableName}, model.TransactionColumns,
		pgx.CopyFromSlice(len(transactions), func(i int) ([]any, error) {
			t := transactions[i]
			return []any{
				nullable(t.ID), t.TransactionDate, nullable(t.PaymentMethod), nullable(t.MerchantName),
				nullable(t.Location), nullable(t.DeviceType), t.ProductAmount, t.TransactionFee, t.Cashback, t.PaidAmt,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to copy wallet transactions: %w", err)
	}
	return n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
