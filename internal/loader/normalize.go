package loader

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"wallet_dashboard/internal/model"
	"wallet_dashboard/internal/utils"
)

// ErrSchema means the source lacks columns the dashboard cannot do without
var ErrSchema = errors.New("incomplete transaction schema")

var requiredColumns = []string{
	model.ColTransactionID,
	model.ColTransactionDate,
	model.ColPaymentMethod,
	model.ColMerchantName,
	model.ColLocation,
	model.ColDeviceType,
}

var paidAmtComponents = []string{
	model.ColProductAmount,
	model.ColTransactionFee,
	model.ColCashback,
}

// RejectedRow records a source row that did not make it into the dataset
type RejectedRow struct {
	Row    int    `json:"row"` // 1-based position among data rows
	ID     string `json:"transaction_id,omitempty"`
	Reason string `json:"reason"`
}

// LoadReport summarizes one normalization pass
type LoadReport struct {
	Source         string        `json:"source"`
	SourceRows     int           `json:"source_rows"`
	LoadedRows     int           `json:"loaded_rows"`
	DerivedPaidAmt int           `json:"derived_paid_amt"`
	Rejected       []RejectedRow `json:"rejected,omitempty"`
}

// Normalize validates the raw table, parses dates and amounts, derives paid_amt
// where it is missing and computes the filter domain.
func Normalize(raw *model.RawTable) (*model.Dataset, LoadReport, error) {
	report := LoadReport{SourceRows: len(raw.Rows)}

	var missing []string
	for _, col := range requiredColumns {
		if !raw.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	hasPaidAmt := raw.HasColumn(model.ColPaidAmt)
	if !hasPaidAmt {
		for _, col := range paidAmtComponents {
			if !raw.HasColumn(col) {
				missing = append(missing, col)
			}
		}
	}
	if len(missing) > 0 {
		if !hasPaidAmt {
			return nil, report, fmt.Errorf("%w: missing columns %s (paid_amt is absent and cannot be derived)", ErrSchema, strings.Join(missing, ", "))
		}
		return nil, report, fmt.Errorf("%w: missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}

	ds := &model.Dataset{Rows: make([]model.Transaction, 0, len(raw.Rows))}
	methods := make(map[string]struct{})

	for i, rec := range raw.Rows {
		t, derived, err := normalizeRecord(rec)
		if err != nil {
			report.Rejected = append(report.Rejected, RejectedRow{Row: i + 1, ID: rec[model.ColTransactionID], Reason: err.Error()})
			continue
		}
		if derived {
			report.DerivedPaidAmt++
		}

		if len(ds.Rows) == 0 || t.TransactionDate.Before(ds.MinDate) {
			ds.MinDate = t.TransactionDate
		}
		if len(ds.Rows) == 0 || t.TransactionDate.After(ds.MaxDate) {
			ds.MaxDate = t.TransactionDate
		}
		if t.PaymentMethod != "" {
			methods[t.PaymentMethod] = struct{}{}
		}
		ds.Rows = append(ds.Rows, t)
	}

	sorted := make([]string, 0, len(methods))
	for m := range methods {
		sorted = append(sorted, m)
	}
	sort.Strings(sorted)
	ds.PaymentMethods = append([]string{model.AllPaymentMethods}, sorted...)

	report.LoadedRows = len(ds.Rows)
	return ds, report, nil
}

// normalizeRecord converts one raw row; derived reports whether paid_amt was computed
func normalizeRecord(rec model.RawRecord) (model.Transaction, bool, error) {
	date, err := utils.ParseDate(rec[model.ColTransactionDate])
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("invalid transaction_date: %w", err)
	}

	t := model.Transaction{
		ID:              strings.TrimSpace(rec[model.ColTransactionID]),
		TransactionDate: date,
		PaymentMethod:   strings.TrimSpace(rec[model.ColPaymentMethod]),
		MerchantName:    strings.TrimSpace(rec[model.ColMerchantName]),
		Location:        strings.TrimSpace(rec[model.ColLocation]),
		DeviceType:      strings.TrimSpace(rec[model.ColDeviceType]),
	}

	paid, err := parseAmount(rec, model.ColPaidAmt)
	if err != nil {
		return model.Transaction{}, false, err
	}
	if paid != nil {
		// components are informational here; an unreadable cell is left empty
		t.ProductAmount, _ = parseAmount(rec, model.ColProductAmount)
		t.TransactionFee, _ = parseAmount(rec, model.ColTransactionFee)
		t.Cashback, _ = parseAmount(rec, model.ColCashback)
		t.PaidAmt = *paid
		return t, false, nil
	}

	if t.ProductAmount, err = parseAmount(rec, model.ColProductAmount); err != nil {
		return model.Transaction{}, false, err
	}
	if t.TransactionFee, err = parseAmount(rec, model.ColTransactionFee); err != nil {
		return model.Transaction{}, false, err
	}
	if t.Cashback, err = parseAmount(rec, model.ColCashback); err != nil {
		return model.Transaction{}, false, err
	}
	if t.ProductAmount == nil || t.TransactionFee == nil || t.Cashback == nil {
		return model.Transaction{}, false, fmt.Errorf("paid_amt is missing and product_amount, transaction_fee, cashback are incomplete")
	}
	t.PaidAmt = *t.ProductAmount + *t.TransactionFee - *t.Cashback
	return t, true, nil
}

// parseAmount returns nil for an empty cell and an error for anything that is not a finite number
func parseAmount(rec model.RawRecord, col string) (*float64, error) {
	s := strings.TrimSpace(rec[col])
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid %s %q", col, s)
	}
	return &v, nil
}
