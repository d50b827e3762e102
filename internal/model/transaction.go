package model

import "time"

const (
	// AllPaymentMethods is the filter value that disables the payment method restriction
	AllPaymentMethods = "All Methods"
	// NoTopDevice is reported as top device type when no rows match the filters
	NoTopDevice = "--"
	// MissingKey labels the bucket of rows whose categorical value is empty
	MissingKey = "(missing)"
	// TopMerchantLimit caps the merchant ranking table
	TopMerchantLimit = 15
)

// Column names of the transaction table
const (
	ColTransactionID   = "transaction_id"
	ColTransactionDate = "transaction_date"
	ColPaymentMethod   = "payment_method"
	ColMerchantName    = "merchant_name"
	ColLocation        = "location"
	ColDeviceType      = "device_type"
	ColProductAmount   = "product_amount"
	ColTransactionFee  = "transaction_fee"
	ColCashback        = "cashback"
	ColPaidAmt         = "paid_amt"
)

// TransactionColumns lists the columns of a normalized table in export order
var TransactionColumns = []string{
	ColTransactionID, ColTransactionDate, ColPaymentMethod, ColMerchantName, ColLocation,
	ColDeviceType, ColProductAmount, ColTransactionFee, ColCashback, ColPaidAmt,
}

// Transaction is one normalized row of the wallet transaction table
type Transaction struct {
	ID              string    `json:"transaction_id"`
	TransactionDate time.Time `json:"transaction_date"`
	PaymentMethod   string    `json:"payment_method"`
	MerchantName    string    `json:"merchant_name"`
	Location        string    `json:"location"`
	DeviceType      string    `json:"device_type"`
	ProductAmount   *float64  `json:"product_amount,omitempty"` // nil when the source left it empty
	TransactionFee  *float64  `json:"transaction_fee,omitempty"`
	Cashback        *float64  `json:"cashback,omitempty"`
	PaidAmt         float64   `json:"paid_amt"`
}

// RawRecord is a source row before normalization, keyed by column name.
// A missing value is either absent from the map or an empty string.
type RawRecord map[string]string

// RawTable is what a data source hands to the normalizer
type RawTable struct {
	Columns []string
	Rows    []RawRecord
}

// HasColumn reports whether the source supplied the named column
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Dataset is the normalized, read-only transaction table.
// It is built once by the loader and never mutated afterwards.
type Dataset struct {
	Rows           []Transaction
	PaymentMethods []string // AllPaymentMethods first, then distinct methods ascending
	MinDate        time.Time
	MaxDate        time.Time
}

// EmptyDataset is the degraded-mode table used when loading fails
func EmptyDataset() *Dataset {
	return &Dataset{
		Rows:           []Transaction{},
		PaymentMethods: []string{AllPaymentMethods},
	}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// DefaultFilter covers the full date range with no payment method restriction
func (d *Dataset) DefaultFilter() FilterState {
	return FilterState{
		StartDate:     d.MinDate,
		EndDate:       d.MaxDate,
		PaymentMethod: AllPaymentMethods,
	}
}

// Options returns the valid filter domain of the dataset
func (d *Dataset) Options() FilterOptions {
	methods := make([]string, len(d.PaymentMethods))
	copy(methods, d.PaymentMethods)
	return FilterOptions{
		PaymentMethods: methods,
		MinDate:        d.MinDate,
		MaxDate:        d.MaxDate,
	}
}

// FilterState is a snapshot of the dashboard filters for one recompute
type FilterState struct {
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	PaymentMethod string    `json:"payment_method"`
}

// FilterOptions describes the values a client may pick from
type FilterOptions struct {
	PaymentMethods []string  `json:"payment_methods"`
	MinDate        time.Time `json:"min_date"`
	MaxDate        time.Time `json:"max_date"`
}
