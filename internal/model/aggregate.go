package model

import "time"

// DateAmount is one row of the revenue time series
type DateAmount struct {
	TransactionDate time.Time `json:"transaction_date"`
	PaidAmt         float64   `json:"paid_amt"`
}

// DateTable is the revenue-by-date table
type DateTable struct {
	Columns []string     `json:"columns"`
	Rows    []DateAmount `json:"rows"`
}

// KeyAmount is one row of a categorical breakdown. Missing marks the bucket of
// rows with no value; its Key is MissingKey for display only.
type KeyAmount struct {
	Key     string  `json:"key"`
	Missing bool    `json:"missing,omitempty"`
	PaidAmt float64 `json:"paid_amt"`
}

// KeyTable is a categorical breakdown; Columns[0] names what Key holds
type KeyTable struct {
	Columns []string    `json:"columns"`
	Rows    []KeyAmount `json:"rows"`
}

// AggregateResult is everything one recompute produces
type AggregateResult struct {
	Filter            FilterState   `json:"filter"`
	TotalRevenue      float64       `json:"total_revenue"`
	TotalTransactions int           `json:"total_transactions"`
	AveragePayment    float64       `json:"average_payment"`
	TopDeviceType     string        `json:"top_device_type"`
	RevenueByDate     DateTable     `json:"revenue_by_date"`
	RevenueByMethod   KeyTable      `json:"revenue_by_method"`
	TopMerchants      KeyTable      `json:"top_merchants"`
	RevenueByLocation KeyTable      `json:"revenue_by_location"`
	FilteredRows      []Transaction `json:"filtered_rows"`
}

// DisplaySummary is the KPI bundle formatted for presentation
type DisplaySummary struct {
	TotalRevenue      string `json:"total_revenue"`
	TotalTransactions int    `json:"total_transactions"`
	AveragePayment    string `json:"average_payment"`
	TopDeviceType     string `json:"top_device_type"`
}

// Chart types understood by the frontend
const (
	ChartTypeLine   = "line"
	ChartTypeBar    = "bar"
	ChartTypeBubble = "bubble"
	ChartTypePie    = "pie"
)

// ChartView binds one aggregate table to a chart description
type ChartView struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	X      string `json:"x,omitempty"`
	Y      string `json:"y,omitempty"`
	Labels string `json:"labels,omitempty"`
	Values string `json:"values,omitempty"`
	Data   any    `json:"data"`
}
