package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"sync/atomic"

	"wallet_dashboard/internal/analytics"
	"wallet_dashboard/internal/loader"
	"wallet_dashboard/internal/model"
	"wallet_dashboard/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	exportDateLayout = "2006-01-02 15:04:05"
	debugHeadRows    = 5
)

// DatasetLoader produces a normalized dataset
type DatasetLoader interface {
	Load(ctx context.Context) (*model.Dataset, loader.LoadReport, error)
}

// DashboardService defines the operations behind the dashboard
type DashboardService interface {
	Options() model.FilterOptions
	DefaultFilter() model.FilterState
	DatasetSize() int
	LastReport() loader.LoadReport
	Reload(ctx context.Context) (loader.LoadReport, error)

	Recompute(ctx context.Context, filter model.FilterState) (*model.AggregateResult, error)
	Summary(ctx context.Context, filter model.FilterState) (*model.DisplaySummary, error)
	Charts(ctx context.Context, filter model.FilterState) ([]model.ChartView, error)
	Chart(ctx context.Context, filter model.FilterState, name string) (model.ChartView, error)
	ExportFilteredCSV(ctx context.Context, filter model.FilterState) (*bytes.Buffer, error)
}

type snapshot struct {
	dataset *model.Dataset
	report  loader.LoadReport
}

type dashboardService struct {
	loader         DatasetLoader
	currencyPrefix string
	log            *logrus.Logger
	current        atomic.Pointer[snapshot]
}

// NewDashboardService creates a DashboardService. It serves an empty dataset until Reload succeeds.
func NewDashboardService(l DatasetLoader, currencyPrefix string, log *logrus.Logger) DashboardService {
	s := &dashboardService{loader: l, currencyPrefix: currencyPrefix, log: log}
	s.current.Store(&snapshot{dataset: model.EmptyDataset()})
	return s
}

func (s *dashboardService) dataset() *model.Dataset {
	return s.current.Load().dataset
}

func (s *dashboardService) Options() model.FilterOptions {
	return s.dataset().Options()
}

func (s *dashboardService) DefaultFilter() model.FilterState {
	return s.dataset().DefaultFilter()
}

func (s *dashboardService) DatasetSize() int {
	return s.dataset().Len()
}

func (s *dashboardService) LastReport() loader.LoadReport {
	return s.current.Load().report
}

// Reload loads the dataset again and swaps it in. On error the previous dataset stays active.
func (s *dashboardService) Reload(ctx context.Context) (loader.LoadReport, error) {
	ds, report, err := s.loader.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load dataset: %w", err)
	}
	s.current.Store(&snapshot{dataset: ds, report: report})
	return report, nil
}

func (s *dashboardService) Recompute(ctx context.Context, filter model.FilterState) (*model.AggregateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := analytics.Recompute(s.dataset(), filter)

	if s.log.IsLevelEnabled(logrus.DebugLevel) {
		s.logResult(res)
	}
	return res, nil
}

func (s *dashboardService) logResult(res *model.AggregateResult) {
	entry := s.log.WithFields(logrus.Fields{
		"start_date":     res.Filter.StartDate,
		"end_date":       res.Filter.EndDate,
		"payment_method": res.Filter.PaymentMethod,
		"rows":           len(res.FilteredRows),
	})
	entry.Debug("Recomputed dashboard")
	entry.Debugf("Revenue over time: %v", head(res.RevenueByDate.Rows))
	entry.Debugf("Payment method wise: %v", head(res.RevenueByMethod.Rows))
	entry.Debugf("Top performing merchants: %v", head(res.TopMerchants.Rows))
	entry.Debugf("Location wise payments made: %v", head(res.RevenueByLocation.Rows))
}

func head[T any](rows []T) []T {
	if len(rows) > debugHeadRows {
		return rows[:debugHeadRows]
	}
	return rows
}

func (s *dashboardService) Summary(ctx context.Context, filter model.FilterState) (*model.DisplaySummary, error) {
	res, err := s.Recompute(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &model.DisplaySummary{
		TotalRevenue:      utils.FormatCurrency(s.currencyPrefix, res.TotalRevenue),
		TotalTransactions: res.TotalTransactions,
		AveragePayment:    utils.FormatCurrency(s.currencyPrefix, res.AveragePayment),
		TopDeviceType:     res.TopDeviceType,
	}, nil
}

func (s *dashboardService) Charts(ctx context.Context, filter model.FilterState) ([]model.ChartView, error) {
	res, err := s.Recompute(ctx, filter)
	if err != nil {
		return nil, err
	}
	return analytics.Charts(res), nil
}

func (s *dashboardService) Chart(ctx context.Context, filter model.FilterState, name string) (model.ChartView, error) {
	res, err := s.Recompute(ctx, filter)
	if err != nil {
		return model.ChartView{}, err
	}
	return analytics.ChartByName(res, name)
}

func (s *dashboardService) ExportFilteredCSV(ctx context.Context, filter model.FilterState) (*bytes.Buffer, error) {
	res, err := s.Recompute(ctx, filter)
	if err != nil {
		return nil, err
	}

	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)

	if err := writer.Write(model.TransactionColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, t := range res.FilteredRows {
		row := []string{
			t.ID,
			t.TransactionDate.Format(exportDateLayout),
			t.PaymentMethod,
			t.MerchantName,
			t.Location,
			t.DeviceType,
			formatOptional(t.ProductAmount),
			formatOptional(t.TransactionFee),
			formatOptional(t.Cashback),
			strconv.FormatFloat(t.PaidAmt, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return buffer, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
