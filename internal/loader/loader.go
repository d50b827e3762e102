package loader

import (
	"context"

	"wallet_dashboard/internal/model"

	"github.com/sirupsen/logrus"
)

// maxLoggedRejections bounds per-row warnings on a dirty file
const maxLoggedRejections = 20

// Loader acquires and normalizes the transaction table once at startup
type Loader struct {
	source Source
	log    *logrus.Logger
}

// New creates a Loader reading from source
func New(source Source, log *logrus.Logger) *Loader {
	return &Loader{source: source, log: log}
}

// Load returns the normalized dataset. Failing to read the source is not fatal:
// the error is logged and an empty dataset is returned. A schema that lacks
// required columns is returned as an ErrSchema error.
func (l *Loader) Load(ctx context.Context) (*model.Dataset, LoadReport, error) {
	entry := l.log.WithField("source", l.source.Name())

	raw, err := l.source.Load(ctx)
	if err != nil {
		entry.WithError(err).Error("Error loading raw data, continuing with an empty dataset")
		return model.EmptyDataset(), LoadReport{Source: l.source.Name()}, nil
	}

	ds, report, err := Normalize(raw)
	report.Source = l.source.Name()
	if err != nil {
		entry.WithError(err).Error("Transaction schema rejected")
		return nil, report, err
	}

	for i, r := range report.Rejected {
		if i == maxLoggedRejections {
			entry.Warnf("%d more rows rejected", len(report.Rejected)-maxLoggedRejections)
			break
		}
		entry.WithFields(logrus.Fields{"row": r.Row, "transaction_id": r.ID}).Warn("Rejected row: " + r.Reason)
	}

	entry.WithFields(logrus.Fields{
		"rows":             report.LoadedRows,
		"rejected":         len(report.Rejected),
		"derived_paid_amt": report.DerivedPaidAmt,
		"payment_methods":  len(ds.PaymentMethods) - 1,
	}).Info("Digital payments transactions loaded")
	return ds, report, nil
}
