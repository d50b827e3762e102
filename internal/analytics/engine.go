// Package analytics computes the dashboard aggregates from a normalized dataset.
// Everything here is a pure function of its arguments: the dataset is only read,
// so any number of recomputes may run concurrently.
package analytics

import (
	"sort"
	"time"

	"wallet_dashboard/internal/model"
)

// Recompute filters the dataset and builds the KPI bundle and the four aggregate tables
func Recompute(ds *model.Dataset, f model.FilterState) *model.AggregateResult {
	var rows []model.Transaction
	if ds != nil {
		rows = ds.Rows
	}
	filtered := Filter(rows, f)

	merchants := groupSum(filtered, func(t *model.Transaction) string { return t.MerchantName })

	res := &model.AggregateResult{
		Filter:            f,
		RevenueByDate:     revenueByDate(filtered),
		RevenueByMethod:   keyTable(model.ColPaymentMethod, groupSum(filtered, func(t *model.Transaction) string { return t.PaymentMethod })),
		TopMerchants:      keyTable(model.ColMerchantName, topN(merchants, model.TopMerchantLimit)),
		RevenueByLocation: keyTable(model.ColLocation, groupSum(filtered, func(t *model.Transaction) string { return t.Location })),
		FilteredRows:      filtered,
	}

	ids := make(map[string]struct{}, len(filtered))
	for i := range filtered {
		res.TotalRevenue += filtered[i].PaidAmt
		if filtered[i].ID != "" {
			ids[filtered[i].ID] = struct{}{}
		}
	}
	res.TotalTransactions = len(ids)
	res.AveragePayment = res.TotalRevenue / float64(max(res.TotalTransactions, 1))
	res.TopDeviceType = topKey(groupSum(filtered, func(t *model.Transaction) string { return t.DeviceType }))

	return res
}

// Filter keeps rows with StartDate <= transaction_date <= EndDate and, unless the
// filter is AllPaymentMethods, an exactly matching payment method. Rows without a
// payment method only pass the AllPaymentMethods filter.
func Filter(rows []model.Transaction, f model.FilterState) []model.Transaction {
	out := make([]model.Transaction, 0)
	for i := range rows {
		t := &rows[i]
		if t.TransactionDate.Before(f.StartDate) || t.TransactionDate.After(f.EndDate) {
			continue
		}
		if f.PaymentMethod != model.AllPaymentMethods && (t.PaymentMethod == "" || t.PaymentMethod != f.PaymentMethod) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

type groupKey struct {
	value   string
	missing bool
}

// groupSum sums paid_amt per key, keys ascending. Empty keys share one bucket
// labelled model.MissingKey, kept apart from a real value spelled the same way
// and ordered after it.
func groupSum(rows []model.Transaction, key func(*model.Transaction) string) []model.KeyAmount {
	index := make(map[groupKey]int)
	groups := make([]model.KeyAmount, 0)
	for i := range rows {
		k := groupKey{value: key(&rows[i])}
		if k.value == "" {
			k = groupKey{value: model.MissingKey, missing: true}
		}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, model.KeyAmount{Key: k.value, Missing: k.missing})
		}
		groups[pos].PaidAmt += rows[i].PaidAmt
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key != groups[j].Key {
			return groups[i].Key < groups[j].Key
		}
		return !groups[i].Missing && groups[j].Missing
	})
	return groups
}

// topN orders groups by revenue descending and keeps the first n. The sort is
// stable over key-ascending input, so equal revenues stay in key order.
func topN(groups []model.KeyAmount, n int) []model.KeyAmount {
	ranked := make([]model.KeyAmount, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].PaidAmt > ranked[j].PaidAmt })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// topKey returns the key with the largest sum, the first key on ties,
// or model.NoTopDevice when there are no groups
func topKey(groups []model.KeyAmount) string {
	if len(groups) == 0 {
		return model.NoTopDevice
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.PaidAmt > best.PaidAmt {
			best = g
		}
	}
	return best.Key
}

// revenueByDate sums paid_amt per distinct timestamp, oldest first
func revenueByDate(rows []model.Transaction) model.DateTable {
	index := make(map[time.Time]int)
	series := make([]model.DateAmount, 0)
	for i := range rows {
		k := rows[i].TransactionDate.UTC().Round(0)
		pos, ok := index[k]
		if !ok {
			pos = len(series)
			index[k] = pos
			series = append(series, model.DateAmount{TransactionDate: rows[i].TransactionDate})
		}
		series[pos].PaidAmt += rows[i].PaidAmt
	}
	sort.Slice(series, func(i, j int) bool { return series[i].TransactionDate.Before(series[j].TransactionDate) })
	return model.DateTable{
		Columns: []string{model.ColTransactionDate, model.ColPaidAmt},
		Rows:    series,
	}
}

func keyTable(column string, rows []model.KeyAmount) model.KeyTable {
	return model.KeyTable{
		Columns: []string{column, model.ColPaidAmt},
		Rows:    rows,
	}
}
