package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"wallet_dashboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func tx(id string, date time.Time, method, merchant, location, device string, amt float64) model.Transaction {
	return model.Transaction{
		ID: id, TransactionDate: date, PaymentMethod: method, MerchantName: merchant,
		Location: location, DeviceType: device, PaidAmt: amt,
	}
}

func dataset(rows ...model.Transaction) *model.Dataset {
	ds := &model.Dataset{Rows: rows, PaymentMethods: []string{model.AllPaymentMethods}}
	for i, r := range rows {
		if i == 0 || r.TransactionDate.Before(ds.MinDate) {
			ds.MinDate = r.TransactionDate
		}
		if i == 0 || r.TransactionDate.After(ds.MaxDate) {
			ds.MaxDate = r.TransactionDate
		}
	}
	return ds
}

func sampleDataset() *model.Dataset {
	return dataset(
		tx("1", day(1), "UPI", "A", "Delhi", "Android", 100),
		tx("2", day(1), "Card", "B", "Mumbai", "iOS", 50),
	)
}

func largeDataset() *model.Dataset {
	methods := []string{"UPI", "Card", "Wallet Balance", ""}
	devices := []string{"Android", "iOS", "Web"}
	locations := []string{"Delhi", "Mumbai", "Pune", ""}
	var rows []model.Transaction
	for i := 0; i < 400; i++ {
		rows = append(rows, tx(
			fmt.Sprint(i%350),
			day(1+i%28).Add(time.Duration(i%3)*time.Hour),
			methods[i%len(methods)],
			fmt.Sprintf("M%02d", i%23),
			locations[i%len(locations)],
			devices[i%len(devices)],
			float64(i%97)*1.37+0.01,
		))
	}
	return dataset(rows...)
}

func TestRecompute_ConcreteScenario(t *testing.T) {
	res := Recompute(sampleDataset(), model.FilterState{StartDate: day(1), EndDate: day(1), PaymentMethod: model.AllPaymentMethods})

	assert.Equal(t, 150.0, res.TotalRevenue)
	assert.Equal(t, 2, res.TotalTransactions)
	assert.Equal(t, 75.0, res.AveragePayment)
	assert.Equal(t, "Android", res.TopDeviceType)
	assert.Equal(t, []model.KeyAmount{{Key: "Card", PaidAmt: 50}, {Key: "UPI", PaidAmt: 100}}, res.RevenueByMethod.Rows)
	assert.Equal(t, []model.DateAmount{{TransactionDate: day(1), PaidAmt: 150}}, res.RevenueByDate.Rows)
	assert.Equal(t, []model.KeyAmount{{Key: "A", PaidAmt: 100}, {Key: "B", PaidAmt: 50}}, res.TopMerchants.Rows)
	assert.Len(t, res.FilteredRows, 2)
}

func TestRecompute_ExactMethodMatch(t *testing.T) {
	ds := sampleDataset()

	res := Recompute(ds, model.FilterState{StartDate: day(1), EndDate: day(1), PaymentMethod: "UPI"})
	require.Len(t, res.FilteredRows, 1)
	assert.Equal(t, "1", res.FilteredRows[0].ID)
	assert.Equal(t, 100.0, res.TotalRevenue)

	res = Recompute(ds, model.FilterState{StartDate: day(1), EndDate: day(1), PaymentMethod: "upi"})
	assert.Empty(t, res.FilteredRows, "matching is case-sensitive")

	res = Recompute(ds, model.FilterState{StartDate: day(1), EndDate: day(1), PaymentMethod: "UP"})
	assert.Empty(t, res.FilteredRows, "no partial matching")
}

func assertEmptyResult(t *testing.T, res *model.AggregateResult) {
	t.Helper()
	assert.Zero(t, res.TotalTransactions)
	assert.Zero(t, res.TotalRevenue)
	assert.Zero(t, res.AveragePayment)
	assert.Equal(t, model.NoTopDevice, res.TopDeviceType)

	assert.Equal(t, []string{model.ColTransactionDate, model.ColPaidAmt}, res.RevenueByDate.Columns)
	assert.Equal(t, []string{model.ColPaymentMethod, model.ColPaidAmt}, res.RevenueByMethod.Columns)
	assert.Equal(t, []string{model.ColMerchantName, model.ColPaidAmt}, res.TopMerchants.Columns)
	assert.Equal(t, []string{model.ColLocation, model.ColPaidAmt}, res.RevenueByLocation.Columns)

	for _, rows := range []any{res.RevenueByDate.Rows, res.RevenueByMethod.Rows, res.TopMerchants.Rows, res.RevenueByLocation.Rows, res.FilteredRows} {
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
}

func TestRecompute_InvertedRangeIsEmpty(t *testing.T) {
	res := Recompute(largeDataset(), model.FilterState{StartDate: day(20), EndDate: day(3), PaymentMethod: model.AllPaymentMethods})
	assertEmptyResult(t, res)
}

func TestRecompute_UnknownMethodIsEmpty(t *testing.T) {
	ds := largeDataset()
	res := Recompute(ds, model.FilterState{StartDate: ds.MinDate, EndDate: ds.MaxDate, PaymentMethod: "Bitcoin"})
	assertEmptyResult(t, res)
}

func TestRecompute_EmptyDataset(t *testing.T) {
	ds := model.EmptyDataset()
	assertEmptyResult(t, Recompute(ds, ds.DefaultFilter()))
	assertEmptyResult(t, Recompute(nil, model.FilterState{PaymentMethod: model.AllPaymentMethods}))
}

func TestRecompute_InclusiveBounds(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", "A", "Delhi", "Android", 1),
		tx("2", day(2), "UPI", "A", "Delhi", "Android", 2),
		tx("3", day(2).Add(time.Hour), "UPI", "A", "Delhi", "Android", 4),
		tx("4", day(3), "UPI", "A", "Delhi", "Android", 8),
	)

	res := Recompute(ds, model.FilterState{StartDate: day(2), EndDate: day(3), PaymentMethod: model.AllPaymentMethods})
	assert.Equal(t, 14.0, res.TotalRevenue)

	res = Recompute(ds, model.FilterState{StartDate: day(2), EndDate: day(2), PaymentMethod: model.AllPaymentMethods})
	assert.Equal(t, 2.0, res.TotalRevenue, "stored time of day is compared as-is")
}

func TestRecompute_FilterMonotonicity(t *testing.T) {
	ds := largeDataset()
	dateOnly := model.FilterState{StartDate: day(5), EndDate: day(15), PaymentMethod: model.AllPaymentMethods}
	base := Recompute(ds, dateOnly)
	assert.NotEmpty(t, base.FilteredRows)

	inTable := make(map[string]bool)
	for _, r := range ds.Rows {
		inTable[fmt.Sprint(r)] = true
	}
	for _, r := range base.FilteredRows {
		assert.True(t, inTable[fmt.Sprint(r)])
	}

	for _, m := range []string{"UPI", "Card", "Wallet Balance", "Bitcoin"} {
		restricted := dateOnly
		restricted.PaymentMethod = m
		res := Recompute(ds, restricted)
		assert.LessOrEqual(t, len(res.FilteredRows), len(base.FilteredRows), m)
		for _, r := range res.FilteredRows {
			assert.Equal(t, m, r.PaymentMethod)
		}
	}
}

func TestRecompute_AverageInvariant(t *testing.T) {
	ds := largeDataset()
	filters := []model.FilterState{
		ds.DefaultFilter(),
		{StartDate: day(3), EndDate: day(9), PaymentMethod: "UPI"},
		{StartDate: day(9), EndDate: day(3), PaymentMethod: model.AllPaymentMethods},
		{StartDate: day(1), EndDate: day(28), PaymentMethod: "Card"},
	}
	for _, f := range filters {
		res := Recompute(ds, f)
		assert.InDelta(t, res.TotalRevenue, res.AveragePayment*float64(max(res.TotalTransactions, 1)), 1e-6)
	}
}

func TestRecompute_DistinctTransactionCount(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", "A", "Delhi", "Android", 10),
		tx("1", day(1), "UPI", "A", "Delhi", "Android", 10),
		tx("2", day(1), "UPI", "A", "Delhi", "Android", 10),
		tx("", day(1), "UPI", "A", "Delhi", "Android", 10),
	)

	res := Recompute(ds, ds.DefaultFilter())
	assert.Equal(t, 2, res.TotalTransactions)
	assert.Equal(t, 40.0, res.TotalRevenue)
	assert.Equal(t, 20.0, res.AveragePayment)
}

func TestRecompute_TopMerchants(t *testing.T) {
	ds := largeDataset()
	res := Recompute(ds, ds.DefaultFilter())

	require.Len(t, res.TopMerchants.Rows, model.TopMerchantLimit)
	for i := 1; i < len(res.TopMerchants.Rows); i++ {
		assert.GreaterOrEqual(t, res.TopMerchants.Rows[i-1].PaidAmt, res.TopMerchants.Rows[i].PaidAmt)
	}

	// nothing left out beats the last kept merchant
	all := groupSum(res.FilteredRows, func(t *model.Transaction) string { return t.MerchantName })
	kept := make(map[string]bool)
	for _, r := range res.TopMerchants.Rows {
		kept[r.Key] = true
	}
	last := res.TopMerchants.Rows[len(res.TopMerchants.Rows)-1].PaidAmt
	for _, g := range all {
		if !kept[g.Key] {
			assert.LessOrEqual(t, g.PaidAmt, last)
		}
	}
}

func TestRecompute_TopMerchantTiesKeepNameOrder(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", "Zeta", "Delhi", "Android", 10),
		tx("2", day(1), "UPI", "Alpha", "Delhi", "Android", 10),
		tx("3", day(1), "UPI", "Mid", "Delhi", "Android", 30),
	)

	res := Recompute(ds, ds.DefaultFilter())
	keys := []string{}
	for _, r := range res.TopMerchants.Rows {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"Mid", "Alpha", "Zeta"}, keys)
}

func TestRecompute_MissingCategoriesAreBucketed(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", "", "", "", 10),
		tx("2", day(1), "", "A", "Delhi", "", 5),
		tx("3", day(1), "UPI", "A", "Delhi", "iOS", 12),
	)

	res := Recompute(ds, ds.DefaultFilter())
	assert.Equal(t, 27.0, res.TotalRevenue)
	assert.Contains(t, res.RevenueByMethod.Rows, model.KeyAmount{Key: model.MissingKey, Missing: true, PaidAmt: 5})
	assert.Contains(t, res.RevenueByLocation.Rows, model.KeyAmount{Key: model.MissingKey, Missing: true, PaidAmt: 10})
	assert.Contains(t, res.TopMerchants.Rows, model.KeyAmount{Key: model.MissingKey, Missing: true, PaidAmt: 10})
	assert.Equal(t, model.MissingKey, res.TopDeviceType)

	res = Recompute(ds, model.FilterState{StartDate: day(1), EndDate: day(1), PaymentMethod: ""})
	assert.Empty(t, res.FilteredRows, "an empty method filter matches nothing")
}

func TestRecompute_LiteralMissingLabelStaysDistinct(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", model.MissingKey, "Delhi", "iOS", 7),
		tx("2", day(1), "UPI", "", "Delhi", "iOS", 3),
		tx("3", day(1), "UPI", "", "Delhi", "iOS", 1),
	)

	res := Recompute(ds, ds.DefaultFilter())
	assert.Equal(t, []model.KeyAmount{
		{Key: model.MissingKey, PaidAmt: 7},
		{Key: model.MissingKey, Missing: true, PaidAmt: 4},
	}, res.TopMerchants.Rows)
}

func TestRecompute_TopDeviceTieTakesFirstKey(t *testing.T) {
	ds := dataset(
		tx("1", day(1), "UPI", "A", "Delhi", "iOS", 10),
		tx("2", day(1), "UPI", "A", "Delhi", "Android", 10),
	)
	assert.Equal(t, "Android", Recompute(ds, ds.DefaultFilter()).TopDeviceType)
}

func TestRecompute_TimeSeriesAscending(t *testing.T) {
	ds := dataset(
		tx("1", day(3), "UPI", "A", "Delhi", "iOS", 1),
		tx("2", day(1), "UPI", "A", "Delhi", "iOS", 2),
		tx("3", day(3), "UPI", "A", "Delhi", "iOS", 4),
		tx("4", day(2), "UPI", "A", "Delhi", "iOS", 8),
	)

	res := Recompute(ds, ds.DefaultFilter())
	assert.Equal(t, []model.DateAmount{
		{TransactionDate: day(1), PaidAmt: 2},
		{TransactionDate: day(2), PaidAmt: 8},
		{TransactionDate: day(3), PaidAmt: 5},
	}, res.RevenueByDate.Rows)
}

func TestRecompute_TimeSeriesOutsideNanosecondRange(t *testing.T) {
	early := time.Date(1500, 3, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2300, 3, 1, 0, 0, 0, 0, time.UTC)
	ds := dataset(
		tx("1", late, "UPI", "A", "Delhi", "iOS", 1),
		tx("2", early, "UPI", "A", "Delhi", "iOS", 2),
		tx("3", day(1), "UPI", "A", "Delhi", "iOS", 4),
		tx("4", late, "UPI", "A", "Delhi", "iOS", 8),
		tx("5", early.In(time.FixedZone("IST", 19800)), "UPI", "A", "Delhi", "iOS", 16),
	)

	res := Recompute(ds, ds.DefaultFilter())
	require.Len(t, res.RevenueByDate.Rows, 3)
	assert.True(t, res.RevenueByDate.Rows[0].TransactionDate.Equal(early))
	assert.Equal(t, 18.0, res.RevenueByDate.Rows[0].PaidAmt)
	assert.True(t, res.RevenueByDate.Rows[1].TransactionDate.Equal(day(1)))
	assert.Equal(t, 4.0, res.RevenueByDate.Rows[1].PaidAmt)
	assert.True(t, res.RevenueByDate.Rows[2].TransactionDate.Equal(late))
	assert.Equal(t, 9.0, res.RevenueByDate.Rows[2].PaidAmt)
}

func TestRecompute_DoesNotMutateDataset(t *testing.T) {
	ds := sampleDataset()
	before := append([]model.Transaction(nil), ds.Rows...)

	res := Recompute(ds, ds.DefaultFilter())
	res.FilteredRows[0].PaidAmt = -1

	assert.Equal(t, before, ds.Rows)
}

func TestRecompute_Reentrant(t *testing.T) {
	ds := largeDataset()
	f := model.FilterState{StartDate: day(2), EndDate: day(27), PaymentMethod: model.AllPaymentMethods}

	first := Recompute(ds, f)
	second := Recompute(ds, f)
	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.TotalRevenue), math.Float64bits(second.TotalRevenue))
}

func TestRecompute_Concurrent(t *testing.T) {
	ds := largeDataset()
	filters := []model.FilterState{
		ds.DefaultFilter(),
		{StartDate: day(3), EndDate: day(9), PaymentMethod: "UPI"},
		{StartDate: day(10), EndDate: day(20), PaymentMethod: "Card"},
	}
	expected := make([]*model.AggregateResult, len(filters))
	for i, f := range filters {
		expected[i] = Recompute(ds, f)
	}

	var g errgroup.Group
	for n := 0; n < 32; n++ {
		i := n % len(filters)
		g.Go(func() error {
			got := Recompute(ds, filters[i])
			if got.TotalRevenue != expected[i].TotalRevenue || len(got.FilteredRows) != len(expected[i].FilteredRows) {
				return fmt.Errorf("filter %d: result drifted", i)
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
}
