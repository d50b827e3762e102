package analytics

import (
	"errors"

	"wallet_dashboard/internal/model"
)

// Names of the four chart views
const (
	ChartRevenueOverTime = "Total Revenue over time"
	ChartRevenueByMethod = "Revenue by Payment Method"
	ChartTopMerchants    = "Top Merchant Names"
	ChartLocations       = "Location Demographics"
)

// ChartNames lists the views in menu order
var ChartNames = []string{ChartRevenueOverTime, ChartRevenueByMethod, ChartTopMerchants, ChartLocations}

var ErrUnknownChart = errors.New("unknown chart")

// Charts binds every aggregate table of res to its chart description
func Charts(res *model.AggregateResult) []model.ChartView {
	views := make([]model.ChartView, 0, len(ChartNames))
	for _, name := range ChartNames {
		v, _ := ChartByName(res, name)
		views = append(views, v)
	}
	return views
}

// ChartByName returns a single chart view
func ChartByName(res *model.AggregateResult, name string) (model.ChartView, error) {
	switch name {
	case ChartRevenueOverTime:
		return model.ChartView{Name: name, Type: model.ChartTypeLine, X: model.ColTransactionDate, Y: model.ColPaidAmt, Data: res.RevenueByDate}, nil
	case ChartRevenueByMethod:
		return model.ChartView{Name: name, Type: model.ChartTypeBar, X: model.ColPaymentMethod, Y: model.ColPaidAmt, Data: res.RevenueByMethod}, nil
	case ChartTopMerchants:
		return model.ChartView{Name: name, Type: model.ChartTypeBubble, X: model.ColMerchantName, Y: model.ColPaidAmt, Data: res.TopMerchants}, nil
	case ChartLocations:
		return model.ChartView{Name: name, Type: model.ChartTypePie, Labels: model.ColLocation, Values: model.ColPaidAmt, Data: res.RevenueByLocation}, nil
	}
	return model.ChartView{}, ErrUnknownChart
}
