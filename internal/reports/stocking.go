package reports

import (
	"strconv"

	"retailcast/internal/forecast"
	"retailcast/internal/stats"
)

const (
	trainedErrorMargin = 0.15
	volatileCV         = 0.5
	volatileBuffer     = 0.30
	steadyBuffer       = 0.15
)

// StockingEntry is the inventory recommendation for one subcategory.
type StockingEntry struct {
	ItemID                   string  `json:"item_id"`
	ForecastedSalesTotal     float64 `json:"forecasted_sales_total"`
	SafetyStockEstimate      float64 `json:"safety_stock_estimate"`
	TotalStockRecommendation float64 `json:"total_stock_recommendation"`
	ModelUsed                string  `json:"model_used"`
	StockLogic               string  `json:"stock_logic"`
}

// StockingReport is keyed by the decimal subcategory ID, matching the sales forecast.
type StockingReport map[string]StockingEntry

// BuildStockingReport sizes safety stock per subcategory from its sales forecast.
// Trained forecasts get an error margin capped at half a horizon of median demand;
// cold-start forecasts get a volatility buffer.
func BuildStockingReport(sales forecast.SalesForecast, horizon int) StockingReport {
	out := make(StockingReport, len(sales))
	for id, e := range sales {
		daily := e.Values()
		total := e.TotalHorizonVolume

		var safety float64
		logic := "Error-Adjusted"
		if forecast.Source(e.ModelSource) == forecast.SourceColdStart {
			logic = "Volatility-Adjusted"
			buffer := steadyBuffer
			if stats.CoefficientOfVariation(daily) > volatileCV {
				buffer = volatileBuffer
			}
			safety = total * buffer
		} else {
			safety = min(total*trainedErrorMargin, stats.Median(daily)*float64(horizon)/2)
		}

		out[id] = StockingEntry{
			ItemID:                   id,
			ForecastedSalesTotal:     stats.Round(total, 2),
			SafetyStockEstimate:      stats.Round(safety, 2),
			TotalStockRecommendation: stats.Round(total+safety, 2),
			ModelUsed:                e.ModelSource,
			StockLogic:               logic,
		}
	}
	return out
}

// Entry looks up a subcategory by its integer ID.
func (r StockingReport) Entry(id int) (StockingEntry, bool) {
	e, ok := r[strconv.Itoa(id)]
	return e, ok
}
