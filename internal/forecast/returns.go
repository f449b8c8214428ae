package forecast

import "retailcast/internal/demand"

// ReturnsEntry is one subcategory of the published returns forecast.
type ReturnsEntry struct {
	SubcategoryName       string  `json:"SubcategoryName"`
	SubcategoryID         int     `json:"SubcategoryID"`
	PredictedReturnsTotal float64 `json:"Predicted_Returns_Total"`
	ConfidenceRating      string  `json:"Confidence_Rating"`
	ModelUsed             string  `json:"Model_Used"`
	ForecastStart         string  `json:"Forecast_Start"`
	ForecastEnd           string  `json:"Forecast_End"`
}

// NewReturnsForecast converts reconciled records into the published array.
func NewReturnsForecast(records []Record) []ReturnsEntry {
	out := make([]ReturnsEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, ReturnsEntry{
			SubcategoryName:       rec.Name,
			SubcategoryID:         rec.SubcategoryID,
			PredictedReturnsTotal: rec.Total,
			ConfidenceRating:      rec.Confidence,
			ModelUsed:             string(rec.Source),
			ForecastStart:         demand.DateKey(rec.Start()),
			ForecastEnd:           demand.DateKey(rec.End()),
		})
	}
	return out
}
