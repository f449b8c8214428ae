package forecast

import (
	"math"
	"time"

	"retailcast/internal/models"
	"retailcast/internal/stats"
)

// Source names the method that produced a forecast.
type Source string

const (
	SourceSeasonal      Source = "SeasonalAR"
	SourceDecomposition Source = "Decomposition"
	SourceColdStart     Source = "ColdStart"
)

// SourceFor maps an artifact kind to its forecast source.
func SourceFor(k models.Kind) Source {
	switch k {
	case models.KindSeasonal:
		return SourceSeasonal
	case models.KindDecomposition:
		return SourceDecomposition
	default:
		return SourceColdStart
	}
}

// Labels are the fixed confidence labels per source for one subsystem.
type Labels map[Source]string

// SalesLabels are attached to sales forecasts.
var SalesLabels = Labels{
	SourceSeasonal:      "High (90-95%)",
	SourceDecomposition: "Medium-High (80-85%)",
	SourceColdStart:     "Low (60-65%)",
}

// ReturnsLabels are attached to returns forecasts.
var ReturnsLabels = Labels{
	SourceSeasonal:      "95.0%",
	SourceDecomposition: "85.0%",
	SourceColdStart:     "65.0%",
}

// Point is one forecast day.
type Point struct {
	Date     time.Time
	Quantity float64
}

// Record is the per-subcategory forecast for one run.
type Record struct {
	SubcategoryID int
	Name          string
	Source        Source
	Confidence    string
	Horizon       []Point
	Total         float64
	// Fallback explains why a trained model was not used, empty otherwise.
	Fallback string
}

// Values returns the daily quantities in date order.
func (r Record) Values() []float64 {
	out := make([]float64, len(r.Horizon))
	for i, p := range r.Horizon {
		out[i] = p.Quantity
	}
	return out
}

// Start is the first forecast day.
func (r Record) Start() time.Time {
	if len(r.Horizon) == 0 {
		return time.Time{}
	}
	return r.Horizon[0].Date
}

// End is the last forecast day.
func (r Record) End() time.Time {
	if len(r.Horizon) == 0 {
		return time.Time{}
	}
	return r.Horizon[len(r.Horizon)-1].Date
}

// newRecord floors every value at zero, rounds to cents and totals the horizon.
func newRecord(id int, name string, src Source, labels Labels, dates []time.Time, values []float64) Record {
	rec := Record{
		SubcategoryID: id,
		Name:          name,
		Source:        src,
		Confidence:    labels[src],
		Horizon:       make([]Point, len(dates)),
	}
	sum := 0.0
	for i, d := range dates {
		v := 0.0
		if i < len(values) && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			v = stats.Round(math.Max(0, values[i]), 2)
		}
		rec.Horizon[i] = Point{Date: d, Quantity: v}
		sum += v
	}
	rec.Total = math.Max(0, math.Round(sum))
	return rec
}
