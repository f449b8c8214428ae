package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"retailcast/internal/demand"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog/log"
)

// ErrSalesForecastMissing is returned when the returns pipeline cannot find its sales input.
var ErrSalesForecastMissing = errors.New("sales forecast not found")

// SalesEntry is one subcategory of the published sales forecast.
type SalesEntry struct {
	ModelSource        string             `json:"model_source"`
	ConfidenceLevel    string             `json:"confidence_level"`
	DailyForecast      map[string]float64 `json:"daily_forecast"`
	TotalHorizonVolume float64            `json:"total_horizon_volume"`
}

// SalesForecast is keyed by the decimal string of the subcategory ID.
type SalesForecast map[string]SalesEntry

// NewSalesForecast converts reconciled records into the published shape.
func NewSalesForecast(records []Record) SalesForecast {
	out := make(SalesForecast, len(records))
	for _, rec := range records {
		daily := make(map[string]float64, len(rec.Horizon))
		for _, p := range rec.Horizon {
			daily[demand.DateKey(p.Date)] = p.Quantity
		}
		out[strconv.Itoa(rec.SubcategoryID)] = SalesEntry{
			ModelSource:        string(rec.Source),
			ConfidenceLevel:    rec.Confidence,
			DailyForecast:      daily,
			TotalHorizonVolume: rec.Total,
		}
	}
	return out
}

// Entry looks up a subcategory by its integer ID.
func (f SalesForecast) Entry(id int) (SalesEntry, bool) {
	e, ok := f[strconv.Itoa(id)]
	return e, ok
}

// Values returns the daily forecast ordered by date.
func (e SalesEntry) Values() []float64 {
	keys := make([]string, 0, len(e.DailyForecast))
	for k := range e.DailyForecast {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = e.DailyForecast[k]
	}
	return out
}

// Future implements ExogProvider: the subcategory's sales forecast in date order, truncated
// to len(dates) and padded with fallback. Unknown IDs are padded entirely.
func (f SalesForecast) Future(id int, dates []time.Time, fallback float64) ([]float64, error) {
	out := make([]float64, len(dates))
	var values []float64
	if e, ok := f.Entry(id); ok {
		values = e.Values()
	}
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = fallback
		}
	}
	return out, nil
}

var salesSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	schema, err := jsonschema.For[SalesForecast](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sales forecast schema: %w", err)
	}
	return schema.Resolve(nil)
})

// LoadSalesForecast reads and validates the sales JSON. A missing file wraps ErrSalesForecastMissing.
func LoadSalesForecast(path string) (SalesForecast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrSalesForecastMissing)
		}
		return nil, fmt.Errorf("failed to read sales forecast: %w", err)
	}

	// 1. Shape check against the schema derived from SalesForecast
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("sales forecast is not valid JSON: %w", err)
	}
	resolved, err := salesSchema()
	if err != nil {
		return nil, err
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("sales forecast failed schema validation: %w", err)
	}

	// 2. Typed decode
	var f SalesForecast
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode sales forecast: %w", err)
	}
	for key := range f {
		if _, err := strconv.Atoi(key); err != nil {
			log.Warn().Str("key", key).Msg("Sales forecast key is not a subcategory ID")
		}
	}
	return f, nil
}
