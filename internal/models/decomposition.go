package models

import (
	"fmt"
	"math"
	"time"

	"retailcast/internal/demand"
)

// yearlyMinDays is the shortest history that enables yearly Fourier terms.
const yearlyMinDays = 180

// Decomposition is an additive trend + weekly + yearly + payday model fit by ridge least squares.
type Decomposition struct {
	Origin       time.Time `json:"origin"`
	SpanDays     float64   `json:"span_days"`
	YearlyTerms  int       `json:"yearly_terms"`
	HasExog      bool      `json:"has_exog"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Sigma2       float64   `json:"sigma2"`
}

func (m *Decomposition) featureNames() []string {
	names := []string{"intercept", "trend"}
	for _, wd := range []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		names = append(names, "dow_"+wd.String()[:3])
	}
	for k := 1; k <= m.YearlyTerms; k++ {
		names = append(names, fmt.Sprintf("yearly_sin_%d", k), fmt.Sprintf("yearly_cos_%d", k))
	}
	names = append(names, "is_payday")
	if m.HasExog {
		names = append(names, "orders_lag1")
	}
	return names
}

// row builds the feature vector for one date. Monday is the weekday baseline.
func (m *Decomposition) row(d time.Time, x float64) []float64 {
	r := make([]float64, 0, len(m.Features))
	r = append(r, 1, float64(demand.DaysBetween(m.Origin, d))/m.SpanDays)

	wd := d.Weekday()
	for _, w := range []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if wd == w {
			r = append(r, 1)
		} else {
			r = append(r, 0)
		}
	}

	phase := 2 * math.Pi * float64(d.YearDay()) / 365.25
	for k := 1; k <= m.YearlyTerms; k++ {
		r = append(r, math.Sin(float64(k)*phase), math.Cos(float64(k)*phase))
	}

	if demand.IsPayday(d) {
		r = append(r, 1)
	} else {
		r = append(r, 0)
	}
	if m.HasExog {
		r = append(r, x)
	}
	return r
}

// FitDecomposition fits the additive model on dates/y. exog may be nil.
// Series whose total volume is below MinDecompositionVolume return ErrInsufficientVolume.
func FitDecomposition(dates []time.Time, y, exog []float64, opts Options) (*Decomposition, error) {
	if len(dates) != len(y) {
		return nil, fmt.Errorf("%d dates for %d observations", len(dates), len(y))
	}
	if exog != nil && len(exog) != len(y) {
		return nil, fmt.Errorf("exogenous series has %d values for %d observations", len(exog), len(y))
	}
	if len(y) < 14 {
		return nil, fmt.Errorf("%w: %d days, need 14", ErrInsufficientHistory, len(y))
	}

	total := 0.0
	for _, v := range y {
		total += v
	}
	if total < opts.MinDecompositionVolume {
		return nil, fmt.Errorf("%w: total %.2f below %.2f", ErrInsufficientVolume, total, opts.MinDecompositionVolume)
	}

	m := &Decomposition{
		Origin:   demand.Day(dates[0]),
		SpanDays: math.Max(float64(demand.DaysBetween(dates[0], dates[len(dates)-1])), 1),
		HasExog:  exog != nil,
	}
	if len(dates) >= yearlyMinDays {
		m.YearlyTerms = opts.YearlyTerms
	}
	m.Features = m.featureNames()

	rows := make([][]float64, len(y))
	for i, d := range dates {
		x := 0.0
		if exog != nil {
			x = exog[i]
		}
		rows[i] = m.row(d, x)
	}

	beta, err := ridgeSolve(rows, y, opts.Ridge)
	if err != nil {
		return nil, err
	}
	m.Coefficients = beta
	m.Sigma2 = residualVariance(rows, y, beta)
	return m, nil
}

// Predict evaluates the model on future dates. Negative values are clipped to zero.
func (m *Decomposition) Predict(dates []time.Time, futureExog []float64) ([]float64, error) {
	if m.HasExog && len(futureExog) < len(dates) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrMissingExog, len(futureExog), len(dates))
	}
	if len(m.Coefficients) != len(m.featureNames()) {
		return nil, fmt.Errorf("model carries %d coefficients for %d features", len(m.Coefficients), len(m.featureNames()))
	}

	out := make([]float64, len(dates))
	for i, d := range dates {
		x := 0.0
		if m.HasExog {
			x = futureExog[i]
		}
		out[i] = math.Max(0, dot(m.row(d, x), m.Coefficients))
	}
	return out, nil
}
