package routing

import (
	"fmt"
	"slices"

	"retailcast/internal/demand"
	"retailcast/internal/stats"

	"github.com/rs/zerolog/log"
)

// Regime is the signal class a subcategory is routed to.
type Regime string

const (
	HighSignal     Regime = "high_signal"
	ModerateSignal Regime = "moderate_signal"
	LowSignal      Regime = "low_signal"
)

// Regimes lists every regime in routing priority order.
var Regimes = []Regime{HighSignal, ModerateSignal, LowSignal}

// Thresholds configure the router for one subsystem.
type Thresholds struct {
	SpikeRatio     float64 `toml:"spike_ratio"`
	ColdZeroRatio  float64 `toml:"cold_zero_ratio"`
	DenseZeroRatio float64 `toml:"dense_zero_ratio"`
}

// SalesThresholds are the defaults for the sales subsystem.
func SalesThresholds() Thresholds {
	return Thresholds{SpikeRatio: 0.50, ColdZeroRatio: 0.60, DenseZeroRatio: 0.35}
}

// ReturnsThresholds are the defaults for the returns subsystem, which tolerates sparser history.
func ReturnsThresholds() Thresholds {
	return Thresholds{SpikeRatio: 0.70, ColdZeroRatio: 0.85, DenseZeroRatio: 0.40}
}

// Validate checks every ratio lies in [0,1] and the dense bound does not exceed the cold bound.
func (th Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"spike_ratio":      th.SpikeRatio,
		"cold_zero_ratio":  th.ColdZeroRatio,
		"dense_zero_ratio": th.DenseZeroRatio,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if th.DenseZeroRatio > th.ColdZeroRatio {
		return fmt.Errorf("dense_zero_ratio %v exceeds cold_zero_ratio %v", th.DenseZeroRatio, th.ColdZeroRatio)
	}
	return nil
}

// Decision holds the routing statistics for one subcategory. It is never persisted.
type Decision struct {
	SubcategoryID int     `json:"subcategory_id"`
	Name          string  `json:"name"`
	Regime        Regime  `json:"regime"`
	Total         float64 `json:"total"`
	Peak          float64 `json:"peak"`
	SpikeRatio    float64 `json:"spike_ratio"`
	ZeroRatio     float64 `json:"zero_ratio"`
	Reason        string  `json:"reason"`
}

// Classify applies the routing rules to one daily quantity series, first match wins.
func Classify(quantity []float64, th Thresholds) Decision {
	d := Decision{
		Total:     stats.Sum(quantity),
		Peak:      stats.Max(quantity),
		ZeroRatio: stats.ZeroRatio(quantity),
	}
	if d.Total > 0 {
		d.SpikeRatio = d.Peak / d.Total
	} else {
		d.SpikeRatio = 1
	}

	switch {
	case d.Total == 0:
		d.Regime = LowSignal
		d.Reason = "No demand in window"
	case d.SpikeRatio > th.SpikeRatio:
		d.Regime = LowSignal
		d.Reason = fmt.Sprintf("Single day holds %.0f%% of volume (> %.0f%%)", d.SpikeRatio*100, th.SpikeRatio*100)
	case d.ZeroRatio > th.ColdZeroRatio:
		d.Regime = LowSignal
		d.Reason = fmt.Sprintf("Too sparse: %.0f%% zero days (> %.0f%%)", d.ZeroRatio*100, th.ColdZeroRatio*100)
	case d.ZeroRatio <= th.DenseZeroRatio:
		d.Regime = HighSignal
		d.Reason = fmt.Sprintf("Dense history: %.0f%% zero days (<= %.0f%%)", d.ZeroRatio*100, th.DenseZeroRatio*100)
	default:
		d.Regime = ModerateSignal
		d.Reason = fmt.Sprintf("Intermittent history: %.0f%% zero days", d.ZeroRatio*100)
	}
	return d
}

// Annotated pairs a series with the regime it was routed to.
type Annotated struct {
	Series *demand.Series
	Regime Regime
}

// Result is the partition of a table into regime bundles.
type Result struct {
	Decisions map[int]Decision
	Bundles   map[Regime][]*demand.Series
	Annotated []Annotated
	Counts    map[Regime]int
}

// Route classifies every series of the table. The bundles are disjoint and together
// cover every series exactly once.
func Route(t *demand.Table, th Thresholds) Result {
	res := Result{
		Decisions: make(map[int]Decision, len(t.Series)),
		Bundles:   make(map[Regime][]*demand.Series, len(Regimes)),
		Annotated: make([]Annotated, 0, len(t.Series)),
		Counts:    make(map[Regime]int, len(Regimes)),
	}
	for _, r := range Regimes {
		res.Bundles[r] = make([]*demand.Series, 0)
		res.Counts[r] = 0
	}

	for _, s := range t.Series {
		d := Classify(s.Quantity, th)
		d.SubcategoryID = s.ID
		d.Name = s.Name

		res.Decisions[s.ID] = d
		res.Bundles[d.Regime] = append(res.Bundles[d.Regime], s)
		res.Annotated = append(res.Annotated, Annotated{Series: s, Regime: d.Regime})
		res.Counts[d.Regime]++

		log.Debug().
			Int("id", s.ID).
			Str("subcategory", s.Name).
			Str("regime", string(d.Regime)).
			Float64("zero_ratio", d.ZeroRatio).
			Float64("spike_ratio", d.SpikeRatio).
			Msg(d.Reason)
	}

	return res
}

// RegimeOf returns the regime a subcategory ID was routed to.
func (r Result) RegimeOf(id int) (Regime, bool) {
	d, ok := r.Decisions[id]
	return d.Regime, ok
}

// IDs returns every routed subcategory ID in ascending order.
func (r Result) IDs() []int {
	ids := make([]int, 0, len(r.Decisions))
	for id := range r.Decisions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
