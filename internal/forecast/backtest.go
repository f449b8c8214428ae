package forecast

import (
	"context"
	"fmt"
	"slices"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/models"
	"retailcast/internal/routing"
	"retailcast/internal/stats"
)

// BacktestConfig defines the holdout evaluation.
type BacktestConfig struct {
	Holdout int // Trailing days withheld from fitting (e.g., 30)
	Options models.Options
	UseExog bool
}

// BacktestCheckpoint is the holdout error of one subcategory.
type BacktestCheckpoint struct {
	SubcategoryID int            `json:"subcategory_id"`
	Name          string         `json:"name"`
	Regime        routing.Regime `json:"regime"`
	Source        Source         `json:"source"`
	Actual        float64        `json:"actual_total"`
	Predicted     float64        `json:"predicted_total"`
	MAE           float64        `json:"mae"`
	RMSE          float64        `json:"rmse"`
}

// RegimeScore averages the checkpoint errors of one regime.
type RegimeScore struct {
	Count int     `json:"count"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
}

// BacktestResult holds the aggregate results of the analysis.
type BacktestResult struct {
	Holdout           int                            `json:"holdout_days"`
	Checkpoints       []BacktestCheckpoint           `json:"checkpoints"`
	Scores            map[routing.Regime]RegimeScore `json:"scores"`
	ValidationMessage string                         `json:"validation_message"`
}

// Backtest refits each routed series on all but the trailing holdout days and scores the
// forecast of those days. Fits that fail fall back to cold start, as in production inference.
func Backtest(ctx context.Context, t *demand.Table, res routing.Result, cfg BacktestConfig) (BacktestResult, error) {
	out := BacktestResult{Holdout: cfg.Holdout, Scores: map[routing.Regime]RegimeScore{}}
	if cfg.Holdout <= 0 {
		return out, fmt.Errorf("holdout must be positive, got %d", cfg.Holdout)
	}
	n := len(t.Dates)
	if n <= cfg.Holdout*2 {
		out.ValidationMessage = fmt.Sprintf("Not enough history (%d days) for a %d-day holdout", n, cfg.Holdout)
		return out, nil
	}

	split := n - cfg.Holdout
	trainDates, testDates := t.Dates[:split], t.Dates[split:]

	for _, a := range res.Annotated {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s := a.Series
		actual := s.Quantity[split:]

		var trainExog, testExog []float64
		if cfg.UseExog && s.HasExog() {
			trainExog, testExog = s.OrdersLag1[:split], s.OrdersLag1[split:]
		}

		predicted, src := holdoutForecast(s.Quantity[:split], trainDates, testDates, trainExog, testExog, a.Regime, cfg.Options)
		rec := newRecord(s.ID, s.Name, src, nil, testDates, predicted)
		values := rec.Values()

		out.Checkpoints = append(out.Checkpoints, BacktestCheckpoint{
			SubcategoryID: s.ID,
			Name:          s.Name,
			Regime:        a.Regime,
			Source:        src,
			Actual:        stats.Sum(actual),
			Predicted:     rec.Total,
			MAE:           stats.MAE(actual, values),
			RMSE:          stats.RMSE(actual, values),
		})
	}

	slices.SortFunc(out.Checkpoints, func(a, b BacktestCheckpoint) int { return a.SubcategoryID - b.SubcategoryID })

	// Aggregate per regime
	for _, c := range out.Checkpoints {
		sc := out.Scores[c.Regime]
		sc.Count++
		sc.MAE += c.MAE
		sc.RMSE += c.RMSE
		out.Scores[c.Regime] = sc
	}
	for r, sc := range out.Scores {
		sc.MAE = stats.Round(sc.MAE/float64(sc.Count), 3)
		sc.RMSE = stats.Round(sc.RMSE/float64(sc.Count), 3)
		out.Scores[r] = sc
	}

	out.ValidationMessage = fmt.Sprintf("Scored %d subcategories on the last %d days", len(out.Checkpoints), cfg.Holdout)
	return out, nil
}

func holdoutForecast(train []float64, trainDates, testDates []time.Time, trainExog, testExog []float64, regime routing.Regime, opts models.Options) ([]float64, Source) {
	switch regime {
	case routing.HighSignal:
		if m, err := models.FitSeasonal(train, trainExog, opts); err == nil {
			if p, err := m.Predict(len(testDates), testExog); err == nil {
				return p, SourceSeasonal
			}
		}
	case routing.ModerateSignal:
		if m, err := models.FitDecomposition(trainDates, train, trainExog, opts); err == nil {
			if p, err := m.Predict(testDates, testExog); err == nil {
				return p, SourceDecomposition
			}
		}
	}
	return ColdStart(train, len(testDates)), SourceColdStart
}
