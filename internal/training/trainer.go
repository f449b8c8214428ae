package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/models"
	"retailcast/internal/routing"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Failure records one subcategory that could not be trained.
type Failure struct {
	SubcategoryID int            `json:"subcategory_id"`
	Name          string         `json:"name"`
	Regime        routing.Regime `json:"regime"`
	Error         string         `json:"error"`
}

// Summary reports the outcome of one training batch.
type Summary struct {
	// Skipped is set when the store already held artifacts and retraining was not forced.
	Skipped      bool                   `json:"skipped"`
	Trained      map[routing.Regime]int `json:"trained"`
	Insufficient int                    `json:"insufficient"`
	Failures     []Failure              `json:"failures"`
	Duration     time.Duration          `json:"duration"`
}

// Trainer fits one artifact per routed subcategory and persists it to Store.
type Trainer struct {
	Store            *models.Store
	Options          models.Options
	Workers          int
	PersistColdStart bool
	// UseExog feeds the lagged orders regressor to trained models (returns subsystem).
	UseExog bool
	Force   bool
	RunID   string
}

// Train runs the regime trainers over every routed series. Per-subcategory failures are
// logged and counted; only context cancellation or a store listing error aborts the batch.
func (tr *Trainer) Train(ctx context.Context, t *demand.Table, res routing.Result) (Summary, error) {
	logger := zerolog.Ctx(ctx)
	startedAt := time.Now()
	summary := Summary{Trained: make(map[routing.Regime]int, len(routing.Regimes))}
	for _, r := range routing.Regimes {
		summary.Trained[r] = 0
	}

	// 1. Skip gate
	if !tr.Force {
		empty, err := tr.Store.Empty()
		if err != nil {
			return summary, err
		}
		if !empty {
			logger.Info().Str("dir", tr.Store.Dir()).Msg("Models already present, skipping training")
			summary.Skipped = true
			return summary, nil
		}
	}

	// 2. Bounded fan-out, one task per subcategory
	workers := tr.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, a := range res.Annotated {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			trained, err := tr.trainOne(t.Dates, a.Series, a.Regime)
			if !trained {
				// A retrain must not leave an earlier run's artifact behind for inference to pick up
				if derr := tr.Store.Delete(a.Series.ID); derr != nil {
					logger.Warn().Err(derr).Int("id", a.Series.ID).Msg("Failed to remove stale artifact")
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				if trained {
					summary.Trained[a.Regime]++
				}
			case errors.Is(err, models.ErrInsufficientVolume):
				summary.Insufficient++
				logger.Debug().Int("id", a.Series.ID).Str("subcategory", a.Series.Name).Msg("Skipped: volume too low for decomposition")
			default:
				summary.Failures = append(summary.Failures, Failure{
					SubcategoryID: a.Series.ID,
					Name:          a.Series.Name,
					Regime:        a.Regime,
					Error:         err.Error(),
				})
				logger.Warn().Err(err).Int("id", a.Series.ID).Str("subcategory", a.Series.Name).Str("regime", string(a.Regime)).Msg("Training failed")
			}
			return nil
		})
	}

	err := g.Wait()
	summary.Duration = time.Since(startedAt)

	logger.Info().
		Int("high_signal", summary.Trained[routing.HighSignal]).
		Int("moderate_signal", summary.Trained[routing.ModerateSignal]).
		Int("cold_start", summary.Trained[routing.LowSignal]).
		Int("insufficient", summary.Insufficient).
		Int("failed", len(summary.Failures)).
		Dur("duration", summary.Duration).
		Msg("Training batch finished")

	if err != nil {
		return summary, fmt.Errorf("training interrupted: %w", err)
	}
	return summary, nil
}

// trainOne fits and saves a single artifact. It reports false when the regime persists nothing.
func (tr *Trainer) trainOne(dates []time.Time, s *demand.Series, regime routing.Regime) (bool, error) {
	var exog []float64
	if tr.UseExog && s.HasExog() {
		exog = s.OrdersLag1
	}

	a := &models.Artifact{
		SubcategoryID: s.ID,
		Subcategory:   s.Name,
		TrainedAt:     time.Now().UTC(),
		RunID:         tr.RunID,
	}

	switch regime {
	case routing.HighSignal:
		m, err := models.FitSeasonal(s.Quantity, exog, tr.Options)
		if err != nil {
			return false, err
		}
		a.Kind, a.Seasonal = models.KindSeasonal, m
	case routing.ModerateSignal:
		m, err := models.FitDecomposition(dates, s.Quantity, exog, tr.Options)
		if err != nil {
			return false, err
		}
		a.Kind, a.Decomposition = models.KindDecomposition, m
	case routing.LowSignal:
		if !tr.PersistColdStart {
			return false, nil
		}
		a.Kind, a.ColdStart = models.KindColdStart, models.NewColdStart(s.Name, s.Quantity)
	default:
		return false, fmt.Errorf("unknown regime %q", regime)
	}

	if err := tr.Store.Save(a); err != nil {
		return false, err
	}
	return true, nil
}
