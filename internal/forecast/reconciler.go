package forecast

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/models"
	"retailcast/internal/stats"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ExogProvider supplies future values of the exogenous regressor for one subcategory.
// The result must hold exactly len(dates) values.
type ExogProvider interface {
	Future(id int, dates []time.Time, fallback float64) ([]float64, error)
}

// Reconciler merges trained artifacts and cold-start fallbacks into one forecast per subcategory.
type Reconciler struct {
	Store   *models.Store
	Labels  Labels
	Exog    ExogProvider
	Workers int
}

// Forecast produces exactly one record per series of t, ordered by subcategory ID, each
// spanning exactly horizon days after the last observed date.
func (r *Reconciler) Forecast(ctx context.Context, t *demand.Table, horizon int) ([]Record, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	logger := zerolog.Ctx(ctx)
	dates := demand.FutureDates(t.LastDate(), horizon)

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	records := make([]Record, 0, len(t.Series))
	for _, s := range t.Series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := r.forecastOne(logger, s, dates)

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("inference interrupted: %w", err)
	}

	slices.SortFunc(records, func(a, b Record) int { return a.SubcategoryID - b.SubcategoryID })

	counts := map[Source]int{}
	for _, rec := range records {
		counts[rec.Source]++
	}
	logger.Info().
		Int("seasonal", counts[SourceSeasonal]).
		Int("decomposition", counts[SourceDecomposition]).
		Int("cold_start", counts[SourceColdStart]).
		Int("horizon", horizon).
		Msg("Forecasts reconciled")

	return records, nil
}

func (r *Reconciler) forecastOne(logger *zerolog.Logger, s *demand.Series, dates []time.Time) Record {
	coldStart := func(reason string) Record {
		rec := newRecord(s.ID, s.Name, SourceColdStart, r.Labels, dates, ColdStart(s.Quantity, len(dates)))
		rec.Fallback = reason
		return rec
	}

	// 1. Load
	a, err := r.Store.Load(s.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logger.Warn().Err(err).Int("id", s.ID).Str("subcategory", s.Name).Msg("Artifact unreadable, using cold start")
			return coldStart("load failed")
		}
		return coldStart("")
	}

	// 2. Dispatch on kind
	var values []float64
	switch a.Kind {
	case models.KindSeasonal:
		var exog []float64
		if a.Seasonal.HasExog {
			if exog, err = r.future(s, dates); err != nil {
				break
			}
		}
		values, err = a.Seasonal.Predict(len(dates), exog)
	case models.KindDecomposition:
		var exog []float64
		if a.Decomposition.HasExog {
			if exog, err = r.future(s, dates); err != nil {
				break
			}
		}
		values, err = a.Decomposition.Predict(dates, exog)
	default:
		return coldStart("")
	}

	// 3. Any prediction failure degrades to the heuristic
	if err != nil {
		logger.Warn().Err(err).Int("id", s.ID).Str("subcategory", s.Name).Str("kind", string(a.Kind)).Msg("Prediction failed, using cold start")
		return coldStart("predict failed")
	}
	return newRecord(s.ID, s.Name, SourceFor(a.Kind), r.Labels, dates, values)
}

func (r *Reconciler) future(s *demand.Series, dates []time.Time) ([]float64, error) {
	if r.Exog == nil {
		return nil, models.ErrMissingExog
	}
	return r.Exog.Future(s.ID, dates, stats.Mean(s.Orders))
}
