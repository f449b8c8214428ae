package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"retailcast/internal/demand"
	"retailcast/internal/forecast"
	"retailcast/internal/routing"

	"github.com/rs/zerolog"
)

// BacktestFile is written under the subsystem's output directory.
const BacktestFile = "backtest.json"

// Backtest scores the routed models of one subsystem on a trailing holdout. No artifacts are
// written; only the backtest report is.
func (p *Pipeline) Backtest(ctx context.Context, subsystem string, holdout int) (forecast.BacktestResult, error) {
	ds, err := p.load(ctx)
	if err != nil {
		return forecast.BacktestResult{}, err
	}

	var (
		t       *demand.Table
		th      routing.Thresholds
		dir     string
		useExog bool
	)
	switch subsystem {
	case Sales:
		t, err = p.salesTable(ds)
		th, dir = p.cfg.Router.Sales, p.cfg.SalesOutputDir()
	case Returns:
		t, err = p.returnsTable(ds)
		th, dir, useExog = p.cfg.Router.Returns, p.cfg.ReturnsOutputDir(), true
	default:
		return forecast.BacktestResult{}, fmt.Errorf("unknown subsystem %q", subsystem)
	}
	if err != nil {
		return forecast.BacktestResult{}, err
	}

	res := routing.Route(t, th)
	out, err := forecast.Backtest(ctx, t, res, forecast.BacktestConfig{
		Holdout: holdout,
		Options: p.cfg.Router.Models,
		UseExog: useExog,
	})
	if err != nil {
		return out, err
	}

	path := filepath.Join(dir, BacktestFile)
	if err := forecast.WriteJSON(path, out); err != nil {
		return out, err
	}

	logger := zerolog.Ctx(ctx)
	for regime, sc := range out.Scores {
		logger.Info().
			Str("regime", string(regime)).
			Int("count", sc.Count).
			Float64("mae", sc.MAE).
			Float64("rmse", sc.RMSE).
			Msg("Holdout score")
	}
	logger.Info().Str("path", path).Msg(out.ValidationMessage)
	return out, nil
}
