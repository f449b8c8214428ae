package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"retailcast/internal/demand"
	"retailcast/internal/forecast"
	"retailcast/internal/models"
	"retailcast/internal/routing"
	"retailcast/internal/source"
	"retailcast/internal/training"
)

// ReturnsForecastFile is the published returns forecast.
const ReturnsForecastFile = "final_returns_forecast.json"

// RunReturns trains and forecasts returns using the published sales forecast as the future
// exogenous regressor. A missing sales forecast is fatal and wraps ErrSalesForecastMissing.
func (p *Pipeline) RunReturns(ctx context.Context) (*Report, error) {
	ctx, r := p.start(ctx, Returns)
	return r.report, r.finish(p.cfg.ReturnsOutputDir(), p.runReturns(ctx, r))
}

func (p *Pipeline) runReturns(ctx context.Context, r *run) error {
	var (
		sales forecast.SalesForecast
		ds    *source.Dataset
		t     *demand.Table
		res   routing.Result
	)

	// 1. Mandatory sales input, checked before any work
	if err := r.stage("read sales forecast", func() (string, error) {
		var err error
		sales, err = forecast.LoadSalesForecast(p.cfg.SalesForecastPath())
		return fmt.Sprintf("%d subcategories", len(sales)), err
	}); err != nil {
		return err
	}

	// 2. Merged sales and returns skeleton with the lagged orders regressor
	if err := r.stage("load", func() (string, error) {
		var err error
		ds, err = p.load(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d return lines", len(ds.Returns)), nil
	}); err != nil {
		return err
	}
	if err := r.stage("skeleton", func() (string, error) {
		var err error
		t, err = p.returnsTable(ds)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d days x %d subcategories", len(t.Dates), len(t.Series)), nil
	}); err != nil {
		return err
	}

	// 3. Route and train
	if err := r.stage("route", func() (string, error) {
		res = routing.Route(t, p.cfg.Router.Returns)
		r.report.Routing = res.Counts
		return routingDetail(res), nil
	}); err != nil {
		return err
	}
	if err := r.stage("train", func() (string, error) {
		tr := &training.Trainer{
			Store:            models.NewStore(p.cfg.ReturnsModelsDir()),
			Options:          p.cfg.Router.Models,
			Workers:          p.cfg.Workers,
			PersistColdStart: p.cfg.PersistColdStart,
			UseExog:          true,
			Force:            p.Force,
			RunID:            r.report.RunID,
		}
		summary, err := tr.Train(ctx, t, res)
		r.report.Training = summary
		return trainingDetail(summary), err
	}); err != nil {
		return err
	}

	// 4. Reconcile and publish
	return r.stage("forecast", func() (string, error) {
		rec := &forecast.Reconciler{
			Store:   models.NewStore(p.cfg.ReturnsModelsDir()),
			Labels:  forecast.ReturnsLabels,
			Exog:    sales,
			Workers: p.cfg.Workers,
		}
		records, err := rec.Forecast(ctx, t, p.cfg.HorizonDays)
		if err != nil {
			return "", err
		}
		path := filepath.Join(p.cfg.ReturnsOutputDir(), ReturnsForecastFile)
		if err := forecast.WriteJSON(path, forecast.NewReturnsForecast(records)); err != nil {
			return "", err
		}
		r.report.Forecasts = len(records)
		r.report.Outputs = append(r.report.Outputs, path)
		return fmt.Sprintf("%d forecasts over %d days", len(records), p.cfg.HorizonDays), nil
	})
}

func (p *Pipeline) returnsTable(ds *source.Dataset) (*demand.Table, error) {
	t, err := p.skeleton(ds, ds.ReturnsTransactions(), demand.BuildOptions{TrackOrders: true})
	if err != nil {
		return nil, err
	}
	t.AddLag()
	return t, nil
}
