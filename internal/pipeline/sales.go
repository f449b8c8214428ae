package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"retailcast/internal/demand"
	"retailcast/internal/forecast"
	"retailcast/internal/models"
	"retailcast/internal/reports"
	"retailcast/internal/routing"
	"retailcast/internal/source"
	"retailcast/internal/training"
)

// Output file names under the sales output directory.
const (
	StockingReportFile  = "stocking_report.json"
	HeatmapFile         = "staffing_heatmap.json"
	HeatmapWorkbookFile = "staffing_heatmap.xlsx"
)

// RunSales trains, forecasts and publishes the sales subsystem plus its downstream reports.
func (p *Pipeline) RunSales(ctx context.Context) (*Report, error) {
	ctx, r := p.start(ctx, Sales)
	return r.report, r.finish(p.cfg.SalesOutputDir(), p.runSales(ctx, r))
}

func (p *Pipeline) runSales(ctx context.Context, r *run) error {
	var (
		ds      *source.Dataset
		t       *demand.Table
		res     routing.Result
		records []forecast.Record
		sales   forecast.SalesForecast
	)

	// 1. Load and build the skeleton
	if err := r.stage("load", func() (string, error) {
		var err error
		ds, err = p.load(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d sales lines", len(ds.Sales)), nil
	}); err != nil {
		return err
	}
	if err := r.stage("skeleton", func() (string, error) {
		var err error
		t, err = p.salesTable(ds)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d days x %d subcategories", len(t.Dates), len(t.Series)), nil
	}); err != nil {
		return err
	}

	// 2. Route and train
	if err := r.stage("route", func() (string, error) {
		res = routing.Route(t, p.cfg.Router.Sales)
		r.report.Routing = res.Counts
		return routingDetail(res), nil
	}); err != nil {
		return err
	}
	if err := r.stage("train", func() (string, error) {
		tr := &training.Trainer{
			Store:            models.NewStore(p.cfg.SalesModelsDir()),
			Options:          p.cfg.Router.Models,
			Workers:          p.cfg.Workers,
			PersistColdStart: p.cfg.PersistColdStart,
			Force:            p.Force,
			RunID:            r.report.RunID,
		}
		summary, err := tr.Train(ctx, t, res)
		r.report.Training = summary
		return trainingDetail(summary), err
	}); err != nil {
		return err
	}

	// 3. Reconcile and publish
	if err := r.stage("forecast", func() (string, error) {
		rec := &forecast.Reconciler{
			Store:   models.NewStore(p.cfg.SalesModelsDir()),
			Labels:  forecast.SalesLabels,
			Workers: p.cfg.Workers,
		}
		var err error
		records, err = rec.Forecast(ctx, t, p.cfg.HorizonDays)
		if err != nil {
			return "", err
		}
		sales = forecast.NewSalesForecast(records)
		path := p.cfg.SalesForecastPath()
		if err := forecast.WriteJSON(path, sales); err != nil {
			return "", err
		}
		r.report.Forecasts = len(records)
		r.report.Outputs = append(r.report.Outputs, path)
		return fmt.Sprintf("%d forecasts over %d days", len(records), p.cfg.HorizonDays), nil
	}); err != nil {
		return err
	}

	// 4. Downstream reports
	return r.stage("reports", func() (string, error) {
		outputs, err := p.writeReports(t, sales)
		r.report.Outputs = append(r.report.Outputs, outputs...)
		return fmt.Sprintf("%d report files", len(outputs)), err
	})
}

// RunReports rebuilds the stocking report and staffing heatmap from the published sales
// forecast without retraining or re-forecasting.
func (p *Pipeline) RunReports(ctx context.Context) (*Report, error) {
	ctx, r := p.start(ctx, Sales)
	err := func() error {
		var (
			sales forecast.SalesForecast
			t     *demand.Table
		)
		if err := r.stage("read forecast", func() (string, error) {
			var err error
			sales, err = forecast.LoadSalesForecast(p.cfg.SalesForecastPath())
			return fmt.Sprintf("%d subcategories", len(sales)), err
		}); err != nil {
			return err
		}
		if err := r.stage("history", func() (string, error) {
			ds, err := p.load(ctx)
			if err != nil {
				return "", err
			}
			t, err = p.salesTable(ds)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d days", len(t.Dates)), nil
		}); err != nil {
			return err
		}
		r.report.Forecasts = len(sales)
		return r.stage("reports", func() (string, error) {
			outputs, err := p.writeReports(t, sales)
			r.report.Outputs = append(r.report.Outputs, outputs...)
			return fmt.Sprintf("%d report files", len(outputs)), err
		})
	}()
	return r.report, r.finish(p.cfg.SalesOutputDir(), err)
}

func (p *Pipeline) salesTable(ds *source.Dataset) (*demand.Table, error) {
	return p.skeleton(ds, ds.SalesTransactions(), demand.BuildOptions{TrackSecondary: true})
}

func (p *Pipeline) writeReports(t *demand.Table, sales forecast.SalesForecast) ([]string, error) {
	dir := p.cfg.SalesOutputDir()
	var outputs []string

	stocking := reports.BuildStockingReport(sales, p.cfg.HorizonDays)
	path := filepath.Join(dir, StockingReportFile)
	if err := forecast.WriteJSON(path, stocking); err != nil {
		return outputs, err
	}
	outputs = append(outputs, path)

	heatmap := reports.BuildStaffingHeatmap(t, sales)
	path = filepath.Join(dir, HeatmapFile)
	if err := forecast.WriteJSON(path, heatmap); err != nil {
		return outputs, err
	}
	outputs = append(outputs, path)

	path = filepath.Join(dir, HeatmapWorkbookFile)
	if err := reports.WriteHeatmapWorkbook(path, heatmap); err != nil {
		return outputs, err
	}
	return append(outputs, path), nil
}
