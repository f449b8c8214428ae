package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"retailcast/internal/config"
	"retailcast/internal/demand"
	"retailcast/internal/forecast"
	"retailcast/internal/logging"
	"retailcast/internal/registry"
	"retailcast/internal/routing"
	"retailcast/internal/source"
	"retailcast/internal/training"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Subsystem names used for run logging and status files.
const (
	Sales   = "sales"
	Returns = "returns"
)

// StatusFile is written next to each subsystem's forecast.
const StatusFile = "pipeline_status.json"

// StageStatus is the outcome of one pipeline stage.
type StageStatus struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report summarises one subsystem run.
type Report struct {
	RunID     string                 `json:"run_id"`
	Subsystem string                 `json:"subsystem"`
	StartedAt time.Time              `json:"started_at"`
	Stages    []StageStatus          `json:"stages"`
	Routing   map[routing.Regime]int `json:"routing"`
	Training  training.Summary       `json:"training"`
	Forecasts int                    `json:"forecasts"`
	Outputs   []string               `json:"outputs"`
}

// Pipeline runs the sales and returns subsystems against one configuration.
type Pipeline struct {
	cfg    *config.AppConfig
	loader source.Loader
	// Force retrains even when artifacts already exist.
	Force bool

	dataset *source.Dataset
}

// New creates a pipeline reading from loader.
func New(cfg *config.AppConfig, loader source.Loader) *Pipeline {
	return &Pipeline{cfg: cfg, loader: loader}
}

// run carries the per-run logger and the status being accumulated.
type run struct {
	logger zerolog.Logger
	report *Report
}

func (p *Pipeline) start(ctx context.Context, subsystem string) (context.Context, *run) {
	id := uuid.NewString()
	logger := logging.ForRun(id, subsystem)
	r := &run{
		logger: logger,
		report: &Report{RunID: id, Subsystem: subsystem, StartedAt: time.Now().UTC(), Routing: map[routing.Regime]int{}},
	}
	logger.Info().Msg("Pipeline run started")
	return logger.WithContext(ctx), r
}

// stage runs fn and records its status. The returned error is fn's, wrapped with the stage name.
func (r *run) stage(name string, fn func() (string, error)) error {
	startedAt := time.Now()
	detail, err := fn()
	st := StageStatus{Name: name, Status: "ok", Detail: detail, Duration: time.Since(startedAt)}
	if err != nil {
		st.Status = "failed"
		st.Detail = err.Error()
	}
	r.report.Stages = append(r.report.Stages, st)

	if err != nil {
		r.logger.Error().Err(err).Str("stage", name).Msg("Stage failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	r.logger.Info().Str("stage", name).Str("detail", detail).Dur("duration", st.Duration).Msg("Stage complete")
	return nil
}

// finish persists the status file; a failure here is logged but never masks runErr.
func (r *run) finish(dir string, runErr error) error {
	path := filepath.Join(dir, StatusFile)
	if err := forecast.WriteJSON(path, r.report); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to write pipeline status")
	}
	if runErr != nil {
		return runErr
	}
	r.logger.Info().Int("forecasts", r.report.Forecasts).Msg("Pipeline run finished")
	return nil
}

// load reads the dataset once per pipeline.
func (p *Pipeline) load(ctx context.Context) (*source.Dataset, error) {
	if p.dataset != nil {
		return p.dataset, nil
	}
	ds, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	p.dataset = ds
	return ds, nil
}

// skeleton windows the transactions and builds the dense table with registry IDs attached.
// Registry resolution always completes before any fan-out starts.
func (p *Pipeline) skeleton(ds *source.Dataset, txs []demand.Transaction, opts demand.BuildOptions) (*demand.Table, error) {
	txs = demand.Window(txs, p.cfg.HistoryStart, p.cfg.WindowDays)
	if len(txs) == 0 {
		return nil, errors.New("no transactions inside the history window")
	}

	master := ds.Master()
	t, err := demand.Build(txs, master, opts)
	if err != nil {
		return nil, err
	}

	mapping, err := registry.Open(p.cfg.EncoderPath).Resolve(master)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subcategory IDs: %w", err)
	}
	if err := t.AttachIDs(mapping); err != nil {
		return nil, err
	}
	return t, nil
}

func routingDetail(res routing.Result) string {
	return fmt.Sprintf("high=%d moderate=%d low=%d",
		res.Counts[routing.HighSignal], res.Counts[routing.ModerateSignal], res.Counts[routing.LowSignal])
}

func trainingDetail(s training.Summary) string {
	if s.Skipped {
		return "skipped, models present"
	}
	return fmt.Sprintf("seasonal=%d decomposition=%d cold_start=%d insufficient=%d failed=%d",
		s.Trained[routing.HighSignal], s.Trained[routing.ModerateSignal], s.Trained[routing.LowSignal],
		s.Insufficient, len(s.Failures))
}
