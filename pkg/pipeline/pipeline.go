package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/kafka"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/mc4r"
	"github.com/synaptica-ai/erker2phenopackets/pkg/observability/metrics"
	"github.com/synaptica-ai/erker2phenopackets/pkg/phenopacket"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
	"github.com/synaptica-ai/erker2phenopackets/pkg/terminology"
)

const (
	createdLayout = "2006-01-02"
	outDirLayout  = "2006-01-02-1504"
)

// DocumentStore archives the documents of a run.
type DocumentStore interface {
	SaveBatch(ctx context.Context, runID string, docs []*models.Phenopacket) (int, error)
}

// RunRecorder keeps run reports.
type RunRecorder interface {
	Save(ctx context.Context, report *models.RunReport) error
}

// EventPublisher announces documents and finished runs.
type EventPublisher interface {
	PublishDocuments(ctx context.Context, runID string, docs []*models.Phenopacket) error
	PublishEvent(ctx context.Context, eventType string, data map[string]interface{}) error
}

// FileValidator checks written documents.
type FileValidator interface {
	Validate(ctx context.Context, path string) ([]phenopacket.Result, error)
}

// Pipeline turns a registry export into phenopacket files. The sinks are
// optional; a nil sink is skipped.
type Pipeline struct {
	Config    *config.Config
	Constants *config.Constants
	Catalog   terminology.Catalog

	Store     DocumentStore
	Runs      RunRecorder
	Events    EventPublisher
	Validator FileValidator
}

// New resolves the constants bundle and the lookup tables named by cfg. It
// fails with a ConfigError before any row is touched.
func New(cfg *config.Config) (*Pipeline, error) {
	consts, err := config.LoadConstants(cfg.ConstantsFile)
	if err != nil {
		return nil, err
	}
	cat, err := terminology.Load(cfg.TerminologyFile)
	if err != nil {
		return nil, config.WrapConfigError(err)
	}
	return &Pipeline{
		Config:    cfg,
		Constants: consts,
		Catalog:   cat,
		Validator: phenopacket.NewValidator(cfg.ValidatorJar, cfg.ValidatorCommand),
	}, nil
}

type Options struct {
	DataPath string
	// OutDirName names the run directory; a timestamp is used when empty.
	OutDirName string
	// Publish writes below the production output root instead of the test root.
	Publish bool
	Validate bool
	// Sequential maps on the calling goroutine.
	Sequential bool
	// SkipInvalid drops rows that fail to parse or map and reports them.
	SkipInvalid bool
	Workers     int
	// CreatedAt stamps the batch metadata; zero means now.
	CreatedAt time.Time
}

// Failure is a row dropped from a run.
type Failure struct {
	RowID string `json:"row_id"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// MapResult holds the documents of a batch in row order.
type MapResult struct {
	Documents []*models.Phenopacket `json:"documents"`
	Failures  []Failure             `json:"failures,omitempty"`
	RowsRead  int                   `json:"rows_read"`
}

// Run executes one batch and returns its report. Files are written only after
// the whole batch has been mapped.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*models.RunReport, error) {
	started := time.Now()
	report := &models.RunReport{
		RunID:     uuid.New().String(),
		DataPath:  opts.DataPath,
		StartedAt: started.UTC(),
	}
	log := logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"data_path": opts.DataPath,
	})
	metrics.ObserveRunStarted()

	fail := func(err error) (*models.RunReport, error) {
		metrics.ObserveRunFailed()
		log.WithError(err).Error("run failed")
		return nil, err
	}

	t, err := registry.ReadFile(opts.DataPath)
	if err != nil {
		return fail(fmt.Errorf("failed to read %s: %w", opts.DataPath, err))
	}
	log.WithField("rows", t.Len()).Info("registry export loaded")

	created := opts.CreatedAt
	if created.IsZero() {
		created = started
	}
	opts.CreatedAt = created
	result, err := p.MapTable(ctx, t, opts)
	if err != nil {
		return fail(err)
	}
	report.RowsRead = result.RowsRead
	report.Documents = len(result.Documents)
	report.FailedRows = len(result.Failures)
	report.CreationStamp = created.Format(createdLayout)
	for _, f := range result.Failures {
		report.FailedRowIDs = append(report.FailedRowIDs, f.RowID)
	}

	report.OutputDir = p.OutputDir(opts, started)
	paths, err := phenopacket.WriteFiles(result.Documents, report.OutputDir)
	if err != nil {
		return fail(err)
	}

	if err := p.deliver(ctx, report, result.Documents); err != nil {
		return fail(err)
	}

	if opts.Validate && p.Validator != nil {
		results, err := p.Validator.Validate(ctx, report.OutputDir)
		if err != nil {
			return fail(fmt.Errorf("failed to validate %s: %w", report.OutputDir, err))
		}
		report.Validated = true
		for _, r := range phenopacket.Invalid(results) {
			report.InvalidFiles++
			log.WithField("path", r.Path).Warn("phenopacket failed validation")
		}
	}

	report.FinishedAt = time.Now().UTC()
	if p.Runs != nil {
		if err := p.Runs.Save(ctx, report); err != nil {
			return fail(fmt.Errorf("failed to record run: %w", err))
		}
	}

	metrics.ObserveRun(report.RowsRead, report.FailedRows, report.Documents, len(paths),
		report.InvalidFiles, report.FinishedAt.Sub(started).Seconds())
	log.WithFields(logrus.Fields{
		"documents":     report.Documents,
		"failed_rows":   report.FailedRows,
		"invalid_files": report.InvalidFiles,
		"output_dir":    report.OutputDir,
	}).Info("run completed")
	return report, nil
}

func (p *Pipeline) deliver(ctx context.Context, report *models.RunReport, docs []*models.Phenopacket) error {
	if p.Store != nil {
		n, err := p.Store.SaveBatch(ctx, report.RunID, docs)
		if err != nil {
			return fmt.Errorf("failed to archive phenopackets: %w", err)
		}
		logger.WithField("run_id", report.RunID).Infof("archived %d phenopackets", n)
	}
	if p.Events != nil {
		if err := p.Events.PublishDocuments(ctx, report.RunID, docs); err != nil {
			return fmt.Errorf("failed to publish phenopackets: %w", err)
		}
		err := p.Events.PublishEvent(ctx, kafka.EventRunCompleted, map[string]interface{}{
			"run_id":      report.RunID,
			"documents":   report.Documents,
			"failed_rows": report.FailedRows,
			"output_dir":  report.OutputDir,
		})
		if err != nil {
			return fmt.Errorf("failed to publish run event: %w", err)
		}
	}
	return nil
}

// OutputDir places the run directory below the production or the test root.
func (p *Pipeline) OutputDir(opts Options, now time.Time) string {
	root := p.Config.TestPhenopacketsOut
	if opts.Publish {
		root = p.Config.PhenopacketsOut
	}
	name := phenopacket.SanitizeDirName(opts.OutDirName)
	if name == "" {
		name = now.Format(outDirLayout)
	}
	return filepath.Join(root, name)
}

// MapTable preprocesses t in place and maps it. Options pick the execution
// policy: SkipInvalid isolates failures per row, Sequential avoids the worker
// pool, and the default fails on the first bad row.
func (p *Pipeline) MapTable(ctx context.Context, t *registry.Table, opts Options) (*MapResult, error) {
	result := &MapResult{RowsRead: t.Len()}

	pre := &mc4r.Preprocessor{Constants: p.Constants, Catalog: p.Catalog, KeepGoing: opts.SkipInvalid}
	rejections, err := pre.Run(t)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess registry rows: %w", err)
	}
	for _, r := range rejections {
		result.Failures = append(result.Failures, Failure{RowID: r.RowID, Stage: "preprocess", Error: r.Err.Error()})
	}

	created := opts.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	mapper, err := mc4r.NewMapper(p.Constants, created.Format(createdLayout))
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 && p.Config != nil {
		workers = p.Config.Workers
	}
	d := mc4r.NewDispatcher(mapper, workers)

	switch {
	case opts.SkipInvalid:
		var results []mc4r.RowResult
		if opts.Sequential {
			results = mapper.MapChunkResults(t)
		} else if results, err = d.MapTableResults(ctx, t); err != nil {
			return nil, err
		}
		docs, failed := mc4r.Documents(results)
		result.Documents = docs
		for _, f := range failed {
			result.Failures = append(result.Failures, Failure{RowID: f.RowID, Stage: "map", Error: f.Err.Error()})
		}
	case opts.Sequential:
		if result.Documents, err = d.MapTableSequential(t); err != nil {
			return nil, err
		}
	default:
		if result.Documents, err = d.MapTable(ctx, t); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// MapCSV maps a CSV registry export without touching the filesystem.
func (p *Pipeline) MapCSV(ctx context.Context, r io.Reader, opts Options) (*MapResult, error) {
	t, err := registry.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return p.MapTable(ctx, t, opts)
}
