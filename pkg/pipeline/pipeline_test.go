package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/kafka"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/parsing"
	"github.com/synaptica-ai/erker2phenopackets/pkg/phenopacket"
)

const registryHeader = "record_id,sct_184099003_y,sct_281053000,sct_432213005,ln_48007_9_1,ln_48005_3_1,ln_48004_6_1," +
	"sct_439401001_orpha,sct_439401001_omim_g_1,ln_48018_6_1,sct_8116006_1,sct_8116006_1_date,sct_8116006_1_status\n"

var (
	goodRows = []string{
		"1,2000,sct_248153007,2018-04-12,ln_LA6705-3,p.(Ser127Leu),,ORPHA:71529,155541.0024,HGNC:6932,HP:0001513,2019-04-16,sct_410605003",
		"1,1985,sct_248152002,,ln_LA6706-1,,c.493C>T,ORPHA:71529,,HGNC:6932,HP:0025501,,sct_723511001",
	}
	unknownSexRow = "1,1990,sct_999,,,,,ORPHA:71529,,,,,"
	noOrphaRow    = "1,1991,sct_248152002,,,,,,,,,,"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type fakeStore struct {
	runID string
	docs  []*models.Phenopacket
	err   error
}

func (s *fakeStore) SaveBatch(ctx context.Context, runID string, docs []*models.Phenopacket) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.runID, s.docs = runID, docs
	return len(docs), nil
}

type fakeRuns struct {
	saved []*models.RunReport
}

func (r *fakeRuns) Save(ctx context.Context, report *models.RunReport) error {
	r.saved = append(r.saved, report)
	return nil
}

type fakeEvents struct {
	documents int
	events    []string
}

func (e *fakeEvents) PublishDocuments(ctx context.Context, runID string, docs []*models.Phenopacket) error {
	e.documents += len(docs)
	return nil
}

func (e *fakeEvents) PublishEvent(ctx context.Context, eventType string, data map[string]interface{}) error {
	e.events = append(e.events, eventType)
	return nil
}

type fakeValidator struct {
	invalid string
}

func (v fakeValidator) Validate(ctx context.Context, path string) ([]phenopacket.Result, error) {
	paths, err := phenopacket.JSONFiles(path)
	if err != nil {
		return nil, err
	}
	results := make([]phenopacket.Result, len(paths))
	for i, p := range paths {
		valid := filepath.Base(p) != v.invalid
		results[i] = phenopacket.Result{Path: p, Valid: valid}
	}
	return results, nil
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Workers:             2,
		PhenopacketsOut:     filepath.Join(dir, "out"),
		TestPhenopacketsOut: filepath.Join(dir, "test"),
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestNewRejectsBadTerminology(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "terminology.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("sex: [MALE\n"), 0o600))

	for name, path := range map[string]string{
		"missing": filepath.Join(dir, "absent.yaml"),
		"broken":  broken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(&config.Config{TerminologyFile: path})
			require.Error(t, err)
			assert.True(t, config.IsConfigError(err))
		})
	}
}

func writeExport(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mc4r.csv")
	content := registryHeader + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWritesAndDelivers(t *testing.T) {
	p := newPipeline(t)
	store, runs, events := &fakeStore{}, &fakeRuns{}, &fakeEvents{}
	p.Store, p.Runs, p.Events = store, runs, events

	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	report, err := p.Run(context.Background(), Options{
		DataPath:   writeExport(t, goodRows...),
		OutDirName: "batch<1>",
		CreatedAt:  created,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(p.Config.TestPhenopacketsOut, "batch1"), report.OutputDir)
	assert.Equal(t, 2, report.RowsRead)
	assert.Equal(t, 2, report.Documents)
	assert.Zero(t, report.FailedRows)
	assert.Equal(t, "2024-05-01", report.CreationStamp)
	assert.False(t, report.Validated)

	docs, err := phenopacket.ReadDir(report.OutputDir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "0", docs[0].ID)
	assert.Equal(t, "2024-05-01T00:00:00.00Z", docs[0].MetaData.Created)

	assert.Equal(t, report.RunID, store.runID)
	assert.Len(t, store.docs, 2)
	assert.Equal(t, 2, events.documents)
	assert.Equal(t, []string{kafka.EventRunCompleted}, events.events)
	require.Len(t, runs.saved, 1)
	assert.Equal(t, report.RunID, runs.saved[0].RunID)
}

func TestRunPublishUsesProductionRoot(t *testing.T) {
	p := newPipeline(t)
	report, err := p.Run(context.Background(), Options{
		DataPath:   writeExport(t, goodRows...),
		OutDirName: "release",
		Publish:    true,
		Sequential: true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Config.PhenopacketsOut, "release"), report.OutputDir)
}

func TestRunSkipInvalidReportsRows(t *testing.T) {
	p := newPipeline(t)
	report, err := p.Run(context.Background(), Options{
		DataPath:    writeExport(t, goodRows[0], unknownSexRow, noOrphaRow),
		OutDirName:  "partial",
		SkipInvalid: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 2, report.FailedRows)
	assert.Equal(t, []string{"1", "2"}, report.FailedRowIDs)

	files, err := phenopacket.JSONFiles(report.OutputDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRunFailsBeforeWriting(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Run(context.Background(), Options{
		DataPath:   writeExport(t, goodRows[0], noOrphaRow),
		OutDirName: "broken",
	})
	require.Error(t, err)
	assert.True(t, parsing.IsFormatError(err))

	_, statErr := os.Stat(filepath.Join(p.Config.TestPhenopacketsOut, "broken"))
	assert.True(t, os.IsNotExist(statErr), "no file is written for a failed batch")
}

func TestRunValidates(t *testing.T) {
	p := newPipeline(t)
	p.Validator = fakeValidator{invalid: "1.json"}
	report, err := p.Run(context.Background(), Options{
		DataPath:   writeExport(t, goodRows...),
		OutDirName: "checked",
		Validate:   true,
	})
	require.NoError(t, err)
	assert.True(t, report.Validated)
	assert.Equal(t, 1, report.InvalidFiles)
}

func TestRunSinkFailure(t *testing.T) {
	p := newPipeline(t)
	p.Store = &fakeStore{err: errors.New("connection refused")}
	_, err := p.Run(context.Background(), Options{DataPath: writeExport(t, goodRows...), OutDirName: "sink"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive phenopackets")
}

func TestRunMissingExport(t *testing.T) {
	p := newPipeline(t)
	_, err := p.Run(context.Background(), Options{DataPath: filepath.Join(t.TempDir(), "missing.csv")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOutputDirDefaultsToTimestamp(t *testing.T) {
	p := newPipeline(t)
	now := time.Date(2023, 11, 2, 14, 7, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join(p.Config.TestPhenopacketsOut, "2023-11-02-1407"), p.OutputDir(Options{}, now))
	assert.Equal(t, filepath.Join(p.Config.TestPhenopacketsOut, "2023-11-02-1407"), p.OutputDir(Options{OutDirName: "???"}, now))
}

func TestMapCSVPolicies(t *testing.T) {
	p := newPipeline(t)
	export := registryHeader + strings.Join(append(goodRows, goodRows...), "\n") + "\n"

	parallel, err := p.MapCSV(context.Background(), strings.NewReader(export), Options{Workers: 3})
	require.NoError(t, err)
	sequential, err := p.MapCSV(context.Background(), strings.NewReader(export), Options{Sequential: true})
	require.NoError(t, err)

	require.Len(t, parallel.Documents, 4)
	require.Len(t, sequential.Documents, 4)
	for i := range parallel.Documents {
		assert.Equal(t, sequential.Documents[i].ID, parallel.Documents[i].ID)
		assert.Equal(t, sequential.Documents[i].Subject, parallel.Documents[i].Subject)
	}
}

func TestMapCSVEmpty(t *testing.T) {
	p := newPipeline(t)
	result, err := p.MapCSV(context.Background(), strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Zero(t, result.RowsRead)
}
