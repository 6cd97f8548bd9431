package mc4r

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
	"golang.org/x/sync/errgroup"
)

// PartitionError reports the partition a mapping failure happened in.
type PartitionError struct {
	Index int
	Err   error
}

func (e PartitionError) Error() string {
	return fmt.Sprintf("partition %d: %v", e.Index, e.Err)
}

func (e PartitionError) Unwrap() error {
	return e.Err
}

func IsPartitionError(err error) bool {
	var pe PartitionError
	return errors.As(err, &pe)
}

// Dispatcher fans a table out over a bounded worker pool, one contiguous
// partition per worker, and reassembles the results in input order.
type Dispatcher struct {
	Mapper  *Mapper
	Workers int
}

func NewDispatcher(mapper *Mapper, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{Mapper: mapper, Workers: workers}
}

func (d *Dispatcher) workers() int {
	if d.Workers <= 0 {
		return runtime.NumCPU()
	}
	return d.Workers
}

func (d *Dispatcher) partitions(t *registry.Table) ([]*registry.Table, error) {
	sizes, err := registry.PartitionSizes(t.Len(), d.workers())
	if err != nil {
		return nil, err
	}
	return registry.Split(t, sizes)
}

// MapTable maps every row of t in parallel. The first failing row aborts the
// batch; no documents are returned in that case.
func (d *Dispatcher) MapTable(ctx context.Context, t *registry.Table) ([]*models.Phenopacket, error) {
	if t.Len() == 0 {
		return []*models.Phenopacket{}, nil
	}
	chunks, err := d.partitions(t)
	if err != nil {
		return nil, err
	}

	results := make([][]*models.Phenopacket, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())
	for i, chunk := range chunks {
		i, chunk := i, chunk
		if chunk.Len() == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log := logger.WithFields(logrus.Fields{"chunk": i, "rows": chunk.Len()})
			log.Info("mapping chunk")
			docs, err := d.Mapper.MapChunk(chunk)
			if err != nil {
				log.WithError(err).Error("chunk failed")
				return PartitionError{Index: i, Err: err}
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(results, t.Len()), nil
}

// MapTableSequential applies the chunk mapper to the whole table on the
// calling goroutine. It yields the same documents as MapTable and is meant for
// debugging and tracing.
func (d *Dispatcher) MapTableSequential(t *registry.Table) ([]*models.Phenopacket, error) {
	logger.WithField("rows", t.Len()).Info("mapping table sequentially")
	docs, err := d.Mapper.MapChunk(t)
	if err != nil {
		return nil, PartitionError{Index: 0, Err: err}
	}
	return docs, nil
}

// MapTableResults maps every row of t in parallel and isolates failures per
// row: a bad row is reported in its RowResult and its siblings still map.
func (d *Dispatcher) MapTableResults(ctx context.Context, t *registry.Table) ([]RowResult, error) {
	if t.Len() == 0 {
		return []RowResult{}, nil
	}
	chunks, err := d.partitions(t)
	if err != nil {
		return nil, err
	}

	results := make([][]RowResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())
	for i, chunk := range chunks {
		i, chunk := i, chunk
		if chunk.Len() == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.Mapper.MapChunkResults(chunk)
			failed := 0
			for _, r := range results[i] {
				if r.Err != nil {
					failed++
				}
			}
			logger.WithFields(logrus.Fields{
				"chunk":  i,
				"rows":   chunk.Len(),
				"failed": failed,
			}).Info("mapped chunk")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RowResult, 0, t.Len())
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func flatten(parts [][]*models.Phenopacket, n int) []*models.Phenopacket {
	out := make([]*models.Phenopacket, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Documents splits row results into the mapped documents and the row errors,
// both in row order.
func Documents(results []RowResult) ([]*models.Phenopacket, []RowError) {
	docs := make([]*models.Phenopacket, 0, len(results))
	var failed []RowError
	for _, r := range results {
		if r.Err != nil {
			var re RowError
			if !errors.As(r.Err, &re) {
				re = RowError{RowID: r.RowID, Err: r.Err}
			}
			failed = append(failed, re)
			continue
		}
		docs = append(docs, r.Document)
	}
	return docs, failed
}
