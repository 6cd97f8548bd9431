package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
)

const (
	runKeyPrefix = "erker:run:"
	lastRunKey   = "erker:run:last"
)

var ErrRunNotFound = errors.New("run not found")

func RunKey(runID string) string {
	return runKeyPrefix + runID
}

// RunStore keeps run reports in Redis along with a pointer to the latest run.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunStore(client *redis.Client, ttl time.Duration) *RunStore {
	return &RunStore{client: client, ttl: ttl}
}

func (s *RunStore) Save(ctx context.Context, report *models.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, RunKey(report.RunID), payload, s.ttl)
		pipe.Set(ctx, lastRunKey, report.RunID, s.ttl)
		return nil
	})
	return err
}

func (s *RunStore) Get(ctx context.Context, runID string) (*models.RunReport, error) {
	payload, err := s.client.Get(ctx, RunKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	var report models.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode run report %s: %w", runID, err)
	}
	return &report, nil
}

// Last returns the most recently saved run.
func (s *RunStore) Last(ctx context.Context) (*models.RunReport, error) {
	runID, err := s.client.Get(ctx, lastRunKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, runID)
}
