package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultBatchSize = 200

// PhenopacketRecord archives one document of a pipeline run.
type PhenopacketRecord struct {
	ID            string         `gorm:"primaryKey;column:id"`
	RunID         string         `gorm:"column:run_id;index"`
	PhenopacketID string         `gorm:"column:phenopacket_id"`
	Document      datatypes.JSON `gorm:"column:document"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

func (PhenopacketRecord) TableName() string {
	return "phenopackets"
}

func RecordID(runID, phenopacketID string) string {
	return runID + ":" + phenopacketID
}

type Repository struct {
	db        *gorm.DB
	batchSize int
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, batchSize: defaultBatchSize}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PhenopacketRecord{})
}

// NewRecords encodes the documents of a run for archiving.
func NewRecords(runID string, docs []*models.Phenopacket, now time.Time) ([]PhenopacketRecord, error) {
	records := make([]PhenopacketRecord, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode phenopacket %s: %w", doc.ID, err)
		}
		records = append(records, PhenopacketRecord{
			ID:            RecordID(runID, doc.ID),
			RunID:         runID,
			PhenopacketID: doc.ID,
			Document:      datatypes.JSON(raw),
			CreatedAt:     now,
		})
	}
	return records, nil
}

// SaveBatch archives every document of a run.
func (r *Repository) SaveBatch(ctx context.Context, runID string, docs []*models.Phenopacket) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	records, err := NewRecords(runID, docs, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).CreateInBatches(&records, r.batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to archive run %s: %w", runID, res.Error)
	}
	return len(records), nil
}

// FindByRun returns the archived documents of a run ordered by phenopacket id.
func (r *Repository) FindByRun(ctx context.Context, runID string) ([]*models.Phenopacket, error) {
	var records []PhenopacketRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("phenopacket_id").Find(&records).Error; err != nil {
		return nil, err
	}
	docs := make([]*models.Phenopacket, 0, len(records))
	for _, rec := range records {
		var doc models.Phenopacket
		if err := json.Unmarshal(rec.Document, &doc); err != nil {
			return nil, fmt.Errorf("archived phenopacket %s is corrupt: %w", rec.ID, err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}
