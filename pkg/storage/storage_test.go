package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *Repository) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return mock, NewRepository(db)
}

func docs() []*models.Phenopacket {
	return []*models.Phenopacket{
		{ID: "0", Subject: &models.Individual{ID: "0", Sex: "MALE"}},
		{ID: "1", Subject: &models.Individual{ID: "1", Sex: "FEMALE"}},
	}
}

func TestNewRecords(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records, err := NewRecords("run-1", docs(), now)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-1:1", records[1].ID)
	assert.Equal(t, "1", records[1].PhenopacketID)
	assert.JSONEq(t, `{"id":"1","subject":{"id":"1","sex":"FEMALE"}}`, string(records[1].Document))
	assert.Equal(t, now, records[0].CreatedAt)
}

func TestSaveBatch(t *testing.T) {
	mock, repo := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO "phenopackets"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.SaveBatch(context.Background(), "run-1", docs())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchEmpty(t *testing.T) {
	mock, repo := setupMockDB(t)
	n, err := repo.SaveBatch(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByRun(t *testing.T) {
	mock, repo := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "run_id", "phenopacket_id", "document", "created_at"}).
		AddRow("run-1:0", "run-1", "0", []byte(`{"id":"0","subject":{"id":"0","sex":"MALE"}}`), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "phenopackets" WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	found, err := repo.FindByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MALE", found[0].Subject.Sex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunKey(t *testing.T) {
	assert.Equal(t, "erker:run:abc", RunKey("abc"))
}
