package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, []string{"java", "-jar", "{jar}", "validate", "-i", "{path}"}, cfg.ValidatorCommand)
	assert.False(t, cfg.RunStoreEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WORKERS", "3")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("VALIDATOR_COMMAND", "phenopacket-tools validate -i {path}")
	t.Setenv("RUN_RECORD_TTL", "2h")
	t.Setenv("RUN_STORE_ENABLED", "true")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"phenopacket-tools", "validate", "-i", "{path}"}, cfg.ValidatorCommand)
	assert.Equal(t, 2*time.Hour, cfg.RunRecordTTL)
	assert.True(t, cfg.RunStoreEnabled)
	assert.Equal(t, 0, cfg.RedisDB, "unparsable values fall back to the default")
}
