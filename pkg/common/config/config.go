package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Pipeline
	Workers             int
	ConstantsFile       string
	TerminologyFile     string
	PhenopacketsOut     string
	TestPhenopacketsOut string

	// Validation (phenopacket-tools CLI)
	ValidatorJar     string
	ValidatorCommand []string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RunRecordTTL  time.Duration

	// RunStoreEnabled exposes recorded runs from the HTTP service.
	RunStoreEnabled bool

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8090"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 16*1024*1024)),

		Workers:             getIntEnv("WORKERS", runtime.NumCPU()),
		ConstantsFile:       getEnv("PIPELINE_CONFIG", ""),
		TerminologyFile:     getEnv("TERMINOLOGY_CONFIG", ""),
		PhenopacketsOut:     getEnv("PHENOPACKETS_OUT", "data/out/phenopackets"),
		TestPhenopacketsOut: getEnv("TEST_PHENOPACKETS_OUT", "data/test/phenopackets"),

		ValidatorJar:     getEnv("VALIDATOR_JAR", "phenopacket-tools-cli.jar"),
		ValidatorCommand: getStringSliceEnv("VALIDATOR_COMMAND", []string{"java", "-jar", "{jar}", "validate", "-i", "{path}"}),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "erker"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "erker123"),
		PostgresDB:       getEnv("POSTGRES_DB", "phenopackets"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RunRecordTTL:  getDuration("RUN_RECORD_TTL", 30*24*time.Hour),

		RunStoreEnabled: getBoolEnv("RUN_STORE_ENABLED", false),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "phenopackets"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getStringSliceEnv splits on commas for broker lists and on spaces for commands.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	sep := " "
	if strings.Contains(value, ",") {
		sep = ","
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
