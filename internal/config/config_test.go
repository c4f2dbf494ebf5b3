package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "TX_TIMEOUT", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("TX_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 250*time.Millisecond, cfg.TxTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadIgnoresMalformedTimeout(t *testing.T) {
	t.Setenv("TX_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := &Config{
		DBHost: "localhost", DBPort: "5432",
		DBUser: "postgres", DBPassword: "password",
		DBName: "pocket_bank", DBSSLMode: "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=password dbname=pocket_bank sslmode=disable",
		cfg.GetDBConnectionString())
}
