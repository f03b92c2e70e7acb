package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Gallery.TempTTL)
	assert.Equal(t, 1920, cfg.Gallery.MaxEdge)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
  mode: release
database:
  driver: sqlite
  dsn: kb.db
jwt:
  secret: from-file
  expiration: 2h
gallery:
  temp_ttl: 6h
  sweep_schedule: "*/30 * * * *"
  max_edge: 800
kafka:
  brokers: ["kafka:9092"]
timezone: Asia/Jakarta
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("PORT", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Address())
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "kb-portal.events", cfg.Kafka.Topic)
	assert.Equal(t, 6*time.Hour, cfg.Gallery.TempTTL)
	assert.Equal(t, "*/30 * * * *", cfg.Gallery.SweepSchedule)
	assert.Equal(t, "*/15 * * * *", cfg.Gallery.RetrySchedule)
	assert.Equal(t, 800, cfg.Gallery.MaxEdge)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())
}

func TestAddressKeepsHostPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = "127.0.0.1:8081"
	assert.Equal(t, "127.0.0.1:8081", cfg.Address())
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDB(DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}
