package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, 30*time.Second, cfg.Server.Heartbeat)
	assert.Equal(t, 90*time.Minute, cfg.Rooms.TTL)
	assert.Equal(t, time.Minute, cfg.Rooms.SweepInterval)
	assert.Equal(t, 2200*time.Millisecond, cfg.Rooms.ShuffleDelay)
	assert.Equal(t, 64, cfg.Rooms.CodeAttempts)
	assert.Equal(t, "", cfg.Database.Driver)
	assert.Equal(t, "game-results", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  http_address: ":7000"
rooms:
  ttl: 10m
  shuffle_delay: 1s
database:
  driver: gorm
  postgres:
    host: db
    port: 5433
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("SERVER_HTTP_ADDRESS", ":7100")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.HTTPAddress, "env wins over file")
	assert.Equal(t, 10*time.Minute, cfg.Rooms.TTL)
	assert.Equal(t, time.Second, cfg.Rooms.ShuffleDelay)
	assert.Equal(t, "gorm", cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Postgres.Host)
	assert.Equal(t, 5433, cfg.Database.Postgres.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	p := PostgresConfig{Host: "h", Port: 1, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", p.DSN())
}
