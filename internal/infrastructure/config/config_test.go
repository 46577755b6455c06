package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   "sqlite",
			SeedFile: "data/shoppers.json",
		},
		Lock: LockConfig{
			Backend: "local",
		},
		Confirmation: ConfirmationConfig{
			CallbackPort: 8080,
			Timeout:      10 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_SqliteNeedsSeedFile(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.SeedFile = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "seed_file")
}

func TestConfig_Validate_PostgresNeedsHost(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "postgres"
	cfg.Database = DatabaseConfig{}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "dynamo"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestConfig_Validate_RedisLockNeedsTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Lock.Backend = "redis"
	cfg.Redis.Port = 6379
	cfg.Lock.TTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lock.ttl")
}

func TestConfig_Validate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Confirmation.Timeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "confirmation.timeout")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "data/shoppers.json", cfg.Storage.SeedFile)
	assert.Equal(t, "local", cfg.Lock.Backend)
	assert.Equal(t, 8080, cfg.Confirmation.CallbackPort)
	assert.Equal(t, 10*time.Second, cfg.Confirmation.Timeout)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "banksim", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=banksim sslmode=disable", cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
}
