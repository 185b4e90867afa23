package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5555", cfg.Broker.FrontAddr)
	assert.Equal(t, "0.0.0.0:5556", cfg.Broker.BackAddr)
	assert.Equal(t, 1024, cfg.Broker.QueueSize)
	assert.Equal(t, 1024, cfg.Broker.ReadBufferSize)
	assert.Equal(t, 0, cfg.Broker.RegistrationTimeout)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, 5, cfg.Journal.Interval)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "conductor_", cfg.Database.Prefix)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CONDUCTOR_FRONT_ADDR", "127.0.0.1:7000")
	t.Setenv("CONDUCTOR_BACK_ADDR", "127.0.0.1:7001")
	t.Setenv("CONDUCTOR_QUEUE_SIZE", "64")
	t.Setenv("CONDUCTOR_LOG_LEVEL", "DEBUG")
	t.Setenv("CONDUCTOR_JOURNAL", "true")
	t.Setenv("CONDUCTOR_JOURNAL_INTERVAL", "2")
	t.Setenv("CONDUCTOR_DB_DSN", "file::memory:?cache=shared")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Broker.FrontAddr)
	assert.Equal(t, "127.0.0.1:7001", cfg.Broker.BackAddr)
	assert.Equal(t, 64, cfg.Broker.QueueSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 2, cfg.Journal.Interval)
	assert.Equal(t, "file::memory:?cache=shared", cfg.Database.GetDSN())
}

func TestLoad_InvalidValueFallsBackToDefault(t *testing.T) {
	t.Setenv("CONDUCTOR_QUEUE_SIZE", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Broker.QueueSize)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero queue", "CONDUCTOR_QUEUE_SIZE", "0"},
		{"negative read buffer", "CONDUCTOR_READ_BUFFER", "-1"},
		{"unknown log level", "CONDUCTOR_LOG_LEVEL", "verbose"},
		{"negative registration timeout", "CONDUCTOR_REGISTRATION_TIMEOUT", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DatabaseCheckedOnlyWithJournal(t *testing.T) {
	t.Setenv("CONDUCTOR_DB_DRIVER", "oracle")

	_, err := Load()
	require.NoError(t, err, "database settings are ignored while the journal is off")

	t.Setenv("CONDUCTOR_JOURNAL", "true")
	_, err = Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306,
				User: "u", Password: "p", Database: "conductor",
			},
			expected: "u:p@tcp(db:3306)/conductor?parseTime=true",
		},
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432,
				User: "u", Password: "p", Database: "conductor",
			},
			expected: "host=db port=5432 user=u password=p dbname=conductor sslmode=disable",
		},
		{
			name:     "sqlite3",
			config:   DatabaseConfig{Driver: "sqlite3", Database: "/var/lib/conductor.db"},
			expected: "/var/lib/conductor.db",
		},
		{
			name:     "explicit DSN wins",
			config:   DatabaseConfig{Driver: "mysql", DSN: "custom", Database: "ignored"},
			expected: "custom",
		},
		{
			name:     "unknown driver",
			config:   DatabaseConfig{Driver: "oracle"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.GetDSN())
		})
	}
}
