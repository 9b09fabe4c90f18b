package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Storage.Driver)
	assert.Equal(t, "data/appointments.csv", cfg.Storage.AppointmentsPath)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, 3, cfg.RecommendTopN)
	assert.Equal(t, "doctor_pass", cfg.Credentials.DoctorPassword)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadConfigBuildsDriverDSN(t *testing.T) {
	t.Run("mysql", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mysql")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PASSWORD", "secret")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "root:secret@tcp(db:3306)/medbot?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.DSN)
	})

	t.Run("postgres", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "Postgres")
		t.Setenv("DB_USERNAME", "medbot")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Storage.Driver)
		assert.Contains(t, cfg.Database.DSN, "port=5432")
		assert.Contains(t, cfg.Database.DSN, "user=medbot")
	})
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "STORE_DRIVER", "sqlite"},
		{"unknown session backend", "SESSION_BACKEND", "memcached"},
		{"bad ttl", "SESSION_TTL", "tomorrow"},
		{"bad jwt minutes", "JWT_EXPIRATION_MINUTES", "fifteen"},
		{"zero top n", "RECOMMEND_TOP_N", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
