package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultAppName, cfg.AppName)
	require.Equal(t, ":8080", cfg.Address())
	require.Equal(t, defaultSessionTTL, cfg.SessionTTL)
	require.Equal(t, defaultReplayTTL, cfg.ReplayTTL)
	require.Equal(t, defaultRateLimitMax, cfg.RateLimitMax)
	require.False(t, cfg.SMS.Enabled())
}

func TestLoadRequiresBackendsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDurations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want time.Duration
	}{
		{
			name: "seconds",
			env:  map[string]string{"SESSION_TTL_SECONDS": "90"},
			want: 90 * time.Second,
		},
		{
			name: "duration",
			env:  map[string]string{"SESSION_TTL": "2m"},
			want: 2 * time.Minute,
		},
		{
			name: "seconds wins",
			env:  map[string]string{"SESSION_TTL_SECONDS": "30", "SESSION_TTL": "2m"},
			want: 30 * time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			t.Setenv("SESSION_TTL_SECONDS", "")
			t.Setenv("SESSION_TTL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.SessionTTL)
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("RATE_LIMIT_MAX", "many")

	_, err := Load()
	require.Error(t, err)
}
