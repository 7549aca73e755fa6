package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(New())
	require.Equal(t, "0.0.0.0:8431", cfg.HTTPAddr)
	require.Equal(t, "sqlite3", cfg.Database.Driver)
	require.Equal(t, "static/uploads", cfg.UploadDir)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, "info", cfg.Log.Level)
	require.ErrorIs(t, cfg.ValidateServe(), ErrMissingSecret)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv(KeySessionSecret, "s3cret")
	t.Setenv(KeyDatabaseDriver, "postgres")
	t.Setenv(KeyLogDev, "true")
	t.Setenv(KeySessionTTL, "2h")

	cfg := Load(New())
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.NoError(t, cfg.ValidateServe())
}
