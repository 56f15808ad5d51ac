package database_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulehub/p2p/internal/database"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_NAME", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME"} {
		t.Setenv(key, "")
	}

	cfg := database.ConfigFromEnv()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "schedulehub", cfg.Database)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, database.DefaultApplicationName, cfg.ApplicationName)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_CONNECT_TIMEOUT", "2s")

	cfg := database.ConfigFromEnv()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
}

func TestConnectionString_EscapesCredentials(t *testing.T) {
	cfg := database.Config{
		Host:            "localhost",
		Port:            5432,
		User:            "cache",
		Password:        "p@ss/word",
		Database:        "schedules",
		SSLMode:         "require",
		ApplicationName: "schedulehub-api",
	}

	u, err := url.Parse(cfg.ConnectionString())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/schedules", u.Path)
	pw, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "schedulehub-api", u.Query().Get("application_name"))
}
