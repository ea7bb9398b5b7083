package database

import (
	"testing"
	"time"

	"github.com/BradenHooton/sessionauth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigFrom(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "auth", Password: "pw", Name: "sessionauth", SSLMode: "disable",
		MaxConns: 12, MinConns: 2, MaxConnLifetime: 3 * time.Minute,
	}

	poolConfig, err := poolConfigFrom(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, 3*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, "db.internal", poolConfig.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolConfig.ConnConfig.Port)
	assert.Equal(t, "sessionauth", poolConfig.ConnConfig.Database)
}

func TestPoolConfigFrom_ZeroKeepsDefaults(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}

	poolConfig, err := poolConfigFrom(cfg)
	require.NoError(t, err)

	assert.Positive(t, poolConfig.MaxConns)
	assert.Positive(t, poolConfig.HealthCheckPeriod)
}
