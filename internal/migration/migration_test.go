package migration

import (
	"testing"

	"cts/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseManager_DSN(t *testing.T) {
	cfg := config.New()
	cfg.Database.User = "cts"
	cfg.Database.Password = "secret"
	cfg.Database.Host = "db"
	cfg.Database.Port = "3307"
	dm := NewDatabaseManager(cfg)

	server, err := mysql.ParseDSN(dm.DSN(false))
	require.NoError(t, err)
	assert.Equal(t, "cts", server.User)
	assert.Equal(t, "secret", server.Passwd)
	assert.Equal(t, "db:3307", server.Addr)
	assert.Empty(t, server.DBName)
	assert.True(t, server.ParseTime)

	withDB, err := mysql.ParseDSN(dm.DSN(true))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDBName, withDB.DBName)
}

func TestDatabaseManager_IsValidDatabaseName(t *testing.T) {
	dm := NewDatabaseManager(config.New())
	tests := []struct {
		name     string
		expected bool
	}{
		{"cts_results", true},
		{"results2", true},
		{"", false},
		{"bad-name", false},
		{"x; DROP TABLE runs", false},
		{"name`", false},
		{"drop", false},
		{string(make([]byte, 65)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dm.isValidDatabaseName(tt.name))
		})
	}
}

func TestMigrations_Ordered(t *testing.T) {
	require.NotEmpty(t, Migrations)
	seen := map[string]bool{}
	for i, m := range Migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous from 1")
		assert.NotEmpty(t, m.Up)
		assert.False(t, seen[m.Name], "duplicate name %s", m.Name)
		seen[m.Name] = true
	}
}
