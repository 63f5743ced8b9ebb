package migration

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"cts/internal/config"

	"github.com/go-sql-driver/mysql"
)

// DatabaseManager manages the results database
type DatabaseManager struct {
	config *config.Config
}

// NewDatabaseManager creates a new DatabaseManager
func NewDatabaseManager(cfg *config.Config) *DatabaseManager {
	return &DatabaseManager{config: cfg}
}

// DSN returns the MySQL data source name, optionally selecting the
// results database.
func (dm *DatabaseManager) DSN(withDatabase bool) string {
	db := dm.config.Database
	mc := mysql.NewConfig()
	mc.User = db.User
	mc.Passwd = db.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(db.Host, db.Port)
	mc.ParseTime = true
	if withDatabase {
		mc.DBName = db.Name
	}
	return mc.FormatDSN()
}

// Open connects to the results database, creating it when it does not exist
func (dm *DatabaseManager) Open(ctx context.Context) (*sql.DB, error) {
	name := dm.config.Database.Name
	if !dm.isValidDatabaseName(name) {
		return nil, fmt.Errorf("invalid database name: %s", name)
	}

	// Connect to MySQL server (without specifying database)
	server, err := sql.Open("mysql", dm.DSN(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer server.Close()

	if err := server.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	exists, err := dm.databaseExists(ctx, server, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if !exists {
		if err := dm.createDatabase(ctx, server, name); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", name, err)
		}
	}

	db, err := sql.Open("mysql", dm.DSN(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", name, err)
	}
	return db, nil
}

// databaseExists checks if a database exists
func (dm *DatabaseManager) databaseExists(ctx context.Context, db *sql.DB, dbName string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRowContext(ctx, query, dbName).Scan(&exists)
	return exists, err
}

// createDatabase creates a new database
func (dm *DatabaseManager) createDatabase(ctx context.Context, db *sql.DB, dbName string) error {
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)
	_, err := db.ExecContext(ctx, query)
	return err
}

// isValidDatabaseName allows only identifiers safe to interpolate
func (dm *DatabaseManager) isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r == '$' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	// Check for SQL keywords commonly used in injection attempts
	upperName := strings.ToUpper(name)
	for _, word := range []string{"DROP", "DELETE", "TRUNCATE"} {
		if upperName == word {
			return false
		}
	}
	return true
}
