package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationFiles embed.FS

// MigrationSet selects which schema a database carries.
type MigrationSet string

const (
	// PrimarySchema holds the resume records.
	PrimarySchema MigrationSet = "primary"
	// ActivitySchema holds the activity log on the secondary store.
	ActivitySchema MigrationSet = "activity"
)

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

func migrationDir(set MigrationSet, dialect Dialect) (string, error) {
	switch {
	case set == PrimarySchema && dialect == Postgres:
		return "migrations/primary", nil
	case set == ActivitySchema && dialect == MySQL:
		return "migrations/activity_mysql", nil
	case set == ActivitySchema && dialect == SQLite:
		return "migrations/activity_sqlite", nil
	default:
		return "", fmt.Errorf("no %s migrations for dialect %s", set, dialect)
	}
}

func gooseDialect(d Dialect) string {
	if d == SQLite {
		return "sqlite3"
	}
	return string(d)
}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, set MigrationSet, dialect Dialect) error {
	if database == nil {
		return nil
	}
	dir, err := migrationDir(set, dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(gooseDialect(dialect)); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}

// SchemaVersion reports the latest applied migration version.
func SchemaVersion(database *sql.DB, dialect Dialect) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(gooseDialect(dialect)); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(database)
}
