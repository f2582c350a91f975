package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// oracleAlreadyExists is raised when an object name is already in use.
const oracleAlreadyExists = "ORA-00955"

// RunMigrations applies every up migration for driver.
func RunMigrations(db *sql.DB, driver string) error {
	switch driver {
	case config.DriverSQLite3:
		return runSQLiteMigrations(db)
	case config.DriverOracle:
		return runOracleMigrations(db, migrationsFS)
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func runSQLiteMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("could not open migrations source: %w", err)
	}
	target, err := migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite3 migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, config.DriverSQLite3, target)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migrations: %w", err)
	}
	logger.Get().Info("Migrations completed successfully", zap.String("driver", config.DriverSQLite3))
	return nil
}

// runOracleMigrations executes the oracle up files in name order, one statement at a time.
// Objects that already exist are skipped so the runner can be re-run.
func runOracleMigrations(db *sql.DB, fsys fs.FS) error {
	dir := "migrations/oracle"
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("could not read migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	l := logger.Get()
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", entry.Name(), err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := db.Exec(stmt); err != nil {
				if strings.Contains(err.Error(), oracleAlreadyExists) {
					l.Debug("Skipping existing object", zap.String("file", entry.Name()))
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", entry.Name(), err)
			}
		}
		l.Info("Executed migration", zap.String("file", entry.Name()))
	}

	l.Info("Migrations completed successfully", zap.String("driver", config.DriverOracle))
	return nil
}

// SplitStatements splits a migration file on semicolons that end a line.
// Oracle rejects a trailing semicolon, so it is dropped.
func SplitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			current.WriteString(strings.TrimSuffix(trimmed, ";"))
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteString(trimmed)
		current.WriteString("\n")
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
