package database

import (
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	content := "-- comment\nCREATE TABLE a (\n  id NUMBER\n);\n\nCREATE INDEX i ON a (id);\nDROP TABLE b"

	stmts := SplitStatements(content)

	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (\nid NUMBER\n)", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a (id)", stmts[1])
	assert.Equal(t, "DROP TABLE b", stmts[2])
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	for _, name := range []string{
		"migrations/sqlite3/000001_create_ingestion_tables.up.sql",
		"migrations/oracle/000001_create_ingestion_tables.up.sql",
	} {
		content, err := migrationsFS.ReadFile(name)
		require.NoError(t, err, name)
		assert.Contains(t, string(content), "parse_logs")
	}
}

func TestRunOracleMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"migrations/oracle/000002_b.up.sql":   {Data: []byte("CREATE INDEX x ON t (c);")},
		"migrations/oracle/000001_a.up.sql":   {Data: []byte("CREATE TABLE t (c NUMBER);")},
		"migrations/oracle/000001_a.down.sql": {Data: []byte("DROP TABLE t;")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE t (c NUMBER)")).WillReturnError(errors.New("ORA-00955: name is already used by an existing object"))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX x ON t (c)")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, runOracleMigrations(db, fsys))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunOracleMigrations_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"migrations/oracle/000001_a.up.sql": {Data: []byte("CREATE TABLE t (c NUMBER);")},
	}
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("ORA-01031: insufficient privileges"))

	err = runOracleMigrations(db, fsys)
	assert.ErrorContains(t, err, "000001_a.up.sql")
}

func TestRunMigrations_UnsupportedDriver(t *testing.T) {
	assert.Error(t, RunMigrations(nil, "postgres"))
}
