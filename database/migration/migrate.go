// Package migration applies the embedded schema with golang-migrate.
//
// Each driver has its own directory of versioned VERSION_name.up.sql /
// VERSION_name.down.sql files under schema/. Postgres migrations run on a
// dedicated connection pool opened from the URL; sqlite migrations run on the
// caller's pool, since a shared-cache in-memory database only exists while
// one of its connections stays open.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema
var schemaFS embed.FS

// Supported drivers, matching database.DriverPostgres and database.DriverSQLite.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Target identifies the database to migrate.
type Target struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	// URL is the postgres connection string. Unused for sqlite.
	URL string
	// DB is the open pool. Required for sqlite.
	DB *sql.DB
}

// Up applies every pending migration. No pending migrations is not an error.
func Up(t Target) error {
	return run(t, func(m *migrate.Migrate) error { return m.Up() }, "up")
}

// Down rolls back every applied migration.
func Down(t Target) error {
	return run(t, func(m *migrate.Migrate) error { return m.Down() }, "down")
}

// Steps applies n migrations forward (n > 0) or rolls back -n (n < 0).
func Steps(t Target, n int) error {
	return run(t, func(m *migrate.Migrate) error { return m.Steps(n) }, "steps")
}

// Version returns the current migration version and dirty flag.
// A database that was never migrated reports version 0.
func Version(t Target) (version uint, dirty bool, err error) {
	err = withMigrator(t, func(m *migrate.Migrate) error {
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			err = nil
		}
		return err
	})
	return version, dirty, err
}

// Files lists the embedded migration files for driver.
func Files(driver string) ([]string, error) {
	entries, err := fs.ReadDir(schemaFS, "schema/"+driver)
	if err != nil {
		return nil, fmt.Errorf("unknown migration driver %q: %w", driver, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func run(t Target, fn func(*migrate.Migrate) error, op string) error {
	return withMigrator(t, func(m *migrate.Migrate) error {
		if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate %s: %w", op, err)
		}
		return nil
	})
}

func withMigrator(t Target, fn func(*migrate.Migrate) error) error {
	driver, release, err := openDriver(t)
	if err != nil {
		return err
	}

	source, err := iofs.New(schemaFS, "schema/"+t.Driver)
	if err != nil {
		_ = release()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, t.Driver, driver)
	if err != nil {
		_ = source.Close()
		_ = release()
		return fmt.Errorf("create migrator: %w", err)
	}

	runErr := fn(m)
	_ = source.Close()
	if err := release(); err != nil && runErr == nil {
		return fmt.Errorf("close migration connection: %w", err)
	}
	return runErr
}

// openDriver returns the migrate driver and a release func. The sqlite
// driver's Close would close the caller's pool, so it is never called.
func openDriver(t Target) (migratedb.Driver, func() error, error) {
	switch t.Driver {
	case DriverSQLite:
		if t.DB == nil {
			return nil, nil, fmt.Errorf("sqlite migrations need an open *sql.DB")
		}
		driver, err := migratesqlite.WithInstance(t.DB, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("create sqlite migration driver: %w", err)
		}
		return driver, func() error { return nil }, nil

	case DriverPostgres:
		if t.URL == "" {
			return nil, nil, fmt.Errorf("postgres migrations need a connection url")
		}
		db, err := sql.Open("pgx", t.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open migration connection: %w", err)
		}
		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create postgres migration driver: %w", err)
		}
		return driver, driver.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported migration driver %q", t.Driver)
	}
}
