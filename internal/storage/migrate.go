package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration failed halfway and the ledger
// file needs manual repair before it can be opened.
var ErrDirtySchema = errors.New("ledger schema is dirty")

// migrator owns its own connection: closing a migrate instance closes the
// database it was given, which must not be the repository pool.
type migrator struct {
	db *sql.DB
	m  *migrate.Migrate
}

func openMigrator(dbPath string) (*migrator, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &migrator{db: db, m: m}, nil
}

func (g *migrator) close() {
	g.m.Close()
	g.db.Close()
}

// version reports the applied schema version; zero means none yet.
func (g *migrator) version() (uint, error) {
	v, dirty, err := g.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return v, fmt.Errorf("version %d: %w", v, ErrDirtySchema)
	}
	return v, nil
}

// RunMigrations brings the ledger schema at dbPath up to the newest embedded
// version and returns that version.
func RunMigrations(dbPath string) (uint, error) {
	g, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer g.close()

	before, err := g.version()
	if err != nil {
		return before, err
	}
	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("apply migrations from version %d: %w", before, err)
	}

	after, err := g.version()
	if err != nil {
		return after, err
	}
	if after != before {
		slog.Info("Ledger schema migrated", "path", dbPath, "from", before, "to", after)
	}
	return after, nil
}

// SchemaVersion reads the applied version without migrating.
func SchemaVersion(dbPath string) (uint, error) {
	g, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer g.close()
	return g.version()
}
