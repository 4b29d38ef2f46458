package db

import (
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// OpenSQLite opens the database with WAL and a single writer connection.
// SQLite serializes writers anyway; capping the pool avoids SQLITE_BUSY
// churn under concurrent job updates.
func OpenSQLite(path string) *sql.DB {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", path).Msg("Failed to open database")
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		log.Fatal().Err(err).Msg("Failed to enable WAL mode")
	}
	if _, err := database.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		log.Fatal().Err(err).Msg("Failed to set busy timeout")
	}
	if _, err := database.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		log.Fatal().Err(err).Msg("Failed to enable foreign keys")
	}
	return database
}

// RunMigrations applies pending schema migrations from migrationsDir.
func RunMigrations(database *sql.DB, migrationsDir string) {
	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "sqlite3", driver)
	if err != nil {
		log.Fatal().Err(err).Str("dir", migrationsDir).Msg("Failed to initialize migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	version, dirty, _ := m.Version()
	log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Database migrations applied")
}
