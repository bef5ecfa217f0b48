// Package store persists imported and manually entered Formula 1 records in
// SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by direct lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// Store owns the database handle. Work is done through per-request Sessions.
type Store struct {
	db         *sql.DB
	isPostgres bool
}

// Config configures the store.
type Config struct {
	// DSN is the data-source name. Values starting with "postgres://" or
	// "postgresql://" select the PostgreSQL backend (pgx); anything else is
	// treated as a SQLite file path.
	DSN string
}

// New opens the database selected by cfg.DSN and creates missing tables.
func New(cfg Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "f1agent.db"
	}

	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var db *sql.DB
	var err error
	if isPostgres {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	} else {
		dir := filepath.Dir(dsn)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := createTables(db, isPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, isPostgres: isPostgres}, nil
}

// IsPostgres reports whether the store is backed by PostgreSQL.
func (s *Store) IsPostgres() bool { return s.isPostgres }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Session acquires a dedicated connection. Callers must Close it, normally
// with defer right after acquisition.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, isPostgres: s.isPostgres}, nil
}

type sessionKey struct{}

// WithSession returns a context carrying sess so that code running on
// behalf of the request (agent tools) reuses it.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by WithSession.
func SessionFrom(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok && sess != nil
}

// rebind rewrites ? placeholders into $N for PostgreSQL.
func rebind(isPostgres bool, query string) string {
	if !isPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func createTables(db *sql.DB, isPostgres bool) error {
	pkDef := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres {
		pkDef = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS races (
		id %[1]s,
		season TEXT NOT NULL,
		round TEXT,
		race_name TEXT,
		date TEXT NOT NULL,
		time TEXT,
		circuit_name TEXT,
		country TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_races_season ON races(season);

	CREATE TABLE IF NOT EXISTS drivers (
		id %[1]s,
		season TEXT NOT NULL,
		permanent_number TEXT,
		driver_ref TEXT,
		given_name TEXT NOT NULL,
		family_name TEXT NOT NULL,
		code TEXT,
		nationality TEXT NOT NULL,
		constructor_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_drivers_season ON drivers(season);
	CREATE INDEX IF NOT EXISTS idx_drivers_season_number ON drivers(season, permanent_number);

	CREATE TABLE IF NOT EXISTS constructors (
		id %[1]s,
		season TEXT NOT NULL,
		constructor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		nationality TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_constructors_season ON constructors(season, constructor_id);

	CREATE TABLE IF NOT EXISTS driver_profiles (
		id %[1]s,
		driver_ref TEXT UNIQUE NOT NULL,
		given_name TEXT NOT NULL,
		family_name TEXT NOT NULL,
		code TEXT,
		nationality TEXT,
		date_of_birth TEXT
	);
	`, pkDef)

	// One statement per Exec.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
