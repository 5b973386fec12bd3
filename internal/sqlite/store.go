package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"casualty-dispatch/internal/database"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Store is a SQLite-based scheduling journal implementing database.Journal
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	logger *zap.Logger

	passRepo    database.PassRepository
	bindingRepo database.BindingRepository
}

// New opens or creates the journal at dbPath. A nil logger disables logging.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Info("opening journal", zap.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.passRepo = &passRepository{store: store}
	store.bindingRepo = &bindingRepository{store: store}

	return store, nil
}

// GetDBPath returns the journal file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version > schemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (1);

	-- One row per scheduling pass
	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		cause TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		pending INTEGER NOT NULL DEFAULT 0,
		evaluations INTEGER NOT NULL DEFAULT 0,
		traffic_factor REAL NOT NULL DEFAULT 1,
		assigned INTEGER NOT NULL DEFAULT 0
	);

	-- Patient ids are unique within a run, not across runs sharing a journal
	CREATE TABLE IF NOT EXISTS bindings (
		patient_id TEXT NOT NULL,
		pass_id TEXT NOT NULL,
		severity TEXT NOT NULL,
		vehicle_id TEXT NOT NULL,
		hospital_id TEXT NOT NULL,
		cost REAL NOT NULL,
		assigned_at DATETIME NOT NULL,
		seq INTEGER NOT NULL,
		PRIMARY KEY (pass_id, patient_id),
		FOREIGN KEY (pass_id) REFERENCES passes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_bindings_pass ON bindings(pass_id, seq);
	CREATE INDEX IF NOT EXISTS idx_bindings_patient ON bindings(patient_id);
	CREATE INDEX IF NOT EXISTS idx_bindings_vehicle ON bindings(vehicle_id);
	CREATE INDEX IF NOT EXISTS idx_bindings_hospital ON bindings(hospital_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("journal schema initialized", zap.Int("version", schemaVersion))
	return nil
}

// Close checkpoints the WAL and closes the connection
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Passes() database.PassRepository     { return s.passRepo }
func (s *Store) Bindings() database.BindingRepository { return s.bindingRepo }
