// Package store persists compiled units in a SQLite database so a world's
// scriptorium survives restarts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	_ "modernc.org/sqlite"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/types"
)

// ErrNotFound indicates no unit is stored under the classifier.
var ErrNotFound = errors.New("store: unit not found")

// Store is a table of persisted units keyed by classifier.
type Store struct {
	db        *sql.DB
	recompile bytecode.Recompiler
	mu        sync.Mutex
}

// Open opens or creates the database at path. Units loaded back are
// recompiled with recompile; pass nil to trust the stored bytes.
func Open(path string, recompile bytecode.Recompiler) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		family  INTEGER NOT NULL,
		genus   INTEGER NOT NULL,
		species INTEGER NOT NULL,
		event   INTEGER NOT NULL,
		batch   TEXT NOT NULL,
		data    BLOB NOT NULL,
		PRIMARY KEY (family, genus, species, event)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, recompile: recompile}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes units in one transaction under a fresh batch id, replacing
// any stored unit with the same classifier.
func (s *Store) Save(units ...*bytecode.Unit) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := uuid.New().String()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	for _, u := range units {
		data, err := bytecode.Marshal(u)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("encoding %s: %w", u.Classifier(), err)
		}
		c := u.Classifier()
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO units (family, genus, species, event, batch, data) VALUES (?, ?, ?, ?, ?, ?)",
			c.Family, c.Genus, c.Species, c.Event, batch, data,
		)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("saving %s: %w", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing batch: %w", err)
	}
	return batch, nil
}

// Load retrieves the unit stored under class.
func (s *Store) Load(class types.Classifier) (*bytecode.Unit, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM units WHERE family = ? AND genus = ? AND species = ? AND event = ?",
		class.Family, class.Genus, class.Species, class.Event,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying unit: %w", err)
	}
	return bytecode.Unmarshal(data, s.recompile)
}

// LoadAll restores every stored unit. Any unit that fails to load, table
// drift included, fails the whole load; every failure is reported.
func (s *Store) LoadAll() ([]*bytecode.Unit, error) {
	rows, err := s.db.Query("SELECT data FROM units ORDER BY family, genus, species, event")
	if err != nil {
		return nil, fmt.Errorf("querying units: %w", err)
	}
	defer rows.Close()

	var units []*bytecode.Unit
	var result *multierror.Error
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("reading unit: %w", err)
		}
		u, err := bytecode.Unmarshal(data, s.recompile)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return units, nil
}

// Batch returns the batch id class was last saved under.
func (s *Store) Batch(class types.Classifier) (string, error) {
	var batch string
	err := s.db.QueryRow(
		"SELECT batch FROM units WHERE family = ? AND genus = ? AND species = ? AND event = ?",
		class.Family, class.Genus, class.Species, class.Event,
	).Scan(&batch)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return batch, err
}

// Delete removes the unit stored under class.
func (s *Store) Delete(class types.Classifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"DELETE FROM units WHERE family = ? AND genus = ? AND species = ? AND event = ?",
		class.Family, class.Genus, class.Species, class.Event,
	)
	if err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
