// Package unitstore persists compiled unit bundles in SQLite, keyed by
// name and version. Stored bundles are immutable; Put replaces a prior
// bundle for the same key outright.
package unitstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/ternlang/tern/unit"
)

var log = commonlog.GetLogger("tern.unitstore")

// ErrUnitNotFound indicates the requested unit doesn't exist
var ErrUnitNotFound = errors.New("unit not found")

// Store handles SQLite storage for compiled unit bundles
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if necessary) a unit store at the given path
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	// Set busy timeout for concurrent access
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		name TEXT NOT NULL,
		version TEXT NOT NULL,
		types INTEGER NOT NULL,
		fields INTEGER NOT NULL,
		methods INTEGER NOT NULL,
		strings INTEGER NOT NULL,
		classes INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (name, version)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path
func (s *Store) Path() string {
	return s.path
}

// Put encodes and stores a unit bundle, replacing any prior bundle with
// the same name and version
func (s *Store) Put(u *unit.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := unit.EncodeBundle(u)
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}

	m := u.Manifest()
	if err := unit.ValidateManifest(m); err != nil {
		return fmt.Errorf("validating manifest: %w", err)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO units
		 (name, version, types, fields, methods, strings, classes, checksum, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Version, m.Types, m.Fields, m.Methods, m.Strings, m.Classes,
		checksum, data,
	)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}

	log.Debugf("stored unit %s@%s (%d bytes)", m.Name, m.Version, len(data))
	return nil
}

// Get retrieves and decodes a unit bundle
func (s *Store) Get(name, version string) (*unit.Unit, error) {
	var checksum string
	var data []byte
	err := s.db.QueryRow(
		"SELECT checksum, data FROM units WHERE name = ? AND version = ?",
		name, version,
	).Scan(&checksum, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("querying unit: %w", err)
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != checksum {
		return nil, fmt.Errorf("unit %s@%s: checksum mismatch", name, version)
	}

	u, err := unit.DecodeBundle(data)
	if err != nil {
		return nil, fmt.Errorf("decoding unit %s@%s: %w", name, version, err)
	}
	return u, nil
}

// List returns manifests for every stored unit, ordered by name then
// version. Manifests come from the catalog columns; bundles stay encoded.
func (s *Store) List() ([]unit.Manifest, error) {
	rows, err := s.db.Query(
		`SELECT name, version, types, fields, methods, strings, classes
		 FROM units ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var manifests []unit.Manifest
	for rows.Next() {
		var m unit.Manifest
		if err := rows.Scan(&m.Name, &m.Version, &m.Types, &m.Fields,
			&m.Methods, &m.Strings, &m.Classes); err != nil {
			return nil, fmt.Errorf("scanning manifest: %w", err)
		}
		manifests = append(manifests, m)
	}
	return manifests, rows.Err()
}

// Delete removes a unit bundle from the store
func (s *Store) Delete(name, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM units WHERE name = ? AND version = ?", name, version)
	if err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	return nil
}
