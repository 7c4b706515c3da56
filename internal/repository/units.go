package repository

import (
	"database/sql"
	"time"
)

// Unit represents a record in the units table: one unit file taskflows
// has written, keyed by file stem and unit type.
type Unit struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	SHA1Hash  string    `db:"sha1_hash"`
	UserMode  bool      `db:"user_mode"`
	CreatedAt time.Time `db:"created_at"`
}

// UnitStore defines the interface for unit inventory access.
type UnitStore interface {
	FindAll() ([]Unit, error)
	FindByName(name string) ([]Unit, error)
	Upsert(unit *Unit) (int64, error)
	Delete(name, unitType string) error
}

// SQLUnitStore implements UnitStore interface with a SQL database.
type SQLUnitStore struct {
	db *sql.DB
}

// NewUnitStore creates a new SQL-based unit store.
func NewUnitStore(db *sql.DB) UnitStore {
	return &SQLUnitStore{db: db}
}

// FindAll retrieves all tracked units.
func (s *SQLUnitStore) FindAll() ([]Unit, error) {
	rows, err := s.db.Query(
		"SELECT id, name, type, sha1_hash, user_mode, created_at FROM units ORDER BY name, type",
	)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

// FindByName retrieves the tracked units with the given file stem.
func (s *SQLUnitStore) FindByName(name string) ([]Unit, error) {
	rows, err := s.db.Query(
		"SELECT id, name, type, sha1_hash, user_mode, created_at FROM units WHERE name = ?",
		name,
	)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

// Upsert inserts a unit record or refreshes the hash of an existing one.
func (s *SQLUnitStore) Upsert(unit *Unit) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO units (name, type, sha1_hash, user_mode)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name, type) DO UPDATE SET
		sha1_hash = excluded.sha1_hash,
		user_mode = excluded.user_mode
	`, unit.Name, unit.Type, unit.SHA1Hash, unit.UserMode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Delete removes a unit record.
func (s *SQLUnitStore) Delete(name, unitType string) error {
	_, err := s.db.Exec("DELETE FROM units WHERE name = ? AND type = ?", name, unitType)
	return err
}

func scanUnits(rows *sql.Rows) ([]Unit, error) {
	defer func() { _ = rows.Close() }()

	var units []Unit
	for rows.Next() {
		var unit Unit
		if err := rows.Scan(&unit.ID, &unit.Name, &unit.Type, &unit.SHA1Hash, &unit.UserMode, &unit.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}
