// Package repository provides the data access layer for taskflows records.
package repository

import (
	"database/sql"
	"time"
)

// Operation represents a record in the operations table.
type Operation struct {
	ID        int64          `db:"id"`
	Service   string         `db:"service"`
	Operation string         `db:"operation"`
	Detail    sql.NullString `db:"detail"`
	CreatedAt time.Time      `db:"created_at"`
}

// History defines the interface for operation history access.
type History interface {
	Record(service, operation, detail string) (int64, error)
	Recent(limit int) ([]Operation, error)
	ForService(service string, limit int) ([]Operation, error)
}

// SQLHistory implements History interface with a SQL database.
type SQLHistory struct {
	db *sql.DB
}

// NewHistory creates a new SQL-based operation history.
func NewHistory(db *sql.DB) History {
	return &SQLHistory{db: db}
}

// Record inserts one operation record. An empty detail is stored as NULL.
func (h *SQLHistory) Record(service, operation, detail string) (int64, error) {
	var detailNS sql.NullString
	if detail != "" {
		detailNS = sql.NullString{String: detail, Valid: true}
	}

	result, err := h.db.Exec(
		"INSERT INTO operations (service, operation, detail) VALUES (?, ?, ?)",
		service, operation, detailNS,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Recent returns the most recent operations across all services.
func (h *SQLHistory) Recent(limit int) ([]Operation, error) {
	rows, err := h.db.Query(
		"SELECT id, service, operation, detail, created_at FROM operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	return scanOperations(rows)
}

// ForService returns the most recent operations for one service.
func (h *SQLHistory) ForService(service string, limit int) ([]Operation, error) {
	rows, err := h.db.Query(
		"SELECT id, service, operation, detail, created_at FROM operations WHERE service = ? ORDER BY id DESC LIMIT ?",
		service, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanOperations(rows)
}

func scanOperations(rows *sql.Rows) ([]Operation, error) {
	defer func() { _ = rows.Close() }()

	var ops []Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Service, &op.Operation, &op.Detail, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
