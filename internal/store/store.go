// Package store persists raw formula text keyed by sheet name and cell
// id. Values are never stored; they are recomputed by replaying the
// formulas through the engine on load.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cells (
		sheet TEXT NOT NULL,
		id    TEXT NOT NULL,
		expr  TEXT NOT NULL,
		PRIMARY KEY (sheet, id)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores or replaces the formula for one cell.
func (s *Store) Put(sheet, id, expr string) error {
	_, err := s.db.Exec(
		`INSERT INTO cells (sheet, id, expr) VALUES (?, ?, ?)
		 ON CONFLICT (sheet, id) DO UPDATE SET expr = excluded.expr`,
		sheet, id, expr)
	if err != nil {
		return fmt.Errorf("put %s!%s: %w", sheet, id, err)
	}
	return nil
}

// Delete removes one cell's stored formula. Missing rows are not an error.
func (s *Store) Delete(sheet, id string) error {
	_, err := s.db.Exec(`DELETE FROM cells WHERE sheet = ? AND id = ?`, sheet, id)
	if err != nil {
		return fmt.Errorf("delete %s!%s: %w", sheet, id, err)
	}
	return nil
}

// Load returns all stored formulas for one sheet, keyed by cell id.
func (s *Store) Load(sheet string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT id, expr FROM cells WHERE sheet = ?`, sheet)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sheet, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, expr string
		if err := rows.Scan(&id, &expr); err != nil {
			return nil, fmt.Errorf("load %s: %w", sheet, err)
		}
		out[id] = expr
	}
	return out, rows.Err()
}

// Clear drops every stored formula for one sheet.
func (s *Store) Clear(sheet string) error {
	_, err := s.db.Exec(`DELETE FROM cells WHERE sheet = ?`, sheet)
	if err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	return nil
}

// Sheets lists the sheet names with at least one stored cell.
func (s *Store) Sheets() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT sheet FROM cells ORDER BY sheet`)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sheets: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
