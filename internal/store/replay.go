package store

import (
	"log/slog"

	"gridsheet/internal/engine"
)

// Replay feeds every stored formula for sheet through the engine. Order
// does not matter: a formula referencing a cell whose own formula has
// not been loaded yet reads 0, and the later assignment propagates.
// Formulas the engine rejects are logged and skipped so one bad row
// cannot block the rest of the sheet.
func (s *Store) Replay(table *engine.Table, sheet string, log *slog.Logger) error {
	cells, err := s.Load(sheet)
	if err != nil {
		return err
	}
	for id, expr := range cells {
		if _, err := table.Evaluate(id, expr); err != nil {
			log.Warn("stored formula rejected", "cell", id, "expr", expr, "err", err)
		}
	}
	return nil
}
