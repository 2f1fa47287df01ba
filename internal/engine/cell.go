package engine

import "gridsheet/internal/formula"

// cell is one record in the table. A record with a nil ast is a
// placeholder: it exists only because another cell's formula references
// it, and it reads as 0.
type cell struct {
	id         string
	expr       string
	ast        formula.Node
	value      float64
	dependents map[string]struct{}
}

func newCell(id string) *cell {
	return &cell{id: id, dependents: map[string]struct{}{}}
}

func (c *cell) clone() *cell {
	deps := make(map[string]struct{}, len(c.dependents))
	for id := range c.dependents {
		deps[id] = struct{}{}
	}
	return &cell{
		id:         c.id,
		expr:       c.expr,
		ast:        c.ast, // AST nodes are immutable after parse, safe to share
		value:      c.value,
		dependents: deps,
	}
}

// snapshot deep-copies the table state for rollback.
func (t *Table) snapshot() map[string]*cell {
	snap := make(map[string]*cell, len(t.cells))
	for id, c := range t.cells {
		snap[id] = c.clone()
	}
	return snap
}

func (t *Table) restore(snap map[string]*cell) {
	t.cells = snap
}
