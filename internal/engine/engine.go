// Package engine owns the in-memory spreadsheet state: one record per
// cell with its formula, last value and reverse dependency edges. Edits
// go through Evaluate, which keeps the dependency graph acyclic and the
// forward/backward edges symmetric, and either fully applies or leaves
// the table byte-for-byte unchanged.
package engine

import (
	"sort"

	"gridsheet/internal/formula"
	"gridsheet/internal/refs"
)

// Table is the cell table for one spreadsheet instance. It is not safe
// for concurrent use; callers serialize access.
type Table struct {
	cells map[string]*cell
}

// New returns an empty table.
func New() *Table {
	return &Table{cells: map[string]*cell{}}
}

// Evaluate assigns exprText as the formula of cellId, recomputes the
// cell and every transitive dependent, and returns the new values keyed
// by cell id. On failure the table is left exactly as it was: syntax
// failures never mutate, cycle failures roll back to a snapshot.
func (t *Table) Evaluate(cellId, exprText string) (map[string]float64, error) {
	base, err := refs.Parse(cellId)
	if err != nil {
		return nil, syntaxErr(cellId, err)
	}
	cellId = base.String()

	ast, err := formula.Parse(exprText, base)
	if err != nil {
		return nil, syntaxErr(cellId, err)
	}

	snap := t.snapshot()

	if err := t.assign(cellId, base, ast, exprText); err != nil {
		t.restore(snap)
		return nil, err
	}

	c := t.cells[cellId]
	v, err := t.eval(ast, base)
	if err != nil {
		t.restore(snap)
		return nil, err
	}
	c.value = v

	updates, err := t.propagate(cellId)
	if err != nil {
		t.restore(snap)
		return nil, err
	}
	updates[cellId] = v
	return updates, nil
}

// Remove clears cellId's formula, so dependents read it as 0, and
// recomputes them. The record itself survives while other formulas
// still reference it; with no referrers left it is dropped entirely.
func (t *Table) Remove(cellId string) (map[string]float64, error) {
	base, err := refs.Parse(cellId)
	if err != nil {
		return nil, syntaxErr(cellId, err)
	}
	cellId = base.String()

	c, ok := t.cells[cellId]
	if !ok {
		return map[string]float64{cellId: 0}, nil
	}

	snap := t.snapshot()

	t.retract(cellId, base)
	c.ast = nil
	c.expr = ""
	c.value = 0

	updates, err := t.propagate(cellId)
	if err != nil {
		// removing edges cannot introduce a cycle, but a propagation
		// failure of any kind must not leave a half-updated table
		t.restore(snap)
		return nil, err
	}
	if len(c.dependents) == 0 {
		delete(t.cells, cellId)
	}
	updates[cellId] = 0
	return updates, nil
}

// Copy pastes srcCellId's formula into destCellId, shifting relative
// references by the offset between the two cells, and evaluates the
// result. Copying a cell with no formula clears the destination.
func (t *Table) Copy(srcCellId, destCellId string) (map[string]float64, error) {
	src, err := refs.Parse(srcCellId)
	if err != nil {
		return nil, syntaxErr(srcCellId, err)
	}
	dest, err := refs.Parse(destCellId)
	if err != nil {
		return nil, syntaxErr(destCellId, err)
	}

	c, ok := t.cells[src.String()]
	if !ok || c.ast == nil {
		return t.Remove(dest.String())
	}

	text, err := formula.Translate(c.expr, src, dest)
	if err != nil {
		return nil, syntaxErr(src.String(), err)
	}
	return t.Evaluate(dest.String(), text)
}

// Query returns cellId's raw formula and current value. ok is false if
// no record exists; a placeholder reports an empty formula and value 0.
func (t *Table) Query(cellId string) (expr string, value float64, ok bool) {
	base, err := refs.Parse(cellId)
	if err != nil {
		return "", 0, false
	}
	c, ok := t.cells[base.String()]
	if !ok {
		return "", 0, false
	}
	return c.expr, c.value, true
}

// Clear drops every record.
func (t *Table) Clear() {
	t.cells = map[string]*cell{}
}

// Entry is one exported cell record.
type Entry struct {
	ID    string  `json:"id"`
	Expr  string  `json:"expr"`
	Value float64 `json:"value"`
}

// Dump exports all [id, expr] pairs, placeholders included, sorted by id.
func (t *Table) Dump() [][2]string {
	out := make([][2]string, 0, len(t.cells))
	for id, c := range t.cells {
		out = append(out, [2]string{id, c.expr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// DumpValues exports all records with their current values, sorted by id.
func (t *Table) DumpValues() []Entry {
	out := make([]Entry, 0, len(t.cells))
	for id, c := range t.cells {
		out = append(out, Entry{ID: id, Expr: c.expr, Value: c.value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of records, placeholders included.
func (t *Table) Len() int {
	return len(t.cells)
}
