package engine

import (
	"gridsheet/internal/formula"
	"gridsheet/internal/refs"
)

// getOrCreate returns the record for id, creating a placeholder if none
// exists yet. Placeholders are how a formula can reference a cell that
// was never assigned anything: the record carries only dependents edges.
func (t *Table) getOrCreate(id string) *cell {
	if c, ok := t.cells[id]; ok {
		return c
	}
	c := newCell(id)
	t.cells[id] = c
	return c
}

// assign installs ast (and its raw text) on the target cell, rewriting
// dependents edges: every edge implied by the old formula is retracted,
// every edge implied by the new one is added. Referenced cells that do
// not exist yet are created as placeholders.
//
// A formula that references its own cell is rejected before any
// mutation. Cycles through other cells are not detected here; they
// surface during propagation, and Evaluate owns the rollback.
func (t *Table) assign(id string, base refs.Ref, ast formula.Node, expr string) error {
	newRefs := formula.Refs(ast, base)
	if _, ok := newRefs[id]; ok {
		return circularErr(id)
	}

	t.retract(id, base)

	for rid := range newRefs {
		t.getOrCreate(rid).dependents[id] = struct{}{}
	}

	target := t.getOrCreate(id)
	target.ast = ast
	target.expr = expr
	return nil
}

// retract removes every dependents edge implied by id's current formula.
func (t *Table) retract(id string, base refs.Ref) {
	c, ok := t.cells[id]
	if !ok || c.ast == nil {
		return
	}
	for rid := range formula.Refs(c.ast, base) {
		if ref, ok := t.cells[rid]; ok {
			delete(ref.dependents, id)
		}
	}
}
