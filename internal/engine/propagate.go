package engine

import "gridsheet/internal/refs"

// propagate recomputes every cell that transitively depends on origin
// and returns their new values.
//
// A depth-first walk over dependents edges collects the affected cells
// in post-order; reversing that gives an order in which every affected
// cell is recomputed after the affected cells it reads from, so a
// diamond-shaped graph converges in a single pass. The walk keeps two
// marks: visited, for at-most-once processing across converging paths,
// and onPath, for the active recursion branch. An edge back into the
// active branch is a cycle and fails the whole edit.
func (t *Table) propagate(origin string) (map[string]float64, error) {
	visited := map[string]struct{}{}
	onPath := map[string]struct{}{}
	var order []string

	var walk func(id string) error
	walk = func(id string) error {
		visited[id] = struct{}{}
		onPath[id] = struct{}{}
		c, ok := t.cells[id]
		if ok {
			for did := range c.dependents {
				if _, cyc := onPath[did]; cyc {
					return circularErr(did)
				}
				if _, seen := visited[did]; seen {
					continue
				}
				if err := walk(did); err != nil {
					return err
				}
			}
		}
		delete(onPath, id)
		if id != origin {
			order = append(order, id)
		}
		return nil
	}
	if err := walk(origin); err != nil {
		return nil, err
	}

	updates := map[string]float64{}
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		c := t.cells[id]
		if c == nil || c.ast == nil {
			continue
		}
		base, err := refs.Parse(id)
		if err != nil {
			return nil, err
		}
		v, err := t.eval(c.ast, base)
		if err != nil {
			return nil, err
		}
		c.value = v
		updates[id] = v
	}
	return updates, nil
}
