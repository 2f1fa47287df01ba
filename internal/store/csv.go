package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gridsheet/internal/engine"
	"gridsheet/internal/refs"
)

// ExportCSV writes the computed values as a rectangular CSV grid sized
// to the occupied cells. Placeholder cells come out as empty fields.
func ExportCSV(w io.Writer, entries []engine.Entry) error {
	maxR, maxC := -1, -1
	type pos struct{ r, c int }
	vals := map[pos]string{}
	for _, e := range entries {
		ref, err := refs.Parse(e.ID)
		if err != nil {
			return fmt.Errorf("export: bad cell id %q: %w", e.ID, err)
		}
		if ref.Row > maxR {
			maxR = ref.Row
		}
		if ref.Col > maxC {
			maxC = ref.Col
		}
		if e.Expr != "" {
			vals[pos{ref.Row, ref.Col}] = strconv.FormatFloat(e.Value, 'f', -1, 64)
		}
	}
	if maxR < 0 {
		return nil
	}

	out := make([][]string, maxR+1)
	for r := 0; r <= maxR; r++ {
		row := make([]string, maxC+1)
		for c := 0; c <= maxC; c++ {
			row[c] = vals[pos{r, c}]
		}
		out[r] = row
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(out); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
