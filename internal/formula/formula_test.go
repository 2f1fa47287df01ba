package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridsheet/internal/refs"
)

func base(t *testing.T, id string) refs.Ref {
	t.Helper()
	r, err := refs.Parse(id)
	require.NoError(t, err)
	return r
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"3", 3},
		{"3.5", 3.5},
		{".5", 0.5},
		{"-2", -2},
		{"+2", 2},
		{"1e3", 1000},
		{"2.5e-1", 0.25},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		node, err := Parse(tt.expr, refs.Ref{})
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, Number{Value: tt.want}, node, "expr %q", tt.expr)
	}
}

func TestParseRelativeRef(t *testing.T) {
	node, err := Parse("b3", base(t, "a1"))
	require.NoError(t, err)
	ref, ok := node.(CellRef)
	require.True(t, ok)
	assert.Equal(t, CellRef{RowOff: 2, ColOff: 1}, ref)
	assert.Equal(t, "b3", ref.Resolve(base(t, "a1")).String())
	// same offsets against a shifted base
	assert.Equal(t, "c5", ref.Resolve(base(t, "b3")).String())
}

func TestParseAbsoluteRef(t *testing.T) {
	node, err := Parse("$b$3", base(t, "z9"))
	require.NoError(t, err)
	ref, ok := node.(CellRef)
	require.True(t, ok)
	assert.True(t, ref.RowAbs)
	assert.True(t, ref.ColAbs)
	assert.Equal(t, "b3", ref.Resolve(base(t, "a1")).String())
	assert.Equal(t, "b3", ref.Resolve(base(t, "q40")).String())
}

func TestParseMixedRef(t *testing.T) {
	node, err := Parse("b$3", base(t, "a1"))
	require.NoError(t, err)
	ref := node.(CellRef)
	assert.False(t, ref.ColAbs)
	assert.True(t, ref.RowAbs)
	// column shifts with the base, row stays pinned
	assert.Equal(t, "c3", ref.Resolve(base(t, "b9")).String())
}

func TestParseApply(t *testing.T) {
	node, err := Parse("+(b1,2)", base(t, "a1"))
	require.NoError(t, err)
	app, ok := node.(Apply)
	require.True(t, ok)
	assert.Equal(t, "+", app.Fn)
	require.Len(t, app.Args, 2)
	assert.Equal(t, CellRef{ColOff: 1}, app.Args[0])
	assert.Equal(t, Number{Value: 2}, app.Args[1])
}

func TestParseNestedApply(t *testing.T) {
	node, err := Parse("max(-(b2),min(1,c3))", base(t, "a1"))
	require.NoError(t, err)
	app := node.(Apply)
	assert.Equal(t, "max", app.Fn)
	require.Len(t, app.Args, 2)
	neg := app.Args[0].(Apply)
	assert.Equal(t, "-", neg.Fn)
	require.Len(t, neg.Args, 1)
	inner := app.Args[1].(Apply)
	assert.Equal(t, "min", inner.Fn)
}

func TestParseFunctionNameCase(t *testing.T) {
	node, err := Parse("MIN(1,2)", base(t, "a1"))
	require.NoError(t, err)
	assert.Equal(t, "min", node.(Apply).Fn)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, expr := range []string{
		"", "+", "+(", "+(1", "+(1,", "+(1,2", "+()", "min()", "min(1,2))",
		"1 2", "a", "a0", "(1)", "foo", "1..2", "$min(1,2)",
	} {
		_, err := Parse(expr, refs.Ref{})
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestRefs(t *testing.T) {
	node, err := Parse("+(b1,max($c$2,-(d4)))", base(t, "a1"))
	require.NoError(t, err)
	got := Refs(node, base(t, "a1"))
	assert.Equal(t, map[string]struct{}{"b1": {}, "c2": {}, "d4": {}}, got)
}

func TestRefsLiteralOnly(t *testing.T) {
	node, err := Parse("+(1,2)", refs.Ref{})
	require.NoError(t, err)
	assert.Empty(t, Refs(node, refs.Ref{}))
}

func TestRenderRoundTrip(t *testing.T) {
	for _, expr := range []string{"3", "3.5", "b2", "$b$2", "b$2", "$b2", "+(b1,2)", "max(-(b2),min(1,c3))"} {
		node, err := Parse(expr, base(t, "a1"))
		require.NoError(t, err, "expr %q", expr)
		assert.Equal(t, expr, Render(node, base(t, "a1")), "expr %q", expr)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		expr, from, to, want string
	}{
		{"+(a1,1)", "b1", "b2", "+(a2,1)"},
		{"+(a1,1)", "b1", "c1", "+(b1,1)"},
		{"+($a$1,1)", "b1", "e9", "+($a$1,1)"},
		{"+(a$1,b2)", "c3", "d4", "+(b$1,c3)"},
		{"7", "a1", "z9", "7"},
	}
	for _, tt := range tests {
		got, err := Translate(tt.expr, base(t, tt.from), base(t, tt.to))
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q %s->%s", tt.expr, tt.from, tt.to)
	}
}

func TestTranslateRejectsBadExpr(t *testing.T) {
	_, err := Translate("+(1,", base(t, "a1"), base(t, "a2"))
	assert.Error(t, err)
}
