package app

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridsheet/internal/config"
	"gridsheet/internal/engine"
	"gridsheet/internal/store"
)

func newTestApp(t *testing.T) (*App, tcell.SimulationScreen) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cells.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	a := New(engine.New(), st, "main", config.Default().UI, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(80, 24)
	t.Cleanup(s.Fini)
	return a, s
}

func typeString(a *App, s tcell.Screen, text string) {
	for _, r := range text {
		a.HandleKeyEvent(s, tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
}

func pressKey(a *App, s tcell.Screen, key tcell.Key) {
	a.HandleKeyEvent(s, tcell.NewEventKey(key, 0, tcell.ModNone))
}

func TestEditCommitsToEngineAndStore(t *testing.T) {
	a, s := newTestApp(t)

	pressKey(a, s, tcell.KeyEnter) // start editing a1
	require.Equal(t, "insert", a.Mode)
	typeString(a, s, "3")
	pressKey(a, s, tcell.KeyEnter)

	assert.Equal(t, "normal", a.Mode)
	assert.Equal(t, 1, a.CurRow, "commit moves the cursor down")

	_, v, ok := a.Table.Query("a1")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	stored, err := a.Store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "3"}, stored)
}

func TestRejectedEditKeepsBufferAndState(t *testing.T) {
	a, s := newTestApp(t)

	pressKey(a, s, tcell.KeyEnter)
	typeString(a, s, "+(a1,1)") // self reference
	pressKey(a, s, tcell.KeyEnter)

	assert.Equal(t, "insert", a.Mode, "failed edit stays in edit mode")
	assert.Equal(t, "+(a1,1)", a.InputBuf)
	assert.Contains(t, a.Status, "CIRCULAR_REF")
	assert.Equal(t, 0, a.Table.Len())

	stored, err := a.Store.Load("main")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEmptyCommitClearsCell(t *testing.T) {
	a, s := newTestApp(t)

	pressKey(a, s, tcell.KeyEnter)
	typeString(a, s, "7")
	pressKey(a, s, tcell.KeyEnter)
	a.CurRow = 0

	pressKey(a, s, tcell.KeyEnter) // edit starts with existing formula
	assert.Equal(t, "7", a.InputBuf)
	pressKey(a, s, tcell.KeyBackspace2)
	pressKey(a, s, tcell.KeyEnter)

	_, _, ok := a.Table.Query("a1")
	assert.False(t, ok)
}

func TestCopyPasteShiftsReferences(t *testing.T) {
	a, s := newTestApp(t)

	_, err := a.Table.Evaluate("a1", "10")
	require.NoError(t, err)
	_, err = a.Table.Evaluate("a2", "20")
	require.NoError(t, err)
	_, err = a.Table.Evaluate("b1", "+(a1,1)")
	require.NoError(t, err)

	// copy b1, paste at b2
	a.CurRow, a.CurCol = 0, 1
	typeString(a, s, "c")
	a.CurRow = 1
	typeString(a, s, "v")

	expr, v, ok := a.Table.Query("b2")
	require.True(t, ok)
	assert.Equal(t, "+(a2,1)", expr)
	assert.Equal(t, 21.0, v)

	stored, err := a.Store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, "+(a2,1)", stored["b2"])
}

func TestPasteWithoutCopy(t *testing.T) {
	a, s := newTestApp(t)
	typeString(a, s, "v")
	assert.Equal(t, "nothing copied", a.Status)
}

func TestReplayRestoresSheet(t *testing.T) {
	a, _ := newTestApp(t)

	require.NoError(t, a.Store.Put("main", "b1", "3"))
	require.NoError(t, a.Store.Put("main", "a1", "+(b1,2)"))

	require.NoError(t, a.Replay())

	_, v, ok := a.Table.Query("a1")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestDrawDoesNotPanic(t *testing.T) {
	a, s := newTestApp(t)
	_, err := a.Table.Evaluate("a1", "+(b1,2)")
	require.NoError(t, err)

	a.EnsureCursorVisible(s)
	a.Draw(s)
	a.HelpVisible = true
	a.Draw(s)
}

func TestCursorStaysInBounds(t *testing.T) {
	a, s := newTestApp(t)
	pressKey(a, s, tcell.KeyUp)
	pressKey(a, s, tcell.KeyLeft)
	assert.Equal(t, 0, a.CurRow)
	assert.Equal(t, 0, a.CurCol)

	start := a.Rows
	for i := 0; i < start+5; i++ {
		pressKey(a, s, tcell.KeyDown)
	}
	assert.Equal(t, start+5, a.CurRow)
	assert.GreaterOrEqual(t, a.Rows, a.CurRow+1)
}
