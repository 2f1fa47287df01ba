package store

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridsheet/internal/engine"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cells.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutLoadRoundTrip(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("main", "a1", "+(b1,2)"))
	require.NoError(t, s.Put("main", "b1", "3"))
	require.NoError(t, s.Put("other", "a1", "99"))

	got, err := s.Load("main")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "+(b1,2)", "b1": "3"}, got)
}

func TestPutReplaces(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("main", "a1", "1"))
	require.NoError(t, s.Put("main", "a1", "2"))

	got, err := s.Load("main")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "2"}, got)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("main", "a1", "1"))
	require.NoError(t, s.Delete("main", "a1"))
	require.NoError(t, s.Delete("main", "never-there"))

	got, err := s.Load("main")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClearIsPerSheet(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("main", "a1", "1"))
	require.NoError(t, s.Put("other", "a1", "2"))
	require.NoError(t, s.Clear("main"))

	got, err := s.Load("main")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Load("other")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSheets(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Put("b", "a1", "1"))
	require.NoError(t, s.Put("a", "a1", "1"))

	names, err := s.Sheets()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestReplay(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("main", "b1", "3"))
	require.NoError(t, s.Put("main", "a1", "+(b1,2)"))

	table := engine.New()
	require.NoError(t, s.Replay(table, "main", slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, v, ok := table.Query("a1")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
}

func TestReplaySkipsRejectedFormulas(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("main", "a1", "+(a1,1)"))
	require.NoError(t, s.Put("main", "b1", "3"))

	table := engine.New()
	require.NoError(t, s.Replay(table, "main", slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, v, ok := table.Query("b1")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	expr, _, _ := table.Query("a1")
	assert.Empty(t, expr, "rejected formula must not land in the table")
}

func TestExportCSV(t *testing.T) {
	entries := []engine.Entry{
		{ID: "a1", Expr: "3", Value: 3},
		{ID: "b2", Expr: "+(a1,0.5)", Value: 3.5},
		{ID: "c1", Expr: "", Value: 0}, // placeholder stays blank
	}
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, entries))
	assert.Equal(t, "3,,\n,3.5,\n", buf.String())
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, nil))
	assert.Empty(t, buf.String())
}
