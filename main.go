package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"gridsheet/internal/app"
	"gridsheet/internal/config"
	"gridsheet/internal/engine"
	"gridsheet/internal/refs"
	"gridsheet/internal/server"
	"gridsheet/internal/store"
)

var (
	cfgPath string
	dbPath  string
	sheet   string
	listen  string
)

func main() {
	root := &cobra.Command{
		Use:          "gridsheet",
		Short:        "terminal spreadsheet with dependency-tracked formulas",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/gridsheet/config.toml)")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite file holding stored formulas")
	root.PersistentFlags().StringVar(&sheet, "sheet", "", "sheet name to open")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the sheet over a websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :8080)")

	evalCmd := &cobra.Command{
		Use:   "eval CELL EXPR",
		Short: "evaluate one formula against the stored sheet and print the updates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(args[0], args[1])
		},
	}

	var withValues bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "print the stored cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(withValues)
		},
	}
	dumpCmd.Flags().BoolVar(&withValues, "values", false, "include computed values")

	root.AddCommand(serveCmd, evalCmd, dumpCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config, applies flag overrides and opens the store.
func setup() (config.Config, *store.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if sheet != "" {
		cfg.Sheet = sheet
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return config.Config{}, nil, fmt.Errorf("create state dir: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, st, nil
}

func runTUI() error {
	cfg, st, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	// the screen belongs to tcell, so logs go to a file next to the db
	logOut := io.Writer(io.Discard)
	if f, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.DBPath), "gridsheet.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		defer f.Close()
		logOut = f
	}
	log := slog.New(slog.NewTextHandler(logOut, nil))

	table := engine.New()
	a := app.New(table, st, cfg.Sheet, cfg.UI, log)
	if err := a.Replay(); err != nil {
		return err
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("cannot create screen: %w", err)
	}
	if err := s.Init(); err != nil {
		return fmt.Errorf("cannot init screen: %w", err)
	}
	defer s.Fini()
	s.Clear()

	for !a.Quit {
		a.EnsureCursorVisible(s)
		a.Draw(s)
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			a.HandleKeyEvent(s, ev)
		case *tcell.EventResize:
			s.Sync()
		}
	}
	return nil
}

func runServe() error {
	cfg, st, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	table := engine.New()
	if err := st.Replay(table, cfg.Sheet, log); err != nil {
		return err
	}
	return server.New(table, st, cfg.Sheet, log).ListenAndServe(cfg.Listen)
}

func runEval(cell, expr string) error {
	cfg, st, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	table := engine.New()
	if err := st.Replay(table, cfg.Sheet, log); err != nil {
		return err
	}

	updates, err := table.Evaluate(cell, expr)
	if err != nil {
		return err
	}
	// persist under the canonical id so a later remove/eval of the
	// other case hits the same row
	ref, err := refs.Parse(cell)
	if err != nil {
		return err
	}
	if err := st.Put(cfg.Sheet, ref.String(), expr); err != nil {
		return err
	}

	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s = %s\n", id, strconv.FormatFloat(updates[id], 'f', -1, 64))
	}
	return nil
}

func runDump(withValues bool) error {
	cfg, st, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	table := engine.New()
	if err := st.Replay(table, cfg.Sheet, log); err != nil {
		return err
	}

	for _, e := range table.DumpValues() {
		if e.Expr == "" {
			continue
		}
		if withValues {
			fmt.Printf("%s\t%s\t%s\n", e.ID, e.Expr, strconv.FormatFloat(e.Value, 'f', -1, 64))
		} else {
			fmt.Printf("%s\t%s\n", e.ID, e.Expr)
		}
	}
	return nil
}
