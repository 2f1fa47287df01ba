package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"gridsheet/internal/config"
	"gridsheet/internal/engine"
	"gridsheet/internal/refs"
	"gridsheet/internal/store"
)

type App struct {
	// layout
	LeftGutter  int
	StatusLines int
	ColWidth    int
	CellPadding int

	// grid extent; grows as the cursor moves
	Cols int
	Rows int

	// engine + persistence
	Table *engine.Table
	Store *store.Store
	Sheet string
	Log   *slog.Logger

	// cursor / view
	CurRow  int
	CurCol  int
	ViewRow int
	ViewCol int

	// UI state
	Mode        string // normal | insert
	InputBuf    string
	Status      string
	CopiedFrom  string // source cell id marked for paste
	HelpVisible bool
	Quit        bool
}

func New(table *engine.Table, st *store.Store, sheet string, ui config.UIConfig, log *slog.Logger) *App {
	return &App{
		LeftGutter:  5,
		StatusLines: 2,
		ColWidth:    ui.ColWidth,
		CellPadding: 1,
		Cols:        ui.Cols,
		Rows:        ui.Rows,
		Table:       table,
		Store:       st,
		Sheet:       sheet,
		Log:         log,
		Mode:        "normal",
	}
}

// cursorID is the cell identifier under the cursor.
func (a *App) cursorID() string {
	return refs.Ref{Row: a.CurRow, Col: a.CurCol}.String()
}

// ----------------------------- Events / Input -----------------------------

func (a *App) HandleKeyEvent(s tcell.Screen, ev *tcell.EventKey) {
	if a.Mode == "insert" {
		switch ev.Key() {
		case tcell.KeyEsc:
			a.Mode = "normal"
			a.InputBuf = ""
			a.Status = ""
		case tcell.KeyEnter:
			a.commitEdit()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(a.InputBuf) > 0 {
				a.InputBuf = a.InputBuf[:len(a.InputBuf)-1]
			}
		default:
			if r := ev.Rune(); r != 0 {
				a.InputBuf += string(r)
			}
		}
		return
	}

	if a.HelpVisible {
		if ev.Key() == tcell.KeyEsc || ev.Rune() == '?' {
			a.HelpVisible = false
		}
		return
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		a.Quit = true
	case tcell.KeyUp:
		if a.CurRow > 0 {
			a.CurRow--
		}
	case tcell.KeyDown:
		a.moveDown()
	case tcell.KeyLeft:
		if a.CurCol > 0 {
			a.CurCol--
		}
	case tcell.KeyRight:
		a.moveRight()
	case tcell.KeyPgUp:
		vr, _ := a.visibleCells(s)
		a.CurRow -= vr
		if a.CurRow < 0 {
			a.CurRow = 0
		}
	case tcell.KeyPgDn:
		vr, _ := a.visibleCells(s)
		a.CurRow += vr
		if a.CurRow >= a.Rows {
			a.Rows = a.CurRow + 1
		}
	case tcell.KeyHome:
		a.CurRow = 0
		a.CurCol = 0
	case tcell.KeyEnter:
		a.startEdit()
	case tcell.KeyDelete:
		a.removeCell()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			a.Quit = true
		case 'h':
			if a.CurCol > 0 {
				a.CurCol--
			}
		case 'j':
			a.moveDown()
		case 'k':
			if a.CurRow > 0 {
				a.CurRow--
			}
		case 'l':
			a.moveRight()
		case 'i':
			a.startEdit()
		case 'x':
			a.removeCell()
		case 'c':
			a.CopiedFrom = a.cursorID()
			a.Status = "copied " + a.CopiedFrom
		case 'v':
			a.pasteCell()
		case 'w':
			a.exportCSV()
		case '?':
			a.HelpVisible = true
		}
	}
}

func (a *App) moveDown() {
	a.CurRow++
	if a.CurRow >= a.Rows {
		a.Rows = a.CurRow + 1
	}
}

func (a *App) moveRight() {
	a.CurCol++
	if a.CurCol >= a.Cols {
		a.Cols = a.CurCol + 1
	}
}

func (a *App) startEdit() {
	expr, _, _ := a.Table.Query(a.cursorID())
	a.Mode = "insert"
	a.InputBuf = expr
	a.Status = ""
}

// commitEdit feeds the buffer through the engine. A rejected edit keeps
// the table untouched (the engine rolls back), shows the error and
// leaves the buffer in place for correction.
func (a *App) commitEdit() {
	id := a.cursorID()
	if a.InputBuf == "" {
		a.Mode = "normal"
		a.removeCell()
		return
	}
	if _, err := a.Table.Evaluate(id, a.InputBuf); err != nil {
		a.Status = err.Error()
		return
	}
	if err := a.Store.Put(a.Sheet, id, a.InputBuf); err != nil {
		a.Log.Error("persist failed", "cell", id, "err", err)
		a.Status = "saved in memory only: " + err.Error()
	} else {
		a.Status = ""
	}
	a.Mode = "normal"
	a.InputBuf = ""
	a.moveDown()
}

func (a *App) removeCell() {
	id := a.cursorID()
	if _, err := a.Table.Remove(id); err != nil {
		a.Status = err.Error()
		return
	}
	if err := a.Store.Delete(a.Sheet, id); err != nil {
		a.Log.Error("persist failed", "cell", id, "err", err)
	}
	a.Status = ""
}

func (a *App) pasteCell() {
	if a.CopiedFrom == "" {
		a.Status = "nothing copied"
		return
	}
	dst := a.cursorID()
	if _, err := a.Table.Copy(a.CopiedFrom, dst); err != nil {
		a.Status = err.Error()
		return
	}
	if expr, _, ok := a.Table.Query(dst); ok && expr != "" {
		if err := a.Store.Put(a.Sheet, dst, expr); err != nil {
			a.Log.Error("persist failed", "cell", dst, "err", err)
		}
	} else if err := a.Store.Delete(a.Sheet, dst); err != nil {
		a.Log.Error("persist failed", "cell", dst, "err", err)
	}
	a.Status = fmt.Sprintf("pasted %s -> %s", a.CopiedFrom, dst)
}

func (a *App) exportCSV() {
	name := a.Sheet + ".csv"
	f, err := os.Create(name)
	if err != nil {
		a.Status = "export: " + err.Error()
		return
	}
	defer f.Close()
	if err := store.ExportCSV(f, a.Table.DumpValues()); err != nil {
		a.Status = "export: " + err.Error()
		return
	}
	a.Status = "wrote " + name
}

// Replay loads the stored formulas for the sheet into the engine.
func (a *App) Replay() error {
	return a.Store.Replay(a.Table, a.Sheet, a.Log)
}

// ----------------------------- Drawing -----------------------------

// visibleCells reports how many rows and columns fit on screen.
func (a *App) visibleCells(s tcell.Screen) (rows, cols int) {
	w, h := s.Size()
	rows = h - 1 - a.StatusLines
	if rows < 1 {
		rows = 1
	}
	cols = (w - a.LeftGutter) / a.ColWidth
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

func (a *App) EnsureCursorVisible(s tcell.Screen) {
	vr, vc := a.visibleCells(s)
	if a.CurRow < a.ViewRow {
		a.ViewRow = a.CurRow
	}
	if a.CurRow >= a.ViewRow+vr {
		a.ViewRow = a.CurRow - vr + 1
	}
	if a.CurCol < a.ViewCol {
		a.ViewCol = a.CurCol
	}
	if a.CurCol >= a.ViewCol+vc {
		a.ViewCol = a.CurCol - vc + 1
	}
}

// displayText is what the grid shows for a cell: its computed value, or
// nothing for empty cells and placeholders.
func (a *App) displayText(r, c int) string {
	expr, v, ok := a.Table.Query(refs.Ref{Row: r, Col: c}.String())
	if !ok || expr == "" {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (a *App) Draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()

	// header row: column names
	x := a.LeftGutter
	for c := a.ViewCol; c < a.Cols; c++ {
		name := strings.ToUpper(refs.ColName(c))
		hdrStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if c == a.CurCol {
			hdrStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
			for dx := 0; dx < a.ColWidth && x+dx < w; dx++ {
				s.SetContent(x+dx, 0, ' ', nil, hdrStyle)
			}
		}
		a.printTextFixedWidth(s, x+a.CellPadding, 0, name, hdrStyle, a.ColWidth-2*a.CellPadding)
		x += a.ColWidth
		if x >= w {
			break
		}
	}

	// rows
	y := 1
	for r := a.ViewRow; r < a.Rows; r++ {
		if y >= h-a.StatusLines {
			break
		}
		gutterStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if r == a.CurRow {
			gutterStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
			for gx := 0; gx < a.LeftGutter-1 && gx < w; gx++ {
				s.SetContent(gx, y, ' ', nil, gutterStyle)
			}
		}
		a.printTextFixedWidth(s, 0, y, strconv.Itoa(r+1), gutterStyle, a.LeftGutter-1)

		x = a.LeftGutter
		for c := a.ViewCol; c < a.Cols; c++ {
			text := a.displayText(r, c)
			if a.Mode == "insert" && r == a.CurRow && c == a.CurCol {
				text = a.InputBuf
			}

			style := tcell.StyleDefault
			if r == a.CurRow && c == a.CurCol {
				style = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray)
			}
			for dx := 0; dx < a.ColWidth && x+dx < w; dx++ {
				s.SetContent(x+dx, y, ' ', nil, style)
			}
			a.printTextFixedWidth(s, x+a.CellPadding, y, text, style, a.ColWidth-2*a.CellPadding)

			x += a.ColWidth
			if x >= w {
				break
			}
		}
		y++
	}

	a.drawStatus(s, w, h)

	if a.HelpVisible {
		a.drawHelpPopup(s)
	}

	s.Show()
}

func (a *App) drawStatus(s tcell.Screen, w, h int) {
	statusY := h - a.StatusLines
	if statusY < 0 {
		statusY = 0
	}
	statusStyle := tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite)

	id := a.cursorID()
	expr, _, _ := a.Table.Query(id)
	a.printTextFixedWidth(s, 0, statusY, fmt.Sprintf(" %s  %s", id, expr), statusStyle, w)

	second := " " + a.Mode
	if a.Mode == "insert" {
		second = " EDIT: " + a.InputBuf
	}
	style := statusStyle
	if a.Status != "" {
		second += "  |  " + a.Status
		style = statusStyle.Foreground(tcell.ColorRed)
	}
	a.printTextFixedWidth(s, 0, statusY+1, second, style, w)
}

func (a *App) printTextFixedWidth(s tcell.Screen, x, y int, str string, style tcell.Style, width int) {
	runes := []rune(str)
	for i := 0; i < width; i++ {
		ch := ' '
		if i < len(runes) {
			ch = runes[i]
		}
		if x+i >= 0 && y >= 0 {
			s.SetContent(x+i, y, ch, nil, style)
		}
	}
}

func (a *App) drawHelpPopup(s tcell.Screen) {
	lines := []string{
		"arrows/hjkl  move",
		"Enter / i    edit formula",
		"x / Delete   clear cell",
		"c then v     copy / paste (refs shift)",
		"w            export values to CSV",
		"?            toggle this help",
		"q / Ctrl+C   quit",
		"",
		"formulas: 3, b2, +(b1,2), -(a1),",
		"  *(a1,b1), /(a1,2), min(a1,b1), max(a1,b1)",
		"absolute refs: $b$2 (survive copy)",
	}
	w, h := s.Size()
	innerW := 0
	for _, ln := range lines {
		if len(ln) > innerW {
			innerW = len(ln)
		}
	}
	pw := innerW + 4
	ph := len(lines) + 2
	if pw > w || ph > h {
		return
	}
	left := (w - pw) / 2
	top := (h - ph) / 2

	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDefault)
	for yy := 0; yy < ph; yy++ {
		for xx := 0; xx < pw; xx++ {
			s.SetContent(left+xx, top+yy, ' ', nil, style)
		}
	}
	s.SetContent(left, top, '┌', nil, style)
	s.SetContent(left+pw-1, top, '┐', nil, style)
	s.SetContent(left, top+ph-1, '└', nil, style)
	s.SetContent(left+pw-1, top+ph-1, '┘', nil, style)
	for xx := 1; xx < pw-1; xx++ {
		s.SetContent(left+xx, top, '─', nil, style)
		s.SetContent(left+xx, top+ph-1, '─', nil, style)
	}
	for yy := 1; yy < ph-1; yy++ {
		s.SetContent(left, top+yy, '│', nil, style)
		s.SetContent(left+pw-1, top+yy, '│', nil, style)
	}
	for i, ln := range lines {
		a.printTextFixedWidth(s, left+2, top+1+i, ln, style, innerW)
	}
}
