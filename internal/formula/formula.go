// Package formula parses the prefix formula syntax into an AST.
//
// Grammar:
//
//	expr := number | ref | fn '(' expr (',' expr)* ')'
//	fn   := '+' | '-' | '*' | '/' | identifier
//
// Cell references are stored relative to the base cell the formula was
// parsed against, unless marked absolute with '$' ("$b$2", "b$2", "$b2").
// Relative storage makes copy translation pure arithmetic on the AST.
package formula

import (
	"fmt"
	"strconv"
	"strings"

	"gridsheet/internal/refs"
)

// Node is a parsed formula tree node.
type Node interface {
	isNode()
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

// CellRef is a reference to another cell. Relative axes hold an offset
// from the base cell; absolute axes hold the absolute coordinate.
type CellRef struct {
	RowOff int
	ColOff int
	RowAbs bool
	ColAbs bool
	Row    int // valid when RowAbs
	Col    int // valid when ColAbs
}

// Apply is a function application: Fn applied to Args in order.
type Apply struct {
	Fn   string
	Args []Node
}

func (Number) isNode()  {}
func (CellRef) isNode() {}
func (Apply) isNode()   {}

// Resolve returns the absolute position of a reference against base.
func (c CellRef) Resolve(base refs.Ref) refs.Ref {
	r := refs.Ref{Row: base.Row + c.RowOff, Col: base.Col + c.ColOff}
	if c.RowAbs {
		r.Row = c.Row
	}
	if c.ColAbs {
		r.Col = c.Col
	}
	return r
}

// Parse parses expr in the context of base. The base cell is needed so
// relative references can be stored as offsets.
func Parse(expr string, base refs.Ref) (Node, error) {
	p := &parser{input: expr, base: base}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}
	return n, nil
}

// Refs collects the set of absolute cell ids referenced by node,
// resolved against base. Literals contribute nothing.
func Refs(node Node, base refs.Ref) map[string]struct{} {
	out := map[string]struct{}{}
	collectRefs(node, base, out)
	return out
}

func collectRefs(node Node, base refs.Ref, out map[string]struct{}) {
	switch n := node.(type) {
	case Number:
	case CellRef:
		out[n.Resolve(base).String()] = struct{}{}
	case Apply:
		for _, arg := range n.Args {
			collectRefs(arg, base, out)
		}
	}
}

// Render reproduces formula text for node against base. Rendering a parsed
// node against a different base shifts every relative reference by the
// base offset, which is exactly the copy-paste adjustment.
func Render(node Node, base refs.Ref) string {
	var b strings.Builder
	renderNode(node, base, &b)
	return b.String()
}

func renderNode(node Node, base refs.Ref, b *strings.Builder) {
	switch n := node.(type) {
	case Number:
		b.WriteString(strconv.FormatFloat(n.Value, 'f', -1, 64))
	case CellRef:
		abs := n.Resolve(base)
		if n.ColAbs {
			b.WriteByte('$')
		}
		b.WriteString(refs.ColName(abs.Col))
		if n.RowAbs {
			b.WriteByte('$')
		}
		b.WriteString(strconv.Itoa(abs.Row + 1))
	case Apply:
		b.WriteString(n.Fn)
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			renderNode(arg, base, b)
		}
		b.WriteByte(')')
	}
}

// Translate re-renders expr from one base cell to another, shifting
// relative references by the row/column offset between them.
func Translate(expr string, from, to refs.Ref) (string, error) {
	node, err := Parse(expr, from)
	if err != nil {
		return "", err
	}
	return Render(node, to), nil
}

type parser struct {
	input string
	pos   int
	base  refs.Ref
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) parseExpr() (Node, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	ch := p.input[p.pos]

	// operator-named function: +(a,b), -(a), *(a,b), /(a,b)
	if ch == '+' || ch == '-' || ch == '*' || ch == '/' {
		// a sign directly followed by a digit is a signed number literal
		if (ch == '+' || ch == '-') && p.pos+1 < len(p.input) && (isDigit(p.input[p.pos+1]) || p.input[p.pos+1] == '.') {
			return p.parseNumber()
		}
		p.pos++
		return p.parseCall(string(ch))
	}

	if isDigit(ch) || ch == '.' {
		return p.parseNumber()
	}

	if isLetter(ch) || ch == '$' {
		return p.parseIdentOrRef()
	}

	return nil, fmt.Errorf("unexpected character %q at offset %d", ch, p.pos)
}

func (p *parser) parseCall(fn string) (Node, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return nil, fmt.Errorf("expected '(' after %q", fn)
	}
	p.pos++
	var args []Node
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == ')' {
		return nil, fmt.Errorf("function %q needs at least one argument", fn)
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated call to %q", fn)
		}
		if p.input[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.input[p.pos] == ')' {
			p.pos++
			return Apply{Fn: fn, Args: args}, nil
		}
		return nil, fmt.Errorf("unexpected character %q at offset %d", p.input[p.pos], p.pos)
	}
}

func (p *parser) parseNumber() (Node, error) {
	start := p.pos
	j := p.pos
	if j < len(p.input) && (p.input[j] == '+' || p.input[j] == '-') {
		j++
	}
	seenDot := false
	seenE := false
	for j < len(p.input) {
		c := p.input[j]
		if c >= '0' && c <= '9' {
			j++
			continue
		}
		if c == '.' && !seenDot && !seenE {
			seenDot = true
			j++
			continue
		}
		if (c == 'e' || c == 'E') && !seenE && j > start {
			seenE = true
			j++
			if j < len(p.input) && (p.input[j] == '+' || p.input[j] == '-') {
				j++
			}
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:j], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number at offset %d", start)
	}
	p.pos = j
	return Number{Value: v}, nil
}

// parseIdentOrRef handles both cell references ("b2", "$b$2") and named
// function calls ("min(...)"). Letters followed by '(' is a call; letters
// followed by digits is a reference.
func (p *parser) parseIdentOrRef() (Node, error) {
	start := p.pos
	colAbs := false
	if p.input[p.pos] == '$' {
		colAbs = true
		p.pos++
	}
	j := p.pos
	for j < len(p.input) && isLetter(p.input[j]) {
		j++
	}
	if j == p.pos {
		return nil, fmt.Errorf("malformed reference at offset %d", start)
	}
	letters := p.input[p.pos:j]
	p.pos = j

	if !colAbs {
		save := p.pos
		p.skipSpaces()
		if p.pos < len(p.input) && p.input[p.pos] == '(' {
			return p.parseCall(strings.ToLower(letters))
		}
		p.pos = save
	}

	rowAbs := false
	if p.pos < len(p.input) && p.input[p.pos] == '$' {
		rowAbs = true
		p.pos++
	}
	ds := p.pos
	for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == ds {
		return nil, fmt.Errorf("malformed reference at offset %d", start)
	}
	row, err := strconv.Atoi(p.input[ds:p.pos])
	if err != nil || row < 1 {
		return nil, fmt.Errorf("malformed reference at offset %d", start)
	}

	col := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		col = col*26 + int(c-'A') + 1
	}
	col--

	ref := CellRef{RowAbs: rowAbs, ColAbs: colAbs}
	if rowAbs {
		ref.Row = row - 1
	} else {
		ref.RowOff = row - 1 - p.base.Row
	}
	if colAbs {
		ref.Col = col
	} else {
		ref.ColOff = col - p.base.Col
	}
	return ref, nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
