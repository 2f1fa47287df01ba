package refs

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref is an absolute cell position, 0-based row and column.
type Ref struct {
	Row int
	Col int
}

// Parse parses a cell identifier like "a1" or "AB10" into a Ref.
// Identifiers are case-insensitive; the canonical form is lower case.
func Parse(id string) (Ref, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return Ref{}, fmt.Errorf("empty cell id")
	}
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return Ref{}, fmt.Errorf("malformed cell id %q", id)
	}
	col := 0
	for j := 0; j < i; j++ {
		c := s[j]
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		col = col*26 + int(c-'A') + 1
	}
	row, err := strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return Ref{}, fmt.Errorf("malformed cell id %q", id)
	}
	return Ref{Row: row - 1, Col: col - 1}, nil
}

// String renders the canonical lower-case identifier, e.g. {0,0} -> "a1".
func (r Ref) String() string {
	return ColName(r.Col) + strconv.Itoa(r.Row+1)
}

// ColName converts a 0-based column index to letters: 0 -> a, 25 -> z, 26 -> aa.
func ColName(col int) string {
	if col < 0 {
		return "?"
	}
	letters := ""
	n := col + 1
	for n > 0 {
		n--
		letters = string(rune('a'+n%26)) + letters
		n /= 26
	}
	return letters
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
