// Package console is the pure ANSI-interpreting screen grid (spec.md
// §4.9): cursor motion, scrollback-by-one-line, and the SGR/erase/
// cursor-position subset of CSI sequences. Kept free of any
// internal/cpu dependency so its escape-sequence parser is
// hosted-testable; internal/tty wraps it and owns the video-memory
// blit.
package console

const (
	Cols = 80
	Rows = 25

	defaultAttr = 0x07 // light grey on black, matching VGA text mode's default
)

// Cell is one character position: the glyph and its VGA text-mode
// attribute byte (background<<4 | foreground).
type Cell struct {
	Ch   byte
	Attr byte
}

// parserState is the ANSI escape-sequence parser's position.
type parserState int

const (
	stateNormal parserState = iota
	stateEscape
	stateCSI
)

// Console is one virtual terminal's screen buffer and ANSI state
// machine (spec.md §4.9 "ANSI-interpreting console renderer"),
// grounded on original_source/source/kernel/dev/console.c's cursor
// and SGR handling. Pure grid manipulation only — Blit is the
// separate hardware-touching step, so Console itself stays
// hosted-testable.
type Console struct {
	Grid        [Rows][Cols]Cell
	CursorRow   int
	CursorCol   int
	curAttr     byte
	state       parserState
	csiParams   []int
	csiHasParam bool
}

// NewConsole returns a console with a cleared grid and default attribute.
func NewConsole() *Console {
	c := &Console{curAttr: defaultAttr}
	c.clear()
	return c
}

func (c *Console) clear() {
	for r := 0; r < Rows; r++ {
		for col := 0; col < Cols; col++ {
			c.Grid[r][col] = Cell{Ch: ' ', Attr: c.curAttr}
		}
	}
	c.CursorRow, c.CursorCol = 0, 0
}

// Feed processes one output byte: either a literal character, a
// control character (\n, \r, \b), or a byte of an in-progress ANSI
// escape sequence.
func (c *Console) Feed(b byte) {
	switch c.state {
	case stateNormal:
		c.feedNormal(b)
	case stateEscape:
		if b == '[' {
			c.state = stateCSI
			c.csiParams = c.csiParams[:0]
			c.csiHasParam = false
		} else {
			c.state = stateNormal
		}
	case stateCSI:
		c.feedCSI(b)
	}
}

func (c *Console) feedNormal(b byte) {
	switch b {
	case 0x1b:
		c.state = stateEscape
	case '\n':
		c.newline()
	case '\r':
		c.CursorCol = 0
	case '\b':
		if c.CursorCol > 0 {
			c.CursorCol--
		}
	default:
		c.putChar(b)
	}
}

func (c *Console) putChar(b byte) {
	c.Grid[c.CursorRow][c.CursorCol] = Cell{Ch: b, Attr: c.curAttr}
	c.CursorCol++
	if c.CursorCol >= Cols {
		c.CursorCol = 0
		c.newline()
	}
}

func (c *Console) newline() {
	c.CursorCol = 0
	c.CursorRow++
	if c.CursorRow >= Rows {
		c.scrollUp()
		c.CursorRow = Rows - 1
	}
}

func (c *Console) scrollUp() {
	for r := 0; r < Rows-1; r++ {
		c.Grid[r] = c.Grid[r+1]
	}
	for col := 0; col < Cols; col++ {
		c.Grid[Rows-1][col] = Cell{Ch: ' ', Attr: c.curAttr}
	}
}

// feedCSI accumulates decimal parameters separated by ';' and
// dispatches on the terminating letter, supporting the subset spec.md
// names: cursor position (H), cursor up/down/forward/back (A/B/C/D),
// erase in display (J), and SGR color selection (m).
func (c *Console) feedCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if !c.csiHasParam {
			c.csiParams = append(c.csiParams, 0)
			c.csiHasParam = true
		}
		last := len(c.csiParams) - 1
		c.csiParams[last] = c.csiParams[last]*10 + int(b-'0')
		return
	case b == ';':
		if !c.csiHasParam {
			c.csiParams = append(c.csiParams, 0)
		}
		c.csiHasParam = false
		return
	}
	c.dispatchCSI(b)
	c.state = stateNormal
}

func (c *Console) param(i, def int) int {
	if i >= len(c.csiParams) || c.csiParams[i] == 0 {
		return def
	}
	return c.csiParams[i]
}

func (c *Console) dispatchCSI(final byte) {
	switch final {
	case 'H', 'f':
		row := c.param(0, 1) - 1
		col := c.param(1, 1) - 1
		c.CursorRow = clamp(row, 0, Rows-1)
		c.CursorCol = clamp(col, 0, Cols-1)
	case 'A':
		c.CursorRow = clamp(c.CursorRow-c.param(0, 1), 0, Rows-1)
	case 'B':
		c.CursorRow = clamp(c.CursorRow+c.param(0, 1), 0, Rows-1)
	case 'C':
		c.CursorCol = clamp(c.CursorCol+c.param(0, 1), 0, Cols-1)
	case 'D':
		c.CursorCol = clamp(c.CursorCol-c.param(0, 1), 0, Cols-1)
	case 'J':
		if c.param(0, 0) == 2 {
			c.clear()
		}
	case 'm':
		c.applySGR()
	}
}

func (c *Console) applySGR() {
	if len(c.csiParams) == 0 {
		c.curAttr = defaultAttr
		return
	}
	for _, p := range c.csiParams {
		switch {
		case p == 0:
			c.curAttr = defaultAttr
		case p >= 30 && p <= 37:
			c.curAttr = (c.curAttr & 0xF0) | byte(p-30)
		case p >= 40 && p <= 47:
			c.curAttr = (c.curAttr & 0x0F) | byte(p-40)<<4
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
