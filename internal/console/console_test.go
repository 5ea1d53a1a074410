package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedString(c *Console, s string) {
	for i := 0; i < len(s); i++ {
		c.Feed(s[i])
	}
}

func TestFeedPrintsCharacters(t *testing.T) {
	c := NewConsole()
	feedString(c, "hi")
	require.Equal(t, byte('h'), c.Grid[0][0].Ch)
	require.Equal(t, byte('i'), c.Grid[0][1].Ch)
	require.Equal(t, 0, c.CursorRow)
	require.Equal(t, 2, c.CursorCol)
}

func TestNewlineAdvancesRowAndResetsCol(t *testing.T) {
	c := NewConsole()
	feedString(c, "ab\ncd")
	require.Equal(t, 1, c.CursorRow)
	require.Equal(t, 2, c.CursorCol)
	require.Equal(t, byte('c'), c.Grid[1][0].Ch)
}

func TestLineWrapAtColumnBoundary(t *testing.T) {
	c := NewConsole()
	for i := 0; i < Cols; i++ {
		c.Feed('x')
	}
	c.Feed('y')
	require.Equal(t, 1, c.CursorRow)
	require.Equal(t, byte('y'), c.Grid[1][0].Ch)
}

func TestScrollOnOverflow(t *testing.T) {
	c := NewConsole()
	for r := 0; r < Rows; r++ {
		feedString(c, "z\n")
	}
	require.Equal(t, byte('z'), c.Grid[Rows-2][0].Ch)
	require.Equal(t, Rows-1, c.CursorRow)
}

func TestCSICursorPosition(t *testing.T) {
	c := NewConsole()
	feedString(c, "\x1b[5;10H")
	require.Equal(t, 4, c.CursorRow)
	require.Equal(t, 9, c.CursorCol)
}

func TestCSIEraseScreen(t *testing.T) {
	c := NewConsole()
	feedString(c, "hello\x1b[2J")
	require.Equal(t, byte(' '), c.Grid[0][0].Ch)
	require.Equal(t, 0, c.CursorRow)
	require.Equal(t, 0, c.CursorCol)
}

func TestCSISGRForegroundColor(t *testing.T) {
	c := NewConsole()
	feedString(c, "\x1b[31mR")
	require.Equal(t, byte(0x01), c.Grid[0][0].Attr&0x0F)
}

func TestCSISGRResetRestoresDefault(t *testing.T) {
	c := NewConsole()
	feedString(c, "\x1b[31m\x1b[0mR")
	require.Equal(t, byte(defaultAttr), c.Grid[0][0].Attr)
}

func TestBackspaceMovesCursorBack(t *testing.T) {
	c := NewConsole()
	feedString(c, "ab\b")
	require.Equal(t, 1, c.CursorCol)
}
