// Package render draws padclash display states as coloured text.
// It knows nothing about Bubble Tea; models call Render and print the string.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color is a foreground colour for a canvas cell.
type Color uint8

const (
	ColorDefault Color = iota
	ColorRed
	ColorYellow
	ColorCyan
	ColorMagenta
	ColorGray
	ColorOrange
	ColorBrightWhite
)

var colorStyles = map[Color]lipgloss.Style{
	ColorDefault:     lipgloss.NewStyle(),
	ColorRed:         lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	ColorYellow:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	ColorCyan:        lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	ColorMagenta:     lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	ColorGray:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	ColorOrange:      lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	ColorBrightWhite: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true),
}

// Cell is one character position.
type Cell struct {
	Rune  rune
	Color Color
}

var blank = Cell{Rune: ' '}

// Canvas is a 2D character buffer. Row 0 is the top of the terminal.
type Canvas struct {
	width  int
	height int
	cells  [][]Cell
}

// NewCanvas creates a blank canvas.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Width returns the canvas width in characters.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in characters.
func (c *Canvas) Height() int { return c.height }

// Resize reallocates the canvas. Content is discarded; every frame is
// redrawn from scratch anyway.
func (c *Canvas) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == c.width && height == c.height && c.cells != nil {
		return
	}
	c.width, c.height = width, height
	c.cells = make([][]Cell, height)
	for y := range c.cells {
		c.cells[y] = make([]Cell, width)
	}
	c.Clear()
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = blank
		}
	}
}

// Set places a rune. Out-of-bounds coordinates are ignored.
func (c *Canvas) Set(x, y int, r rune, color Color) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y][x] = Cell{Rune: r, Color: color}
}

// Get returns the cell at (x, y), or a blank cell out of bounds.
func (c *Canvas) Get(x, y int) Cell {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return blank
	}
	return c.cells[y][x]
}

// DrawText writes text starting at (x, y), clipped at the edges.
func (c *Canvas) DrawText(x, y int, text string, color Color) {
	i := 0
	for _, r := range text {
		c.Set(x+i, y, r, color)
		i++
	}
}

// DrawTextCentered writes text centred on row y.
func (c *Canvas) DrawTextCentered(y int, text string, color Color) {
	c.DrawText((c.width-len([]rune(text)))/2, y, text, color)
}

// String returns the canvas without colour.
func (c *Canvas) String() string {
	var sb strings.Builder
	sb.Grow(c.width*c.height + c.height)
	for y := range c.height {
		if y > 0 {
			sb.WriteRune('\n')
		}
		for _, cell := range c.cells[y] {
			sb.WriteRune(cell.Rune)
		}
	}
	return sb.String()
}

// Render returns the canvas styled with lipgloss. Adjacent cells of the
// same colour share one escape sequence.
func (c *Canvas) Render() string {
	var sb strings.Builder
	sb.Grow(c.width*c.height*2 + c.height)

	for y := range c.height {
		if y > 0 {
			sb.WriteRune('\n')
		}
		row := c.cells[y]
		for x := 0; x < len(row); {
			color := row[x].Color
			var run strings.Builder
			for ; x < len(row) && row[x].Color == color; x++ {
				run.WriteRune(row[x].Rune)
			}
			style, ok := colorStyles[color]
			if !ok {
				style = colorStyles[ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}
