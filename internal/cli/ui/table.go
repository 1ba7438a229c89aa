package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// Table renders rows under bold headers with columns padded to fit
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{w: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty, extra cells are dropped
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	header := paint(t.noColor, color.Bold, color.FgCyan)
	rule := paint(t.noColor, color.FgHiBlack)

	cells := make([]string, len(t.headers))
	for i, h := range t.headers {
		cells[i] = header.Sprint(pad(h, widths[i]))
	}
	fmt.Fprintln(t.w, strings.TrimRight(strings.Join(cells, "  "), " "))

	for i, w := range widths {
		cells[i] = rule.Sprint(strings.Repeat("─", w))
	}
	fmt.Fprintln(t.w, strings.Join(cells, "  "))

	for _, row := range t.rows {
		for i, cell := range row {
			cells[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(t.w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Details renders aligned "key: value" lines under an optional title
type Details struct {
	w       io.Writer
	title   string
	keys    []string
	values  []string
	noColor bool
}

// NewDetails creates a details block
func NewDetails(w io.Writer, title string, noColor bool) *Details {
	return &Details{w: w, title: title, noColor: noColor}
}

// Add appends a key/value pair
func (d *Details) Add(key string, value any) {
	d.keys = append(d.keys, key)
	d.values = append(d.values, fmt.Sprint(value))
}

// Render writes the block followed by a blank line
func (d *Details) Render() {
	if d.title != "" {
		paint(d.noColor, color.Bold, color.FgCyan).Fprintln(d.w, d.title)
	}

	width := 0
	for _, k := range d.keys {
		width = max(width, utf8.RuneCountInString(k)+1)
	}
	key := paint(d.noColor, color.FgCyan)
	for i, k := range d.keys {
		fmt.Fprintf(d.w, "  %s %s\n", key.Sprint(pad(k+":", width)), d.values[i])
	}
	fmt.Fprintln(d.w)
}
