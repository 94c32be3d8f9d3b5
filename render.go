package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/teru01/filedb-go/dbexecutor"
	"github.com/teru01/filedb-go/dbrecord"
)

var (
	primaryColor = lipgloss.Color("#8B5CF6")
	mutedColor   = lipgloss.Color("#94A3B8")

	headerStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	nullStyle   = cellStyle.Foreground(mutedColor).Italic(true)
	tagStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

// render writes result as a table followed by its command tag.
func render(w io.Writer, result *dbexecutor.ExecuteResult) {
	if result.Fields != nil {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
			Headers(result.Fields...)
		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.String()
			}
			t.Row(cells...)
		}
		t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < len(result.Rows) && col < len(result.Rows[row]) && result.Rows[row][col].IsNull() {
				return nullStyle
			}
			if col < len(result.FieldTypes) && result.FieldTypes[col] == dbrecord.FieldTypeInt {
				return numberStyle
			}
			return cellStyle
		})
		fmt.Fprintln(w, t.Render())
	}
	fmt.Fprintln(w, tagStyle.Render(result.Tag))
}
