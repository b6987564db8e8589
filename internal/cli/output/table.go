package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

func newTable(w io.Writer, separator string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(separator)
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// PrintTable writes data as a borderless table with upper-cased headers.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := newTable(w, "")
	table.SetAutoFormatHeaders(true)
	table.SetHeader(data.Headers())
	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// KeyValues is an ordered list of label/value pairs rendered as a two
// column table.
type KeyValues [][2]string

// Add appends a pair and returns the extended list.
func (kv KeyValues) Add(key, value string) KeyValues {
	return append(kv, [2]string{key, value})
}

// Headers implements TableRenderer. KeyValues has no header row.
func (kv KeyValues) Headers() []string { return nil }

// Rows implements TableRenderer.
func (kv KeyValues) Rows() [][]string {
	rows := make([][]string, 0, len(kv))
	for _, pair := range kv {
		rows = append(rows, []string{pair[0], pair[1]})
	}
	return rows
}

// PrintKeyValues writes pairs as "key: value" lines aligned on the colon.
func PrintKeyValues(w io.Writer, kv KeyValues) error {
	table := newTable(w, ":")
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(kv.Rows())
	table.Render()
	return nil
}
