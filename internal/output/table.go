package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	shopql "github.com/shopql/shopql-go"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatTable renders table data as a rounded ASCII table.
func (f *TableFormatter) FormatTable(data *shopql.TableData) (string, error) {
	if data == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, len(data.Columns))
	for i, c := range data.Columns {
		header[i] = headerFor(c)
	}
	t.AppendHeader(header)

	for _, row := range data.Rows {
		t.AppendRow(table.Row(row))
	}

	return t.Render(), nil
}
