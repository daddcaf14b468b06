package output

import (
	"fmt"
	"strings"

	shopql "github.com/shopql/shopql-go"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatTable renders table data as a Markdown table.
func (f *MarkdownFormatter) FormatTable(data *shopql.TableData) (string, error) {
	if data == nil {
		return "", nil
	}

	var sb strings.Builder

	headers := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		headers[i] = escapeMarkdownCell(headerFor(c))
	}
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("------|", len(headers)) + "\n")

	for _, row := range data.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = escapeMarkdownCell(fmt.Sprint(v))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
