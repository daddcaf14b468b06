package output

import (
	"testing"

	"github.com/stretchr/testify/require"

	shopql "github.com/shopql/shopql-go"
)

func sampleTable() *shopql.TableData {
	return &shopql.TableData{
		Columns: []shopql.Column{
			{Name: "month", DataType: "MONTH_TIMESTAMP", DisplayName: "Month"},
			{Name: "total_sales", DataType: "MONEY", DisplayName: "Total sales"},
		},
		Rows: [][]any{
			{"2025-01", "123.45"},
			{"2025-02", "67.80"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("markdown")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestTableFormatter(t *testing.T) {
	out, err := (&TableFormatter{}).FormatTable(sampleTable())
	require.NoError(t, err)
	require.Contains(t, out, "123.45")
	require.Contains(t, out, "2025-02")
}

func TestJSONFormatter(t *testing.T) {
	out, err := (&JSONFormatter{}).FormatTable(sampleTable())
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"month": "2025-01", "total_sales": "123.45"},
		{"month": "2025-02", "total_sales": "67.80"}
	]`, out)
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := (&MarkdownFormatter{}).FormatTable(sampleTable())
	require.NoError(t, err)
	require.Contains(t, out, "| Month | Total sales |")
	require.Contains(t, out, "| 2025-01 | 123.45 |")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	data := &shopql.TableData{
		Columns: []shopql.Column{{Name: "name"}},
		Rows:    [][]any{{"a|b"}},
	}

	out, err := (&MarkdownFormatter{}).FormatTable(data)
	require.NoError(t, err)
	require.Contains(t, out, `a\|b`)
}

func TestFormattersHandleNil(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatMarkdown} {
		out, err := NewFormatter(format).FormatTable(nil)
		require.NoError(t, err)
		require.Empty(t, out)
	}
}
