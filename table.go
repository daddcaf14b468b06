package shopql

// Column describes one column of a query result.
type Column struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	DisplayName string `json:"displayName"`
}

// TableData is the raw tabular payload returned by the query endpoint. Rows
// are value sequences aligned positionally to Columns. The client forwards it
// untouched; projectors convert it into caller-chosen representations.
type TableData struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnNames returns the column names in declaration order.
func (t *TableData) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
