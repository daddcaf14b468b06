package shopql

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Projector converts raw table data into a caller-chosen representation.
// Implementations must be pure: no I/O and no mutation of the input. A
// structurally inconsistent table (row arity not matching the column list)
// fails with a *ProjectionError.
type Projector[T any] interface {
	Project(data *TableData) (T, error)
}

// ProjectorFunc adapts a function to the Projector interface.
type ProjectorFunc[T any] func(data *TableData) (T, error)

// Project implements Projector.
func (f ProjectorFunc[T]) Project(data *TableData) (T, error) {
	return f(data)
}

// Record is one result row keyed by column name. Row order is preserved by
// the enclosing slice; column order is carried by TableData.Columns.
type Record map[string]any

// RecordsProjector is the dependency-free default projection: one Record per
// row.
type RecordsProjector struct{}

// Project implements Projector.
func (RecordsProjector) Project(data *TableData) ([]Record, error) {
	if data == nil {
		return nil, &ProjectionError{Row: -1, Message: "table data is nil"}
	}

	names := data.ColumnNames()
	records := make([]Record, 0, len(data.Rows))
	for i, row := range data.Rows {
		if len(row) != len(names) {
			return nil, &ProjectionError{Row: i, Message: "row arity does not match column count"}
		}
		record := make(Record, len(names))
		for j, name := range names {
			record[name] = row[j]
		}
		records = append(records, record)
	}
	return records, nil
}

// Frame is a column-major view of a query result.
type Frame struct {
	Columns []Column
	// Data holds one value slice per column, aligned to Columns.
	Data [][]any
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data[0])
}

// Column returns the values of the named column, or nil if absent.
func (f *Frame) Column(name string) []any {
	for i, c := range f.Columns {
		if c.Name == name {
			return f.Data[i]
		}
	}
	return nil
}

// FrameProjector transposes row-major table data into a columnar Frame.
type FrameProjector struct{}

// Project implements Projector.
func (FrameProjector) Project(data *TableData) (*Frame, error) {
	if data == nil {
		return nil, &ProjectionError{Row: -1, Message: "table data is nil"}
	}

	frame := &Frame{
		Columns: append([]Column(nil), data.Columns...),
		Data:    make([][]any, len(data.Columns)),
	}
	for i := range frame.Data {
		frame.Data[i] = make([]any, len(data.Rows))
	}

	for i, row := range data.Rows {
		if len(row) != len(data.Columns) {
			return nil, &ProjectionError{Row: i, Message: "row arity does not match column count"}
		}
		for j, value := range row {
			frame.Data[j][i] = value
		}
	}
	return frame, nil
}

// RenderedTableProjector renders the result as an ASCII table. Headers use
// the column display name when present.
type RenderedTableProjector struct {
	Style *table.Style
}

// Project implements Projector.
func (p RenderedTableProjector) Project(data *TableData) (string, error) {
	if data == nil {
		return "", &ProjectionError{Row: -1, Message: "table data is nil"}
	}

	header := make(table.Row, len(data.Columns))
	for i, c := range data.Columns {
		if c.DisplayName != "" {
			header[i] = c.DisplayName
		} else {
			header[i] = c.Name
		}
	}

	t := table.NewWriter()
	if p.Style != nil {
		t.SetStyle(*p.Style)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	t.AppendHeader(header)

	for i, row := range data.Rows {
		if len(row) != len(data.Columns) {
			return "", &ProjectionError{Row: i, Message: "row arity does not match column count"}
		}
		t.AppendRow(table.Row(row))
	}

	return t.Render(), nil
}
