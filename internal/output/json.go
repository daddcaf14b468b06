package output

import (
	"encoding/json"

	shopql "github.com/shopql/shopql-go"
)

// JSONFormatter renders results as JSON records.
type JSONFormatter struct {
	Indent bool
}

// FormatTable renders table data as a JSON array of records.
func (f *JSONFormatter) FormatTable(data *shopql.TableData) (string, error) {
	if data == nil {
		return "", nil
	}

	records, err := shopql.RecordsProjector{}.Project(data)
	if err != nil {
		return "", err
	}

	var out []byte
	if f.Indent {
		out, err = json.MarshalIndent(records, "", "  ")
	} else {
		out, err = json.Marshal(records)
	}
	if err != nil {
		return "", err
	}

	return string(out), nil
}
