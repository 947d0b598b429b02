package export

import (
	"encoding/json"
)

type JSONExporter struct{}

func (e *JSONExporter) Name() string {
	return "json"
}

func (e *JSONExporter) Export(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func NewJSONExporter() Exporter {
	return &JSONExporter{}
}
