package export

import "fmt"

// Exporter defines the interface for rendering command output in a format
type Exporter interface {
	// Export renders v in the target format
	Export(v any) ([]byte, error)

	// Name returns the exporter name (e.g., "json", "yaml", "table")
	Name() string
}

// Formats lists the accepted --output values.
var Formats = []string{"table", "json", "yaml"}

// New returns the exporter for a format name. An empty name means table.
func New(format string) (Exporter, error) {
	switch format {
	case "", "table":
		return NewTableExporter(), nil
	case "json":
		return NewJSONExporter(), nil
	case "yaml", "yml":
		return NewYAMLExporter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}
