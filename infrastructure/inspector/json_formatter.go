package inspector

import "encoding/json"

// JSONFormatter formats machines as JSON.
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(pretty bool) *JSONFormatter {
	return &JSONFormatter{pretty: pretty}
}

// Format formats the machines as JSON.
func (f *JSONFormatter) Format(machines []MachineExport) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(machines, "", "  ")
	}
	return json.Marshal(machines)
}

// FormatType returns the format type.
func (f *JSONFormatter) FormatType() Format {
	return FormatJSON
}

var _ Formatter = (*JSONFormatter)(nil)
