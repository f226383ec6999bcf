package model

// TableData is the normalized judgment-basis table for one test item:
// a header row plus zero or more data rows.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// HasField reports whether name appears as a column header, allowing
// the partial matches the source extractor produces (a header cell may
// carry surrounding text around the field label).
func (t TableData) HasField(name string) bool {
	for _, h := range t.Headers {
		if h == name || containsLabel(h, name) {
			return true
		}
	}
	return false
}

// Column returns the values under the header matching name, one per
// data row. Missing cells come back as empty strings.
func (t TableData) Column(name string) []string {
	idx := -1
	for i, h := range t.Headers {
		if h == name || containsLabel(h, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	vals := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			vals = append(vals, row[idx])
		} else {
			vals = append(vals, "")
		}
	}
	return vals
}

// containsLabel reports whether the exact label appears inside a header
// cell. Byte-exact substring match: the field labels are Korean tokens
// with no case variants, only surrounding decoration to strip.
func containsLabel(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// TestItemData is the normalized extracted record for one test item.
// It is produced by the extractor adapter, scoped to a single
// validation call, and never mutated after construction.
type TestItemData struct {
	ID         string            `json:"id"`
	PageNumber int               `json:"page_number"`
	Metadata   map[string]string `json:"metadata"`
	Table      TableData         `json:"table"`
	HasImage   bool              `json:"has_image"`
	ImageData  []byte            `json:"image_data,omitempty"`
	Caption    string            `json:"caption"`
}
