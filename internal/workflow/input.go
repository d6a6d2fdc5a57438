package workflow

import "strings"

// DefaultMarker is the leading character stripped from identifiers.
const DefaultMarker = "@"

// ParseList splits free text on commas and line breaks. Entries are
// returned untrimmed; Normalize cleans them.
func ParseList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
}

// Normalize trims whitespace and one leading marker. It reports false for
// entries that are empty or consist of the marker alone.
func Normalize(raw, marker string) (string, bool) {
	id := strings.TrimSpace(raw)
	if marker != "" {
		id = strings.TrimSpace(strings.TrimPrefix(id, marker))
	}
	return id, id != ""
}

// NormalizeAll normalises every entry, dropping the empty ones and keeping
// order and duplicates.
func NormalizeAll(raw []string, marker string) []string {
	var out []string
	for _, r := range raw {
		if id, ok := Normalize(r, marker); ok {
			out = append(out, id)
		}
	}
	return out
}
