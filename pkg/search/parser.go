package search

import (
	"strings"
)

// Filters holds the slash filters found in a query and the remaining text.
type Filters struct {
	Usuario   string
	Sucursal  string
	Actividad string
	Kind      Kind
	Text      string
}

func (f Filters) empty() bool {
	return f.Usuario == "" && f.Sucursal == "" && f.Actividad == "" && f.Kind == ""
}

// ParseQuery extracts slash filters from the raw query:
//
//	/usuario:<term> or /u:<term>   documents about that user
//	/sucursal:<term> or /s:<term>  documents about that branch
//	/actividad:<term>              activity documents for that activity
//	/tipo:<document_type>          one kind of document
//
// Filter values cannot contain spaces; use underscores, they match spaces.
func ParseQuery(raw string) Filters {
	var f Filters
	var rest []string

	for _, part := range strings.Fields(raw) {
		lower := strings.ToLower(part)
		value := func(prefix string) string {
			return strings.ReplaceAll(strings.TrimPrefix(lower, prefix), "_", " ")
		}
		switch {
		case strings.HasPrefix(lower, "/usuario:"):
			f.Usuario = value("/usuario:")
		case strings.HasPrefix(lower, "/u:"):
			f.Usuario = value("/u:")
		case strings.HasPrefix(lower, "/sucursal:"):
			f.Sucursal = value("/sucursal:")
		case strings.HasPrefix(lower, "/s:"):
			f.Sucursal = value("/s:")
		case strings.HasPrefix(lower, "/actividad:"):
			f.Actividad = value("/actividad:")
		case strings.HasPrefix(lower, "/tipo:"):
			f.Kind = Kind(strings.TrimPrefix(lower, "/tipo:"))
		default:
			rest = append(rest, part)
		}
	}

	f.Text = strings.Join(rest, " ")
	return f
}

// matches reports whether d satisfies every filter that is set.
func (f Filters) matches(d Document) bool {
	if f.Kind != "" && d.Kind != f.Kind {
		return false
	}
	meta := func(key string) string {
		s, _ := d.Metadata[key].(string)
		return strings.ToLower(s)
	}
	if f.Usuario != "" && !strings.Contains(meta("usuario"), f.Usuario) {
		return false
	}
	if f.Sucursal != "" && !strings.Contains(meta("sucursal"), f.Sucursal) {
		return false
	}
	if f.Actividad != "" && !strings.Contains(meta("actividad"), f.Actividad) {
		return false
	}
	return true
}
