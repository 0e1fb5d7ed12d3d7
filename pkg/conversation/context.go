// Package conversation holds the short-term memory of the last data turn.
package conversation

// DefaultSession is used by single-user callers such as the CLI.
const DefaultSession = "default"

// Context is what the assistant remembers from previous data turns.
type Context struct {
	Fecha        string `json:"fecha,omitempty"`
	Usuario      string `json:"usuario,omitempty"`
	Actividad    string `json:"actividad,omitempty"`
	Sucursal     string `json:"sucursal,omitempty"`
	TipoConsulta string `json:"tipo_consulta,omitempty"`
}

// Values are the entity values a turn resolved. Empty means not resolved.
type Values struct {
	Fecha     string
	Usuario   string
	Actividad string
	Sucursal  string
}

// Merge returns c updated with the turn's values. TipoConsulta is always
// replaced; other fields only when the new value is non-empty.
func (c Context) Merge(queryType string, v Values) Context {
	c.TipoConsulta = queryType
	if v.Fecha != "" {
		c.Fecha = v.Fecha
	}
	if v.Usuario != "" {
		c.Usuario = v.Usuario
	}
	if v.Actividad != "" {
		c.Actividad = v.Actividad
	}
	if v.Sucursal != "" {
		c.Sucursal = v.Sucursal
	}
	return c
}

// IsZero reports whether nothing has been remembered yet.
func (c Context) IsZero() bool {
	return c == Context{}
}
