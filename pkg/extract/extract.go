// Package extract pulls quoted literals, dates and keyword mentions out of a
// raw query without calling any remote service.
package extract

import (
	"regexp"
	"strings"

	"rolplay-assistant-be/pkg/text"
)

// Category is one of the keyword vocabularies checked against the query.
type Category string

const (
	Branch         Category = "sucursal"
	User           Category = "usuario"
	Activity       Category = "actividad"
	Progress       Category = "progreso"
	Recommendation Category = "recomendacion"
	ListRequest    Category = "lista"
)

var vocabulary = map[Category][]string{
	Branch:         {"sucursal", "branch", "sede", "oficina"},
	User:           {"usuario", "user", "empleado", "vendedor", "representante", "como va ", "como le va", "como le fue", "que tal le va"},
	Activity:       {"actividad", "activity", "tarea", "ejercicio", "ronda"},
	Progress:       {"progreso", "evolución", "avance", "trayectoria", "desarrollo", "tendencia", "cambiado"},
	Recommendation: {"recomendación", "recomendaciones", "sugerencia", "sugerencias", "ayúdame", "mejorar"},
	ListRequest:    {"quiénes", "quienes", "cuáles", "cuales", "lista", "nombres", "listado", "dame", "darme", "mostrar", "ver"},
}

var contextReferenceWords = []string{
	"mismo", "misma", "mismos", "mismas",
	"esa", "ese", "esos", "esas",
	"esta", "este", "estos", "estas",
	"aquella", "aquel", "aquellos", "aquellas",
	"dicha", "dicho", "dichos", "dichas",
	"anterior", "previo", "previa", "mencionado", "mencionada",
}

var (
	quotedPattern = regexp.MustCompile(`"([^"]+)"`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{2,4}[/-]\d{1,2}[/-]\d{1,2}\b`),
	}
)

// Entities is the per-turn extraction result. Empty strings mean "not found".
type Entities struct {
	Normalized       string
	Quoted           []string
	Usuario          string
	Actividad        string
	Sucursal         string
	Fecha            string
	ContextReference bool
	Mentions         map[Category]bool
}

// Mentioned reports whether the query used a keyword of c.
func (e Entities) Mentioned(c Category) bool {
	return e.Mentions[c]
}

// Extract never fails; a query with nothing recognizable yields zero values.
func Extract(raw string) Entities {
	normalized := text.Normalize(raw)

	e := Entities{
		Normalized:       normalized,
		ContextReference: text.ContainsAny(normalized, contextReferenceWords...),
		Mentions:         make(map[Category]bool, len(vocabulary)),
		Fecha:            findDate(raw),
	}
	for c, words := range vocabulary {
		e.Mentions[c] = text.ContainsAny(normalized, words...)
	}

	for _, m := range quotedPattern.FindAllStringSubmatch(raw, -1) {
		e.Quoted = append(e.Quoted, m[1])
	}
	e.assignQuoted()

	return e
}

func (e *Entities) assignQuoted() {
	for _, literal := range e.Quoted {
		lower := strings.ToLower(literal)
		switch {
		case containsAny(lower, "representante", "usuario", "user"):
			e.Usuario = literal
		case containsAny(lower, "ronda", "actividad"):
			e.Actividad = literal
		case strings.Contains(lower, "sucursal"):
			e.Sucursal = literal
		}
	}

	if e.Usuario != "" || e.Actividad != "" || e.Sucursal != "" || len(e.Quoted) == 0 {
		return
	}
	switch {
	case e.Mentioned(User):
		e.Usuario = e.Quoted[0]
	case e.Mentioned(Activity):
		e.Actividad = e.Quoted[0]
	case e.Mentioned(Branch):
		e.Sucursal = e.Quoted[0]
	}
}

func findDate(raw string) string {
	for _, p := range datePatterns {
		if m := p.FindString(raw); m != "" {
			return m
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
