package analytics

import (
	"regexp"
	"sort"
	"strings"

	"rolplay-assistant-be/pkg/dataset"
)

// Unassigned labels a record whose branch cell was blank.
const Unassigned = "Sin asignar"

var coreColumns = []string{
	dataset.ColUsuario, dataset.ColActividad, dataset.ColFecha, dataset.ColCalificacion, dataset.ColPuntos,
}

func withColumns(extra ...string) []string {
	return append(append([]string(nil), coreColumns...), extra...)
}

// Row is the per-record shape shared by every listing.
type Row struct {
	Fecha        string  `json:"fecha"`
	Hora         string  `json:"hora,omitempty"`
	Usuario      string  `json:"usuario"`
	Nombre       string  `json:"nombre,omitempty"`
	Actividad    string  `json:"actividad"`
	Calificacion float64 `json:"calificacion"`
	Puntos       float64 `json:"puntos"`
	Sucursal     string  `json:"sucursal"`
	CasoUso      string  `json:"caso_uso,omitempty"`
}

func rowOf(r dataset.Record) Row {
	return Row{
		Fecha:        dataset.FormatDisplay(r.FechaHora),
		Usuario:      r.Usuario,
		Nombre:       r.UsuarioNombre,
		Actividad:    r.ActividadNombre,
		Calificacion: r.Calificacion,
		Puntos:       r.PuntosTotales,
		Sucursal:     branchLabel(r.Sucursal),
		CasoUso:      r.CasoDeUso,
	}
}

func rowsOf(rs []dataset.Record) []Row {
	out := make([]Row, 0, len(rs))
	for _, r := range rs {
		out = append(out, rowOf(r))
	}
	return out
}

type DateRange struct {
	Inicio string `json:"inicio"`
	Fin    string `json:"fin"`
}

func dateRange(rs []dataset.Record) DateRange {
	if len(rs) == 0 {
		return DateRange{}
	}
	first, last := rs[0].FechaHora, rs[0].FechaHora
	for _, r := range rs[1:] {
		if r.FechaHora.Before(first) {
			first = r.FechaHora
		}
		if r.FechaHora.After(last) {
			last = r.FechaHora
		}
	}
	return DateRange{Inicio: dataset.FormatDisplay(first), Fin: dataset.FormatDisplay(last)}
}

func branchLabel(s string) string {
	if s == "" {
		return Unassigned
	}
	return s
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func where(rs []dataset.Record, keep func(dataset.Record) bool) []dataset.Record {
	var out []dataset.Record
	for _, r := range rs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// byDate returns a copy ordered oldest first. Equal timestamps keep source order.
func byDate(rs []dataset.Record) []dataset.Record {
	out := append([]dataset.Record(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FechaHora.Before(out[j].FechaHora) })
	return out
}

func tail[T any](xs []T, n int) []T {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func head[T any](xs []T, n int) []T {
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}

func scores(rs []dataset.Record) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Calificacion
	}
	return out
}

func points(rs []dataset.Record) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.PuntosTotales
	}
	return out
}

// distinct counts non-empty values of f.
func distinct(rs []dataset.Record, f func(dataset.Record) string) int {
	seen := make(map[string]struct{})
	for _, r := range rs {
		if v := f(r); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func distinctValues(rs []dataset.Record, f func(dataset.Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rs {
		v := f(r)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func usuarioOf(r dataset.Record) string   { return r.Usuario }
func sucursalOf(r dataset.Record) string  { return r.Sucursal }
func actividadOf(r dataset.Record) string { return r.ActividadNombre }

type group struct {
	Key     string
	Records []dataset.Record
}

// groupBy keeps groups in first-appearance order and drops empty keys.
func groupBy(rs []dataset.Record, key func(dataset.Record) string) []group {
	index := make(map[string]int)
	var out []group
	for _, r := range rs {
		k := key(r)
		if k == "" {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(out)
			index[k] = i
			out = append(out, group{Key: k})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

func sortGroupsByKey(gs []group) {
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Key < gs[j].Key })
}

var numericID = regexp.MustCompile(`^\d+$`)

// userMatcher resolves a bare number to the generated ids ("user7",
// "Representante 7"); anything else is a case-insensitive substring match on
// id or display name.
func userMatcher(usuario string) func(dataset.Record) bool {
	u := strings.TrimSpace(usuario)
	if numericID.MatchString(u) {
		id, name := "user"+u, "Representante "+u
		return func(r dataset.Record) bool { return r.Usuario == id || r.UsuarioNombre == name }
	}
	return func(r dataset.Record) bool {
		return containsFold(r.Usuario, u) || containsFold(r.UsuarioNombre, u)
	}
}

func looseUserMatcher(usuario string) func(dataset.Record) bool {
	return func(r dataset.Record) bool {
		return containsFold(r.Usuario, usuario) || containsFold(r.UsuarioNombre, usuario)
	}
}
