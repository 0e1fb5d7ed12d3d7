package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

const defaultSearchLimit = 20

type SearchStats struct {
	TotalResultados      int     `json:"total_resultados"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	CalificacionMax      float64 `json:"calificacion_max"`
	CalificacionMin      float64 `json:"calificacion_min"`
	UsuariosUnicos       int     `json:"usuarios_unicos"`
	ActividadesUnicas    int     `json:"actividades_unicas"`
	Sucursales           int     `json:"sucursales"`
}

type SearchResult struct {
	FiltrosAplicados map[string]any `json:"filtros_aplicados"`
	Estadisticas     *SearchStats   `json:"estadisticas,omitempty"`
	Resultados       []Row          `json:"resultados"`
}

// AdvancedSearch applies any combination of sucursal, usuario, actividad,
// fecha_inicio, fecha_fin, calif_min, calif_max, puntos_min, puntos_max and
// limit. Unknown keys are ignored.
func (e *Engine) AdvancedSearch(filtros map[string]any) Envelope {
	return e.run("advanced_search", withColumns(dataset.ColUsuarioNombre, dataset.ColSucursal), func() (Envelope, error) {
		rs := e.ds.Records
		applied := map[string]any{}

		for _, key := range []string{"sucursal", "usuario", "actividad"} {
			term := stringFilter(filtros, key)
			if term == "" {
				continue
			}
			var keep func(dataset.Record) bool
			switch key {
			case "sucursal":
				keep = func(r dataset.Record) bool { return r.Sucursal != "" && containsFold(r.Sucursal, term) }
			case "usuario":
				keep = looseUserMatcher(term)
			default:
				keep = func(r dataset.Record) bool { return containsFold(r.ActividadNombre, term) }
			}
			rs = where(rs, keep)
			applied[key] = term
		}

		for _, key := range []string{"fecha_inicio", "fecha_fin"} {
			raw := stringFilter(filtros, key)
			if raw == "" {
				continue
			}
			bound, err := dataset.ParseFlexibleDate(raw)
			if err != nil {
				return Envelope{}, err
			}
			if key == "fecha_inicio" {
				rs = where(rs, func(r dataset.Record) bool { return !r.FechaHora.Before(bound) })
			} else {
				rs = where(rs, func(r dataset.Record) bool { return !r.FechaHora.After(bound) })
			}
			applied[key] = bound.Format("02/01/2006")
		}

		bounds := []struct {
			key   string
			field func(dataset.Record) float64
			min   bool
		}{
			{"calif_min", calificacionOf, true},
			{"calif_max", calificacionOf, false},
			{"puntos_min", puntosOf, true},
			{"puntos_max", puntosOf, false},
		}
		for _, b := range bounds {
			limit, present, err := numberFilter(filtros, b.key)
			if err != nil {
				return Envelope{}, err
			}
			if !present {
				continue
			}
			field, lower := b.field, b.min
			rs = where(rs, func(r dataset.Record) bool {
				if lower {
					return field(r) >= limit
				}
				return field(r) <= limit
			})
			applied[b.key] = limit
		}

		if len(rs) == 0 {
			return ok("No se encontraron resultados para los filtros especificados", SearchResult{
				FiltrosAplicados: applied,
				Resultados:       []Row{},
			}), nil
		}

		limit := defaultSearchLimit
		if n, present, err := numberFilter(filtros, "limit"); err != nil {
			return Envelope{}, err
		} else if present && n > 0 {
			limit = int(n)
		}

		shown := head(rs, limit)
		results := make([]Row, len(shown))
		for i, r := range shown {
			results[i] = rowOf(r)
			results[i].Fecha = r.FechaHora.Format("02/01/2006 15:04")
		}

		s := summarize(scores(rs))
		return ok(fmt.Sprintf("Se encontraron %d resultados (mostrando %d)", len(rs), len(results)), SearchResult{
			FiltrosAplicados: applied,
			Estadisticas: &SearchStats{
				TotalResultados:      len(rs),
				PromedioCalificacion: round2(s.Mean),
				CalificacionMax:      s.Max,
				CalificacionMin:      s.Min,
				UsuariosUnicos:       distinct(rs, usuarioOf),
				ActividadesUnicas:    distinct(rs, actividadOf),
				Sucursales:           distinct(rs, sucursalOf),
			},
			Resultados: results,
		}), nil
	})
}

func calificacionOf(r dataset.Record) float64 { return r.Calificacion }
func puntosOf(r dataset.Record) float64       { return r.PuntosTotales }

func stringFilter(filtros map[string]any, key string) string {
	v, present := filtros[key]
	if !present || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// numberFilter accepts JSON numbers and numeric strings (comma decimals too).
func numberFilter(filtros map[string]any, key string) (float64, bool, error) {
	v, present := filtros[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case int:
		return float64(t), true, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return 0, false, apperror.Value(key, "Valor numérico no válido para %s: %s", key, t)
		}
		return f, true, nil
	}
	return 0, false, apperror.Value(key, "Valor numérico no válido para %s: %v", key, v)
}

// SearchActivities is a plain substring lookup over activity, user and
// branch, newest first, capped at ten rows.
func (e *Engine) SearchActivities(texto string) Envelope {
	return e.run("search_activities", withColumns(dataset.ColUsuarioNombre, dataset.ColSucursal), func() (Envelope, error) {
		term := strings.TrimSpace(texto)
		if term == "" {
			return Envelope{}, apperror.Value("texto", "Se requiere un texto de búsqueda")
		}
		rs := where(e.ds.Records, func(r dataset.Record) bool {
			return containsFold(r.ActividadNombre, term) || containsFold(r.Usuario, term) ||
				containsFold(r.UsuarioNombre, term) || (r.Sucursal != "" && containsFold(r.Sucursal, term))
		})
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontraron resultados para '%s'", texto), nil), nil
		}

		sort.SliceStable(rs, func(i, j int) bool { return rs[i].FechaHora.After(rs[j].FechaHora) })
		found := rowsOf(head(rs, 10))
		return ok(fmt.Sprintf("Se encontraron %d resultados", len(found)), found), nil
	})
}

type GeneralFigures struct {
	TotalSucursales         int     `json:"total_sucursales"`
	TotalUsuarios           int     `json:"total_usuarios"`
	TotalUsuariosActivos    int     `json:"total_usuarios_activos"`
	TotalActividades        int     `json:"total_actividades"`
	PromedioGeneral         float64 `json:"promedio_general"`
	MejorCalificacionGlobal float64 `json:"mejor_calificacion_global"`
	PeorCalificacionGlobal  float64 `json:"peor_calificacion_global"`
	TotalPuntos             float64 `json:"total_puntos"`
	PrimeraActividad        string  `json:"primera_actividad"`
	UltimaActividad         string  `json:"ultima_actividad"`
}

// GeneralStats counts every user as active; the dataset carries no
// enrollment data to tell otherwise.
func (e *Engine) GeneralStats() Envelope {
	return e.run("general_stats", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		rs := e.ds.Records
		if len(rs) == 0 {
			return Envelope{}, apperror.Empty("No hay registros cargados")
		}
		s := summarize(scores(rs))
		users := distinct(rs, usuarioOf)
		span := dateRange(rs)
		return ok("Estadísticas generales", GeneralFigures{
			TotalSucursales:         distinct(rs, sucursalOf),
			TotalUsuarios:           users,
			TotalUsuariosActivos:    users,
			TotalActividades:        len(rs),
			PromedioGeneral:         round2(s.Mean),
			MejorCalificacionGlobal: s.Max,
			PeorCalificacionGlobal:  s.Min,
			TotalPuntos:             summarize(points(rs)).Sum,
			PrimeraActividad:        span.Inicio,
			UltimaActividad:         span.Fin,
		}), nil
	})
}
