package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

type PerformanceRow struct {
	Row
	ValorMetrica *float64 `json:"valor_metrica"`
}

type MetricStats struct {
	PromedioGeneral    float64 `json:"promedio_general"`
	Mediana            float64 `json:"mediana"`
	DesviacionEstandar float64 `json:"desviacion_estandar"`
}

type TopPerformances struct {
	Resultados       []PerformanceRow `json:"resultados"`
	Metrica          string           `json:"metrica"`
	TotalRegistros   int              `json:"total_registros"`
	Estadisticas     MetricStats      `json:"estadisticas"`
	DatosUtilizados  []PerformanceRow `json:"datos_utilizados"`
	FiltrosAplicados map[string]any   `json:"filtros_aplicados"`
	RangoFechas      DateRange        `json:"rango_fechas"`
}

// filterFields maps filter keys, as the classifier or a caller spells them,
// onto record fields.
var filterFields = map[string]func(dataset.Record) string{
	"usuario":            usuarioOf,
	"usuario nombre":     nombreOf,
	"nombre":             nombreOf,
	"sucursal":           sucursalOf,
	"actividad":          actividadOf,
	"actividad_nombre":   actividadOf,
	"caso_de_uso":        casoOf,
	"caso_de_uso_nombre": casoOf,
}

func nombreOf(r dataset.Record) string { return r.UsuarioNombre }
func casoOf(r dataset.Record) string   { return r.CasoDeUso }

// applyFilters keeps records matching every non-empty filter. "fecha" is a
// calendar-day match; everything else is a case-insensitive substring match.
func applyFilters(rs []dataset.Record, filtros map[string]any) ([]dataset.Record, error) {
	keys := make([]string, 0, len(filtros))
	for k := range filtros {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value := strings.TrimSpace(fmt.Sprint(filtros[k]))
		if filtros[k] == nil || value == "" {
			continue
		}
		if strings.EqualFold(k, "fecha") {
			day, err := dataset.ParseFlexibleDate(value)
			if err != nil {
				return nil, err
			}
			rs = where(rs, func(r dataset.Record) bool { return dataset.SameDay(r.FechaHora, day) })
			continue
		}
		field, known := filterFields[strings.ToLower(k)]
		if !known {
			return nil, apperror.MissingKey(k)
		}
		rs = where(rs, func(r dataset.Record) bool { return containsFold(field(r), value) })
	}
	return rs, nil
}

// TopPerformances returns the n best records by score, points or
// improvement over the same user's previous attempt.
func (e *Engine) TopPerformances(n int, metric string, filtros map[string]any) Envelope {
	return e.run("top_performances", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		if n <= 0 {
			n = 5
		}
		if metric == "" {
			metric = "calificacion"
		}

		rs, err := applyFilters(e.ds.Records, filtros)
		if err != nil {
			return Envelope{}, err
		}

		var value func(i int) *float64
		switch metric {
		case "calificacion":
			value = func(i int) *float64 { v := rs[i].Calificacion; return &v }
		case "puntos":
			value = func(i int) *float64 { v := rs[i].PuntosTotales; return &v }
		case "mejora":
			rs = byDate(rs)
			gains := improvements(rs)
			value = func(i int) *float64 { return gains[i] }
		default:
			return Envelope{}, apperror.Value("metric", "Métrica no válida: %s", metric)
		}

		if len(rs) == 0 {
			return Envelope{}, apperror.Empty("No hay registros que cumplan los filtros")
		}

		used := make([]PerformanceRow, len(rs))
		var ranked []PerformanceRow
		var values []float64
		for i, r := range rs {
			used[i] = PerformanceRow{Row: rowOf(r), ValorMetrica: value(i)}
			if v := used[i].ValorMetrica; v != nil {
				ranked = append(ranked, used[i])
				values = append(values, *v)
			}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return *ranked[i].ValorMetrica > *ranked[j].ValorMetrica })

		s := summarize(values)
		if filtros == nil {
			filtros = map[string]any{}
		}
		return ok(fmt.Sprintf("Top %d mejores desempeños por %s", n, metric), TopPerformances{
			Resultados:     nonNil(head(ranked, n)),
			Metrica:        metric,
			TotalRegistros: len(rs),
			Estadisticas: MetricStats{
				PromedioGeneral:    s.Mean,
				Mediana:            median(values),
				DesviacionEstandar: s.Std,
			},
			DatosUtilizados:  used,
			FiltrosAplicados: filtros,
			RangoFechas:      dateRange(rs),
		}), nil
	})
}

// improvements is the score delta against the same user's previous record in
// date order. A user's first record has no delta.
func improvements(ordered []dataset.Record) []*float64 {
	out := make([]*float64, len(ordered))
	previous := make(map[string]float64)
	for i, r := range ordered {
		if p, seen := previous[r.Usuario]; seen {
			d := r.Calificacion - p
			out[i] = &d
		}
		previous[r.Usuario] = r.Calificacion
	}
	return out
}

type UserAggregate struct {
	Usuario       string  `json:"usuario"`
	Actividades   int     `json:"actividades"`
	Promedio      float64 `json:"promedio"`
	Mejor         float64 `json:"mejor"`
	Peor          float64 `json:"peor"`
	PuntosTotales float64 `json:"puntos_totales"`
}

type DayAggregate struct {
	Fecha    string  `json:"fecha"`
	Usuarios int     `json:"usuarios"`
	Promedio float64 `json:"promedio"`
	Puntos   float64 `json:"puntos"`
}

type Comparison struct {
	Usuarios         []UserAggregate `json:"usuarios"`
	Temporal         []DayAggregate  `json:"temporal"`
	TotalRegistros   int             `json:"total_registros"`
	PeriodoAnalizado DateRange       `json:"periodo_analizado"`
}

// ComparativeAnalysis compares users side by side, optionally restricted to
// a set of days and an activity.
func (e *Engine) ComparativeAnalysis(usuarios, fechas []string, actividad string) Envelope {
	return e.run("comparative_analysis", withColumns(dataset.ColUsuarioNombre), func() (Envelope, error) {
		rs := e.ds.Records
		if actividad != "" {
			rs = where(rs, func(r dataset.Record) bool { return containsFold(r.ActividadNombre, actividad) })
		}
		if len(usuarios) > 0 {
			rs = where(rs, func(r dataset.Record) bool {
				for _, u := range usuarios {
					if r.Usuario == u || (u != "" && containsFold(r.UsuarioNombre, u)) {
						return true
					}
				}
				return false
			})
		}
		if len(fechas) > 0 {
			days := make([]time.Time, 0, len(fechas))
			for _, f := range fechas {
				d, err := dataset.ParseFlexibleDate(f)
				if err != nil {
					return Envelope{}, err
				}
				days = append(days, d)
			}
			rs = where(rs, func(r dataset.Record) bool {
				for _, d := range days {
					if dataset.SameDay(r.FechaHora, d) {
						return true
					}
				}
				return false
			})
		}
		if len(rs) == 0 {
			return ok("No se encontraron datos para comparar", nil), nil
		}

		users := groupBy(rs, usuarioOf)
		sortGroupsByKey(users)
		out := Comparison{TotalRegistros: len(rs)}
		for _, g := range users {
			s := summarize(scores(g.Records))
			out.Usuarios = append(out.Usuarios, UserAggregate{
				Usuario:       g.Key,
				Actividades:   s.Count,
				Promedio:      round2(s.Mean),
				Mejor:         s.Max,
				Peor:          s.Min,
				PuntosTotales: round2(summarize(points(g.Records)).Sum),
			})
		}

		if len(fechas) > 0 {
			perDay := groupBy(rs, func(r dataset.Record) string { return r.FechaHora.Format("2006-01-02") })
			sortGroupsByKey(perDay)
			for _, g := range perDay {
				out.Temporal = append(out.Temporal, DayAggregate{
					Fecha:    g.Key,
					Usuarios: distinct(g.Records, usuarioOf),
					Promedio: round2(mean(scores(g.Records))),
					Puntos:   round2(summarize(points(g.Records)).Sum),
				})
			}
		}

		span := byDate(rs)
		out.PeriodoAnalizado = DateRange{
			Inicio: span[0].FechaHora.Format("2006-01-02 15:04:05"),
			Fin:    span[len(span)-1].FechaHora.Format("2006-01-02 15:04:05"),
		}
		return ok("Análisis comparativo completado", out), nil
	})
}
