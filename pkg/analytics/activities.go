package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
	"rolplay-assistant-be/pkg/text"
)

type ActivityFigures struct {
	TotalIntentos        int     `json:"total_intentos"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	MejorCalificacion    float64 `json:"mejor_calificacion"`
	PeorCalificacion     float64 `json:"peor_calificacion"`
}

type Attempt struct {
	Fecha        string  `json:"fecha"`
	Usuario      string  `json:"usuario"`
	Calificacion float64 `json:"calificacion"`
}

type ActivityReport struct {
	Actividad       string          `json:"actividad"`
	Estadisticas    ActivityFigures `json:"estadisticas"`
	UltimosIntentos []Attempt       `json:"ultimos_intentos"`
	DatosUtilizados []Row           `json:"datos_utilizados"`
	RangoFechas     DateRange       `json:"rango_fechas"`
}

// ActivityStats covers every activity whose name contains actividad.
func (e *Engine) ActivityStats(actividad string) Envelope {
	return e.run("activity_stats", coreColumns, func() (Envelope, error) {
		if strings.TrimSpace(actividad) == "" {
			return ok("No se proporcionó una actividad válida. Por favor, especifica una actividad.", nil), nil
		}

		rs := where(e.ds.Records, func(r dataset.Record) bool { return containsFold(r.ActividadNombre, actividad) })
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontró la actividad %s", actividad), nil), nil
		}

		var recent []Attempt
		for _, r := range tail(byDate(rs), 5) {
			recent = append(recent, Attempt{
				Fecha:        dataset.FormatDisplay(r.FechaHora),
				Usuario:      r.Usuario,
				Calificacion: r.Calificacion,
			})
		}

		s := summarize(scores(rs))
		return ok("Actividad encontrada", ActivityReport{
			Actividad: rs[0].ActividadNombre,
			Estadisticas: ActivityFigures{
				TotalIntentos:        len(rs),
				PromedioCalificacion: round2(s.Mean),
				MejorCalificacion:    s.Max,
				PeorCalificacion:     s.Min,
			},
			UltimosIntentos: recent,
			DatosUtilizados: rowsOf(rs),
			RangoFechas:     dateRange(rs),
		}), nil
	})
}

type ActivitySummary struct {
	Actividad            string  `json:"actividad"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	MejorCalificacion    float64 `json:"mejor_calificacion"`
	PeorCalificacion     float64 `json:"peor_calificacion"`
	TotalIntentos        int     `json:"total_intentos"`
	UsuariosUnicos       int     `json:"usuarios_unicos"`
	Sucursales           int     `json:"sucursales"`
}

type ActivityRanking struct {
	MasExitosas      []ActivitySummary `json:"mas_exitosas"`
	MasDesafiantes   []ActivitySummary `json:"mas_desafiantes"`
	TotalActividades int               `json:"total_actividades"`
}

func (e *Engine) ActivityRankings() Envelope {
	return e.run("activity_rankings", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		var all []ActivitySummary
		for _, g := range groupBy(e.ds.Records, actividadOf) {
			s := summarize(scores(g.Records))
			all = append(all, ActivitySummary{
				Actividad:            g.Key,
				PromedioCalificacion: round2(s.Mean),
				MejorCalificacion:    s.Max,
				PeorCalificacion:     s.Min,
				TotalIntentos:        s.Count,
				UsuariosUnicos:       distinct(g.Records, usuarioOf),
				Sucursales:           distinct(g.Records, sucursalOf),
			})
		}

		best := append([]ActivitySummary(nil), all...)
		sort.SliceStable(best, func(i, j int) bool { return best[i].PromedioCalificacion > best[j].PromedioCalificacion })
		worst := append([]ActivitySummary(nil), all...)
		sort.SliceStable(worst, func(i, j int) bool { return worst[i].PromedioCalificacion < worst[j].PromedioCalificacion })

		return ok("Rankings de actividades generados", ActivityRanking{
			MasExitosas:      nonNil(head(best, 5)),
			MasDesafiantes:   nonNil(head(worst, 5)),
			TotalActividades: len(all),
		}), nil
	})
}

type ResultSummary struct {
	TotalActividades     int     `json:"total_actividades"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	MejorCalificacion    float64 `json:"mejor_calificacion"`
	UsuariosUnicos       int     `json:"usuarios_unicos"`
}

type DayResults struct {
	Actividades []Row         `json:"actividades"`
	Resumen     ResultSummary `json:"resumen"`
}

// exactWindow is the tolerance around a timestamp that carries a clock time.
const exactWindow = 5 * time.Minute

// ExactActivityResult finds what happened at a date. "primera" and "última"
// (and synonyms) select the oldest and newest record. A date without a clock
// time matches the whole day; with one, a five-minute window either side.
func (e *Engine) ExactActivityResult(fecha, actividad string) Envelope {
	return e.run("exact_activity_result", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		if strings.TrimSpace(fecha) == "" {
			return Envelope{}, apperror.Value("fecha", "Se requiere una fecha")
		}

		rs := e.ds.Records
		if actividad != "" {
			rs = where(rs, func(r dataset.Record) bool { return containsFold(r.ActividadNombre, actividad) })
		}

		relative := text.Normalize(fecha)
		first := text.ContainsAny(relative, "primera", "primer", "inicial")
		last := !first && text.ContainsAny(relative, "ultima", "reciente")
		if first || last {
			if len(rs) == 0 {
				label := actividad
				if label == "" {
					label = "ninguna actividad"
				}
				return ok(fmt.Sprintf("No se encontraron actividades para %s", label), nil), nil
			}
			ordered := byDate(rs)
			pick, message := ordered[0], "Primera actividad encontrada (%s)"
			if last {
				pick, message = ordered[len(ordered)-1], "Última actividad encontrada (%s)"
			}
			hit := rowOf(pick)
			hit.Hora = pick.FechaHora.Format("15:04")
			return ok(fmt.Sprintf(message, hit.Fecha), hit), nil
		}

		at, err := dataset.ParseFlexibleDate(fecha)
		if err != nil {
			return Envelope{}, err
		}

		var match func(dataset.Record) bool
		if dataset.HasClock(at) {
			from, to := at.Add(-exactWindow), at.Add(exactWindow)
			match = func(r dataset.Record) bool { return !r.FechaHora.Before(from) && !r.FechaHora.After(to) }
		} else {
			match = func(r dataset.Record) bool { return dataset.SameDay(r.FechaHora, at) }
		}
		found := where(rs, match)
		if len(found) == 0 {
			return ok(fmt.Sprintf("No se encontraron actividades para %s", dataset.FormatDisplay(at)), nil), nil
		}

		hits := make([]Row, len(found))
		for i, r := range found {
			hits[i] = rowOf(r)
			hits[i].Hora = r.FechaHora.Format("15:04")
		}
		if len(hits) == 1 {
			return ok("Actividad encontrada", hits[0]), nil
		}

		s := summarize(scores(found))
		return ok(fmt.Sprintf("Encontradas %d actividades", len(hits)), DayResults{
			Actividades: hits,
			Resumen: ResultSummary{
				TotalActividades:     len(hits),
				PromedioCalificacion: round2(s.Mean),
				MejorCalificacion:    s.Max,
				UsuariosUnicos:       distinct(found, usuarioOf),
			},
		}), nil
	})
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
