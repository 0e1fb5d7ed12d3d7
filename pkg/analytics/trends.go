package analytics

import (
	"fmt"
	"sort"
	"time"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

// periodLabel buckets t by hour, day, ISO week or month. Labels sort
// chronologically as strings. Unknown periods fall back to month.
func periodLabel(t time.Time, periodo string) string {
	switch periodo {
	case "hour":
		return t.Format("2006-01-02 15:00")
	case "day":
		return t.Format("2006-01-02")
	case "week":
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	default:
		return t.Format("2006-01")
	}
}

type TrendPoint struct {
	Periodo       string  `json:"periodo"`
	Usuarios      int     `json:"usuarios"`
	Actividades   int     `json:"actividades"`
	CalifMean     float64 `json:"calif_mean"`
	CalifMax      float64 `json:"calif_max"`
	CalifMin      float64 `json:"calif_min"`
	CalifStd      float64 `json:"calif_std"`
	PuntosTotales float64 `json:"puntos_totales"`
}

type TrendOverview struct {
	TotalRegistros  int     `json:"total_registros"`
	PromedioGeneral float64 `json:"promedio_general"`
	Tendencia       string  `json:"tendencia"`
}

type TrendReport struct {
	Tendencias        []TrendPoint  `json:"tendencias"`
	MetricasGenerales TrendOverview `json:"metricas_generales"`
	PeriodoAnalizado  DateRange     `json:"periodo_analizado"`
}

// TrendFilter narrows TrendAnalysis. Each field is a substring match.
type TrendFilter struct {
	Usuario   string
	Actividad string
	Sucursal  string
	Periodo   string
}

// TrendAnalysis groups the filtered records per period. The direction comes
// from the correlation between score and position in the dataset.
func (e *Engine) TrendAnalysis(f TrendFilter) Envelope {
	return e.run("trend_analysis", withColumns(dataset.ColUsuarioNombre, dataset.ColSucursal), func() (Envelope, error) {
		if f.Periodo == "" {
			f.Periodo = "day"
		}

		var rs []dataset.Record
		var order []float64
		for i, r := range e.ds.Records {
			if f.Usuario != "" && !looseUserMatcher(f.Usuario)(r) {
				continue
			}
			if f.Actividad != "" && !containsFold(r.ActividadNombre, f.Actividad) {
				continue
			}
			if f.Sucursal != "" && (r.Sucursal == "" || !containsFold(r.Sucursal, f.Sucursal)) {
				continue
			}
			rs = append(rs, r)
			order = append(order, float64(i))
		}
		if len(rs) == 0 {
			return ok("No se encontraron datos para analizar", nil), nil
		}

		groups := groupBy(rs, func(r dataset.Record) string { return periodLabel(r.FechaHora, f.Periodo) })
		sortGroupsByKey(groups)
		series := make([]TrendPoint, 0, len(groups))
		for _, g := range groups {
			s := summarize(scores(g.Records))
			series = append(series, TrendPoint{
				Periodo:       g.Key,
				Usuarios:      distinct(g.Records, usuarioOf),
				Actividades:   s.Count,
				CalifMean:     round2(s.Mean),
				CalifMax:      s.Max,
				CalifMin:      s.Min,
				CalifStd:      round2(s.Std),
				PuntosTotales: round2(summarize(points(g.Records)).Sum),
			})
		}

		direction := "negativa"
		if pearson(scores(rs), order) > 0 {
			direction = "positiva"
		}
		return ok(fmt.Sprintf("Análisis de tendencias por %s completado", f.Periodo), TrendReport{
			Tendencias: series,
			MetricasGenerales: TrendOverview{
				TotalRegistros:  len(rs),
				PromedioGeneral: round2(mean(scores(rs))),
				Tendencia:       direction,
			},
			PeriodoAnalizado: dateRange(rs),
		}), nil
	})
}

type PeriodSummary struct {
	Periodo     string  `json:"periodo"`
	Promedio    float64 `json:"promedio"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	Actividades int     `json:"actividades"`
	Usuarios    int     `json:"usuarios"`
	Sucursales  int     `json:"sucursales"`
}

type PeriodComparison struct {
	Metrica         string          `json:"metrica"`
	MejoresPeriodos []PeriodSummary `json:"mejores_periodos"`
	PeoresPeriodos  []PeriodSummary `json:"peores_periodos"`
}

// TimePeriodAnalysis finds the three best and worst periods for a metric.
// "hour" groups by hour of day across all dates.
func (e *Engine) TimePeriodAnalysis(periodo, metrica string) Envelope {
	return e.run("time_period_analysis", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		if periodo == "" {
			periodo = "day"
		}
		if metrica == "" {
			metrica = "calificacion"
		}

		var value func(dataset.Record) float64
		switch metrica {
		case "calificacion":
			value = func(r dataset.Record) float64 { return r.Calificacion }
		case "puntos":
			value = func(r dataset.Record) float64 { return r.PuntosTotales }
		default:
			return Envelope{}, apperror.Value("metrica", "Métrica no válida: %s", metrica)
		}

		label := func(r dataset.Record) string { return periodLabel(r.FechaHora, periodo) }
		if periodo == "hour" {
			label = func(r dataset.Record) string { return fmt.Sprintf("%02d:00", r.FechaHora.Hour()) }
		}

		var periods []PeriodSummary
		for _, g := range groupBy(e.ds.Records, label) {
			xs := make([]float64, len(g.Records))
			for i, r := range g.Records {
				xs[i] = value(r)
			}
			s := summarize(xs)
			periods = append(periods, PeriodSummary{
				Periodo:     g.Key,
				Promedio:    round2(s.Mean),
				Max:         round2(s.Max),
				Min:         round2(s.Min),
				Actividades: s.Count,
				Usuarios:    distinct(g.Records, usuarioOf),
				Sucursales:  distinct(g.Records, sucursalOf),
			})
		}
		sort.SliceStable(periods, func(i, j int) bool { return periods[i].Periodo < periods[j].Periodo })

		best := append([]PeriodSummary(nil), periods...)
		sort.SliceStable(best, func(i, j int) bool { return best[i].Promedio > best[j].Promedio })
		worst := append([]PeriodSummary(nil), periods...)
		sort.SliceStable(worst, func(i, j int) bool { return worst[i].Promedio < worst[j].Promedio })

		return ok(fmt.Sprintf("Análisis por %s completado", periodo), PeriodComparison{
			Metrica:         metrica,
			MejoresPeriodos: nonNil(head(best, 3)),
			PeoresPeriodos:  nonNil(head(worst, 3)),
		}), nil
	})
}

type PeriodActivity struct {
	Periodo              string  `json:"periodo"`
	Usuarios             int     `json:"usuarios"`
	Actividades          int     `json:"actividades"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
}

// TimeAnalysis returns the five most recent periods of activity.
func (e *Engine) TimeAnalysis(periodo string) Envelope {
	return e.run("time_analysis", coreColumns, func() (Envelope, error) {
		if periodo == "" {
			periodo = "day"
		}
		groups := groupBy(e.ds.Records, func(r dataset.Record) string { return periodLabel(r.FechaHora, periodo) })
		sortGroupsByKey(groups)

		out := []PeriodActivity{}
		for _, g := range tail(groups, 5) {
			out = append(out, PeriodActivity{
				Periodo:              g.Key,
				Usuarios:             distinct(g.Records, usuarioOf),
				Actividades:          len(g.Records),
				PromedioCalificacion: round2(mean(scores(g.Records))),
			})
		}
		return ok(fmt.Sprintf("Análisis por %s completado", periodo), out), nil
	})
}
