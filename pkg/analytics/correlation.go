package analytics

import (
	"sort"
	"strconv"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

type CategoricalMeans struct {
	PorSucursal  map[string]float64 `json:"por_sucursal"`
	PorActividad map[string]float64 `json:"por_actividad"`
	PorHora      map[string]float64 `json:"por_hora"`
}

type CorrelationInsights struct {
	MejorHora      int    `json:"mejor_hora"`
	MejorSucursal  string `json:"mejor_sucursal"`
	MejorActividad string `json:"mejor_actividad"`
}

type CorrelationReport struct {
	Correlaciones      map[string]map[string]float64 `json:"correlaciones"`
	AnalisisCategorico CategoricalMeans              `json:"analisis_categorico"`
	Insights           CorrelationInsights           `json:"insights"`
}

// CorrelationAnalysis computes the Pearson matrix of score, points and hour
// of day plus per-category averages.
func (e *Engine) CorrelationAnalysis() Envelope {
	return e.run("correlation_analysis", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		rs := e.ds.Records
		if len(rs) == 0 {
			return Envelope{}, apperror.Empty("No hay registros para correlacionar")
		}

		columns := map[string][]float64{
			"calificacion": scores(rs),
			"puntos":       points(rs),
			"hora":         hours(rs),
		}
		matrix := make(map[string]map[string]float64, len(columns))
		for a, xs := range columns {
			matrix[a] = make(map[string]float64, len(columns))
			for b, ys := range columns {
				if a == b {
					matrix[a][b] = 1
					continue
				}
				matrix[a][b] = round3(pearson(xs, ys))
			}
		}

		hourLabel := func(r dataset.Record) string { return strconv.Itoa(r.FechaHora.Hour()) }
		cats := CategoricalMeans{
			PorSucursal:  categoryMeans(rs, sucursalOf),
			PorActividad: categoryMeans(rs, actividadOf),
			PorHora:      categoryMeans(rs, hourLabel),
		}

		bestHour, _ := strconv.Atoi(argmax(cats.PorHora))
		return ok("Análisis de correlaciones completado", CorrelationReport{
			Correlaciones:      matrix,
			AnalisisCategorico: cats,
			Insights: CorrelationInsights{
				MejorHora:      bestHour,
				MejorSucursal:  argmax(cats.PorSucursal),
				MejorActividad: argmax(cats.PorActividad),
			},
		}), nil
	})
}

func hours(rs []dataset.Record) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = float64(r.FechaHora.Hour())
	}
	return out
}

func categoryMeans(rs []dataset.Record, key func(dataset.Record) string) map[string]float64 {
	out := make(map[string]float64)
	for _, g := range groupBy(rs, key) {
		out[g.Key] = round2(mean(scores(g.Records)))
	}
	return out
}

// argmax breaks ties by the smallest key so results are stable.
func argmax(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for _, k := range keys {
		if best == "" || m[k] > m[best] {
			best = k
		}
	}
	return best
}

type CategoryImpact struct {
	Valor    string  `json:"valor"`
	Impacto  float64 `json:"impacto"`
	Muestras int     `json:"muestras"`
}

type ImpactSplit struct {
	Positive []CategoryImpact `json:"positive"`
	Negative []CategoryImpact `json:"negative"`
}

type HourScore struct {
	Hora         int     `json:"hora"`
	Calificacion float64 `json:"calificacion"`
}

type DayScore struct {
	Dia          string  `json:"dia"`
	Calificacion float64 `json:"calificacion"`
}

type BestMoment struct {
	Horas []HourScore `json:"horas"`
	Dias  []DayScore  `json:"dias"`
}

type SuccessFactors struct {
	Correlaciones     map[string]float64     `json:"correlaciones"`
	ImpactoCategorico map[string]ImpactSplit `json:"impacto_categorico"`
	MejorMomento      BestMoment             `json:"mejor_momento"`
	Observaciones     int                    `json:"observaciones"`
}

// minCategorySamples is the smallest group trusted for impact figures.
const minCategorySamples = 5

// weekdays is indexed Monday first.
var weekdays = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// ActivitySuccessFactors correlates score with points, time of day, weekday,
// month and user experience (prior attempts), and measures how far each
// branch and activity sits from the global average.
func (e *Engine) ActivitySuccessFactors() Envelope {
	return e.run("activity_success_factors", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		rs := e.ds.Records
		if len(rs) == 0 {
			return Envelope{}, apperror.Empty("No hay registros para analizar")
		}

		weekday := make([]float64, len(rs))
		month := make([]float64, len(rs))
		experience := make([]float64, len(rs))
		attempts := make(map[string]int)
		for i, r := range rs {
			weekday[i] = float64(mondayIndex(r))
			month[i] = float64(r.FechaHora.Month())
			experience[i] = float64(attempts[r.Usuario])
			attempts[r.Usuario]++
		}

		y := scores(rs)
		correlations := map[string]float64{
			"Puntos_Totales":      round3(pearson(y, points(rs))),
			"hora_dia":            round3(pearson(y, hours(rs))),
			"dia_semana":          round3(pearson(y, weekday)),
			"mes":                 round3(pearson(y, month)),
			"experiencia_usuario": round3(pearson(y, experience)),
		}

		global := mean(y)
		impact := map[string]ImpactSplit{
			dataset.ColSucursal:  categoryImpact(rs, sucursalOf, global),
			dataset.ColActividad: categoryImpact(rs, actividadOf, global),
		}

		var best BestMoment
		byHour := groupBy(rs, func(r dataset.Record) string { return strconv.Itoa(r.FechaHora.Hour()) })
		sort.SliceStable(byHour, func(i, j int) bool { return mean(scores(byHour[i].Records)) > mean(scores(byHour[j].Records)) })
		for _, g := range head(byHour, 3) {
			h, _ := strconv.Atoi(g.Key)
			best.Horas = append(best.Horas, HourScore{Hora: h, Calificacion: round2(mean(scores(g.Records)))})
		}
		byDay := groupBy(rs, func(r dataset.Record) string { return weekdays[mondayIndex(r)] })
		sort.SliceStable(byDay, func(i, j int) bool { return mean(scores(byDay[i].Records)) > mean(scores(byDay[j].Records)) })
		for _, g := range head(byDay, 3) {
			best.Dias = append(best.Dias, DayScore{Dia: g.Key, Calificacion: round2(mean(scores(g.Records)))})
		}

		return ok("Análisis de factores de éxito en actividades", SuccessFactors{
			Correlaciones:     correlations,
			ImpactoCategorico: impact,
			MejorMomento:      best,
			Observaciones:     len(rs),
		}), nil
	})
}

func mondayIndex(r dataset.Record) int {
	return (int(r.FechaHora.Weekday()) + 6) % 7
}

func categoryImpact(rs []dataset.Record, key func(dataset.Record) string, global float64) ImpactSplit {
	var all []CategoryImpact
	for _, g := range groupBy(rs, key) {
		if len(g.Records) < minCategorySamples {
			continue
		}
		var pct float64
		if global != 0 {
			pct = (mean(scores(g.Records)) - global) / global * 100
		}
		all = append(all, CategoryImpact{Valor: g.Key, Impacto: round2(pct), Muestras: len(g.Records)})
	}

	pos := append([]CategoryImpact(nil), all...)
	sort.SliceStable(pos, func(i, j int) bool { return pos[i].Impacto > pos[j].Impacto })
	neg := append([]CategoryImpact(nil), all...)
	sort.SliceStable(neg, func(i, j int) bool { return neg[i].Impacto < neg[j].Impacto })
	return ImpactSplit{Positive: nonNil(head(pos, 3)), Negative: nonNil(head(neg, 3))}
}
