package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"rolplay-assistant-be/pkg/dataset"
)

// minProgressionRecords is the smallest history worth a trend line.
const minProgressionRecords = 3

type WeekBucket struct {
	Semana      string  `json:"semana"`
	Promedio    float64 `json:"promedio"`
	Maximo      float64 `json:"maximo"`
	Actividades int     `json:"actividades"`
	Puntos      float64 `json:"puntos"`

	end time.Time
}

type Trend struct {
	Direccion        string  `json:"direccion"`
	Velocidad        string  `json:"velocidad"`
	ValorPendiente   float64 `json:"valor_pendiente"`
	PrimeraSemana    float64 `json:"primera_semana"`
	UltimaSemana     float64 `json:"ultima_semana"`
	MejoraPorcentual float64 `json:"mejora_porcentual"`
}

type MonthWindow struct {
	Actividades int     `json:"actividades"`
	Promedio    float64 `json:"promedio"`
	Mejor       float64 `json:"mejor"`
	Peor        float64 `json:"peor"`
	FechaInicio string  `json:"fecha_inicio"`
	FechaFin    string  `json:"fecha_fin"`
}

type Progression struct {
	Usuario          string       `json:"usuario"`
	Nombre           string       `json:"nombre"`
	MetricaAnalizada string       `json:"metrica_analizada"`
	TotalActividades int          `json:"total_actividades"`
	Tendencia        Trend        `json:"tendencia"`
	UltimoMes        MonthWindow  `json:"ultimo_mes"`
	DatosSemanales   []WeekBucket `json:"datos_semanales"`
}

// UserProgression fits a line through weekly buckets (weeks end on Sunday)
// of the user's average score, or of summed points when metrica is "puntos".
// Weeks without activity are skipped.
func (e *Engine) UserProgression(usuario, metrica string) Envelope {
	return e.run("user_progression", withColumns(dataset.ColUsuarioNombre), func() (Envelope, error) {
		if strings.TrimSpace(usuario) == "" {
			return ok("Se requiere especificar un usuario para analizar su progresión", nil), nil
		}
		if metrica == "" {
			metrica = "calificacion"
		}

		rs := byDate(where(e.ds.Records, userMatcher(usuario)))
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontró al usuario %s", usuario), nil), nil
		}
		if len(rs) < minProgressionRecords {
			return ok(fmt.Sprintf(
				"Datos insuficientes para analizar progresión. Se requieren al menos %d actividades, pero el usuario %s solo tiene %d.",
				minProgressionRecords, usuario, len(rs)), nil), nil
		}

		weeks := weeklyBuckets(rs)
		values := make([]float64, len(weeks))
		for i, w := range weeks {
			if metrica == "puntos" {
				values[i] = w.Puntos
			} else {
				values[i] = w.Promedio
			}
		}

		b := slope(values)
		first, last := values[0], values[len(values)-1]
		trend := Trend{
			Direccion:      direction(b),
			Velocidad:      speed(b),
			ValorPendiente: round2(b),
			PrimeraSemana:  round2(first),
			UltimaSemana:   round2(last),
		}
		if first != 0 {
			trend.MejoraPorcentual = round2((last/first - 1) * 100)
		}

		latest := rs[len(rs)-1].FechaHora
		recent := where(rs, func(r dataset.Record) bool { return !r.FechaHora.Before(latest.AddDate(0, -1, 0)) })
		rsum := summarize(scores(recent))

		p := Progression{
			Usuario:          rs[0].Usuario,
			Nombre:           rs[0].UsuarioNombre,
			MetricaAnalizada: metrica,
			TotalActividades: len(rs),
			Tendencia:        trend,
			UltimoMes: MonthWindow{
				Actividades: rsum.Count,
				Promedio:    round2(rsum.Mean),
				Mejor:       rsum.Max,
				Peor:        rsum.Min,
				FechaInicio: recent[0].FechaHora.Format("02/01/06"),
				FechaFin:    latest.Format("02/01/06"),
			},
			DatosSemanales: weeks,
		}
		return ok(fmt.Sprintf("Análisis de progresión para %s", p.Nombre), p), nil
	})
}

func weeklyBuckets(rs []dataset.Record) []WeekBucket {
	byWeek := make(map[time.Time][]dataset.Record)
	for _, r := range rs {
		end := weekEnding(r.FechaHora)
		byWeek[end] = append(byWeek[end], r)
	}

	out := make([]WeekBucket, 0, len(byWeek))
	for end, group := range byWeek {
		s := summarize(scores(group))
		out = append(out, WeekBucket{
			Semana:      end.Format("02/01/06"),
			Promedio:    round2(s.Mean),
			Maximo:      s.Max,
			Actividades: s.Count,
			Puntos:      summarize(points(group)).Sum,
			end:         end,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].end.Before(out[j].end) })
	return out
}

// weekEnding returns the Sunday closing t's week, at midnight.
func weekEnding(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
}

func direction(b float64) string {
	switch {
	case b > 0:
		return "positiva"
	case b < 0:
		return "negativa"
	default:
		return "estable"
	}
}

func speed(b float64) string {
	switch abs := math.Abs(b); {
	case abs > 2:
		return "rápida"
	case abs > 0.5:
		return "moderada"
	default:
		return "lenta"
	}
}
