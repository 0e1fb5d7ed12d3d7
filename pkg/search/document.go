package search

import (
	"fmt"
	"sort"
	"strings"

	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/dataset"
)

type Kind string

const (
	KindActivity     Kind = "activity_detail"
	KindUser         Kind = "user_summary"
	KindBranch       Kind = "branch_summary"
	KindGeneral      Kind = "general_summary"
	KindCorrelations Kind = "correlation_insights"
)

// Document is one indexed unit of text with the metadata the filters read.
type Document struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"document_type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// BuildDocuments turns the dataset into one document per record, per user
// and per branch, plus a general summary and a correlation digest.
func BuildDocuments(ds *dataset.Dataset) []Document {
	if ds == nil || ds.Len() == 0 {
		return nil
	}

	docs := make([]Document, 0, ds.Len()+8)
	for i, r := range ds.Records {
		docs = append(docs, activityDocument(i, r))
	}
	docs = append(docs, userDocuments(ds.Records)...)
	docs = append(docs, branchDocuments(ds.Records)...)

	engine := analytics.NewEngine(ds)
	if doc, ok := generalDocument(engine); ok {
		docs = append(docs, doc)
	}
	if doc, ok := correlationDocument(engine); ok {
		docs = append(docs, doc)
	}
	return docs
}

func activityDocument(i int, r dataset.Record) Document {
	var b strings.Builder
	b.WriteString("Actividad Específica:\n")
	fmt.Fprintf(&b, "Nombre: %s\n", r.ActividadNombre)
	fmt.Fprintf(&b, "Fecha y Hora: %s\n", r.FechaHora.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Caso de Uso: %s\n", r.CasoDeUso)
	fmt.Fprintf(&b, "Calificación: %g\n", r.Calificacion)
	fmt.Fprintf(&b, "Puntos Totales: %g\n", r.PuntosTotales)
	fmt.Fprintf(&b, "Usuario: %s (%s)\n", r.Usuario, r.UsuarioNombre)
	fmt.Fprintf(&b, "Sucursal: %s\n", orNone(r.Sucursal))

	var detail []string
	for _, p := range r.Detalle {
		if p.Info == "" || p.Puntos == "" || p.Info == dataset.NotApplicable || p.Puntos == dataset.NotApplicable {
			continue
		}
		detail = append(detail, fmt.Sprintf("- Punto %d: %s (Puntos: %s)", p.Index, p.Info, p.Puntos))
	}
	if len(detail) > 0 {
		b.WriteString("\nDetalles de Puntuación:\n")
		b.WriteString(strings.Join(detail, "\n"))
		b.WriteString("\n")
	}

	return Document{
		ID:   fmt.Sprintf("activity-%d", i),
		Kind: KindActivity,
		Text: b.String(),
		Metadata: map[string]any{
			"actividad":    r.ActividadNombre,
			"fecha":        r.FechaHora.Format("2006-01-02 15:04:05"),
			"usuario":      r.Usuario,
			"sucursal":     r.Sucursal,
			"calificacion": r.Calificacion,
		},
	}
}

type tally struct {
	name       string
	count      int
	scoreSum   float64
	pointsSum  float64
	users      map[string]bool
	branches   []string
	branchSeen map[string]bool
}

func (t *tally) add(r dataset.Record) {
	t.count++
	t.scoreSum += r.Calificacion
	t.pointsSum += r.PuntosTotales
	t.users[r.Usuario] = true
	if r.Sucursal != "" && !t.branchSeen[r.Sucursal] {
		t.branchSeen[r.Sucursal] = true
		t.branches = append(t.branches, r.Sucursal)
	}
}

func (t *tally) mean() float64 {
	if t.count == 0 {
		return 0
	}
	return t.scoreSum / float64(t.count)
}

// tallies groups records by key in first-appearance order, skipping empty keys.
func tallies(rs []dataset.Record, key func(dataset.Record) string) ([]string, map[string]*tally) {
	var order []string
	byKey := make(map[string]*tally)
	for _, r := range rs {
		k := key(r)
		if k == "" {
			continue
		}
		t, seen := byKey[k]
		if !seen {
			t = &tally{name: r.UsuarioNombre, users: map[string]bool{}, branchSeen: map[string]bool{}}
			byKey[k] = t
			order = append(order, k)
		}
		t.add(r)
	}
	return order, byKey
}

func userDocuments(rs []dataset.Record) []Document {
	order, byUser := tallies(rs, func(r dataset.Record) string { return r.Usuario })
	docs := make([]Document, 0, len(order))
	for _, u := range order {
		t := byUser[u]
		branches := "No especificadas"
		if len(t.branches) > 0 {
			branches = strings.Join(t.branches, ", ")
		}
		text := fmt.Sprintf("Perfil de Usuario: %s\nNombre Completo: %s\n\nResumen:\n"+
			"- Total Actividades: %d\n- Calificación Promedio: %.2f\n- Puntos Totales: %g\n- Sucursales: %s\n",
			u, t.name, t.count, t.mean(), t.pointsSum, branches)
		docs = append(docs, Document{
			ID:   "user-" + u,
			Kind: KindUser,
			Text: text,
			Metadata: map[string]any{
				"usuario":               u,
				"total_actividades":     t.count,
				"calificacion_promedio": t.mean(),
				"puntos_totales":        t.pointsSum,
				"sucursales":            t.branches,
			},
		})
	}
	return docs
}

func branchDocuments(rs []dataset.Record) []Document {
	order, byBranch := tallies(rs, func(r dataset.Record) string { return r.Sucursal })
	docs := make([]Document, 0, len(order))
	for _, s := range order {
		t := byBranch[s]
		text := fmt.Sprintf("Análisis de Sucursal: %s\n\nMétricas:\n"+
			"- Total Usuarios: %d\n- Total Actividades: %d\n- Calificación Promedio: %.2f\n- Puntos Totales: %g\n",
			s, len(t.users), t.count, t.mean(), t.pointsSum)
		docs = append(docs, Document{
			ID:   "branch-" + s,
			Kind: KindBranch,
			Text: text,
			Metadata: map[string]any{
				"sucursal":              s,
				"total_usuarios":        len(t.users),
				"total_actividades":     t.count,
				"calificacion_promedio": t.mean(),
				"puntos_totales":        t.pointsSum,
			},
		})
	}
	return docs
}

func generalDocument(engine *analytics.Engine) (Document, bool) {
	env := engine.GeneralStats()
	figures, ok := env.Data.(analytics.GeneralFigures)
	if env.Failed() || !ok {
		return Document{}, false
	}
	text := fmt.Sprintf("Resumen General del Dataset Educativo:\n\n"+
		"Este dataset contiene información sobre actividades educativas con %d usuarios distribuidos en %d sucursales, "+
		"con un total de %d actividades registradas entre %s y %s.\n\n"+
		"La calificación promedio general es %.2f.\n\n"+
		"Los datos incluyen usuarios, actividades, calificaciones, puntos obtenidos y las sucursales donde se realizaron.\n",
		figures.TotalUsuarios, figures.TotalSucursales, figures.TotalActividades,
		figures.PrimeraActividad, figures.UltimaActividad, figures.PromedioGeneral)
	return Document{
		ID:   "general",
		Kind: KindGeneral,
		Text: text,
		Metadata: map[string]any{
			"total_users":      figures.TotalUsuarios,
			"total_branches":   figures.TotalSucursales,
			"total_activities": figures.TotalActividades,
			"avg_score":        figures.PromedioGeneral,
		},
	}, true
}

func correlationDocument(engine *analytics.Engine) (Document, bool) {
	env := engine.CorrelationAnalysis()
	report, ok := env.Data.(analytics.CorrelationReport)
	if env.Failed() || !ok {
		return Document{}, false
	}
	score := report.Correlaciones["calificacion"]
	text := fmt.Sprintf("Principales Correlaciones en el Dataset:\n\n"+
		"Correlación entre Calificación y Puntos: %.3f\n"+
		"Correlación entre Calificación y Hora del día: %.3f\n\n"+
		"La hora del día con mejor rendimiento promedio: %d\n"+
		"La sucursal con mejor rendimiento promedio: %s\n"+
		"La actividad con mejor rendimiento promedio: %s\n",
		score["puntos"], score["hora"], report.Insights.MejorHora,
		orNone(report.Insights.MejorSucursal), orNone(report.Insights.MejorActividad))

	keys := make([]string, 0, len(report.Correlaciones))
	for k := range report.Correlaciones {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Document{
		ID:   "correlations",
		Kind: KindCorrelations,
		Text: text,
		Metadata: map[string]any{
			"variables":     keys,
			"correlaciones": report.Correlaciones,
		},
	}, true
}

func orNone(s string) string {
	if s == "" {
		return "No especificada"
	}
	return s
}
