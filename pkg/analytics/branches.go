package analytics

import (
	"fmt"
	"sort"
	"strings"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

type BranchMetrics struct {
	TotalActividades     int     `json:"total_actividades"`
	UsuariosActivos      int     `json:"usuarios_activos"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	MejorCalificacion    float64 `json:"mejor_calificacion"`
}

type BranchReport struct {
	Sucursal             string        `json:"sucursal"`
	Metricas             BranchMetrics `json:"metricas"`
	ActividadesRecientes []Row         `json:"actividades_recientes"`
	DatosUtilizados      []Row         `json:"datos_utilizados"`
}

// BranchPerformance reports on every branch whose name contains sucursal.
func (e *Engine) BranchPerformance(sucursal string) Envelope {
	return e.run("branch_performance", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		if strings.TrimSpace(sucursal) == "" {
			return Envelope{}, apperror.Value("sucursal", "Se requiere especificar una sucursal")
		}

		rs := byDate(where(e.ds.Records, func(r dataset.Record) bool {
			return r.Sucursal != "" && containsFold(r.Sucursal, sucursal)
		}))
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontró la sucursal %s", sucursal), nil), nil
		}

		s := summarize(scores(rs))
		return ok("Sucursal encontrada", BranchReport{
			Sucursal: sucursal,
			Metricas: BranchMetrics{
				TotalActividades:     len(rs),
				UsuariosActivos:      distinct(rs, usuarioOf),
				PromedioCalificacion: round2(s.Mean),
				MejorCalificacion:    s.Max,
			},
			ActividadesRecientes: rowsOf(tail(rs, 10)),
			DatosUtilizados:      rowsOf(rs),
		}), nil
	})
}

type BranchSummary struct {
	Sucursal             string  `json:"sucursal"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	TotalActividades     int     `json:"total_actividades"`
	UsuariosUnicos       int     `json:"usuarios_unicos"`
	PuntosTotales        float64 `json:"puntos_totales"`
	MejorCalificacion    float64 `json:"mejor_calificacion"`
	PeorCalificacion     float64 `json:"peor_calificacion"`
}

type BranchRankingLists struct {
	PorCalificacion       []BranchSummary `json:"por_calificacion"`
	PorCalificacionPeores []BranchSummary `json:"por_calificacion_peores"`
	PorActividad          []BranchSummary `json:"por_actividad"`
	PorPuntos             []BranchSummary `json:"por_puntos"`
}

type BranchRanking struct {
	Rankings        BranchRankingLists `json:"rankings"`
	MejorSucursal   BranchSummary      `json:"mejor_sucursal"`
	PeorSucursal    BranchSummary      `json:"peor_sucursal"`
	TotalSucursales int                `json:"total_sucursales"`
}

func (e *Engine) branchSummaries() []BranchSummary {
	var out []BranchSummary
	for _, g := range groupBy(e.ds.Records, sucursalOf) {
		s := summarize(scores(g.Records))
		out = append(out, BranchSummary{
			Sucursal:             g.Key,
			PromedioCalificacion: round2(s.Mean),
			TotalActividades:     s.Count,
			UsuariosUnicos:       distinct(g.Records, usuarioOf),
			PuntosTotales:        summarize(points(g.Records)).Sum,
			MejorCalificacion:    s.Max,
			PeorCalificacion:     s.Min,
		})
	}
	return out
}

func sortedBranches(in []BranchSummary, less func(a, b BranchSummary) bool) []BranchSummary {
	out := append([]BranchSummary(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// BranchRankings orders branches by average score, activity volume and points.
func (e *Engine) BranchRankings() Envelope {
	return e.run("branch_rankings", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		branches := e.branchSummaries()
		if len(branches) == 0 {
			return Envelope{}, apperror.Empty("No hay sucursales con actividades registradas")
		}

		best := sortedBranches(branches, func(a, b BranchSummary) bool { return a.PromedioCalificacion > b.PromedioCalificacion })
		worst := sortedBranches(branches, func(a, b BranchSummary) bool { return a.PromedioCalificacion < b.PromedioCalificacion })

		return ok("Rankings de sucursales generados", BranchRanking{
			Rankings: BranchRankingLists{
				PorCalificacion:       head(best, 5),
				PorCalificacionPeores: head(worst, 5),
				PorActividad: head(sortedBranches(branches, func(a, b BranchSummary) bool {
					return a.TotalActividades > b.TotalActividades
				}), 5),
				PorPuntos: head(sortedBranches(branches, func(a, b BranchSummary) bool {
					return a.PuntosTotales > b.PuntosTotales
				}), 5),
			},
			MejorSucursal:   best[0],
			PeorSucursal:    worst[0],
			TotalSucursales: len(branches),
		}), nil
	})
}

type BranchStat struct {
	Sucursal             string  `json:"sucursal"`
	TotalActividades     int     `json:"total_actividades"`
	UsuariosUnicos       int     `json:"usuarios_unicos"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
	PuntosTotales        float64 `json:"puntos_totales"`
}

type GlobalBranchStats struct {
	TotalSucursales      int     `json:"total_sucursales"`
	TotalActividades     int     `json:"total_actividades"`
	TotalUsuarios        int     `json:"total_usuarios"`
	PromedioCalificacion float64 `json:"promedio_calificacion"`
}

type BestBranches struct {
	PorCalificacion BranchStat `json:"por_calificacion"`
	PorActividad    BranchStat `json:"por_actividad"`
	PorPuntos       BranchStat `json:"por_puntos"`
}

type BranchOverview struct {
	EstadisticasGlobales GlobalBranchStats `json:"estadisticas_globales"`
	MejoresSucursales    BestBranches      `json:"mejores_sucursales"`
	StatsPorSucursal     []BranchStat      `json:"stats_por_sucursal"`
}

// BranchStats gives the global picture plus the leader on each metric.
func (e *Engine) BranchStats() Envelope {
	return e.run("branch_stats", withColumns(dataset.ColSucursal), func() (Envelope, error) {
		summaries := e.branchSummaries()
		if len(summaries) == 0 {
			return Envelope{}, apperror.Empty("No hay sucursales con actividades registradas")
		}

		stats := make([]BranchStat, len(summaries))
		total := 0
		for i, s := range summaries {
			stats[i] = BranchStat{
				Sucursal:             s.Sucursal,
				TotalActividades:     s.TotalActividades,
				UsuariosUnicos:       s.UsuariosUnicos,
				PromedioCalificacion: s.PromedioCalificacion,
				PuntosTotales:        s.PuntosTotales,
			}
			total += s.TotalActividades
		}

		leader := func(better func(a, b BranchStat) bool) BranchStat {
			top := stats[0]
			for _, s := range stats[1:] {
				if better(s, top) {
					top = s
				}
			}
			return top
		}

		return ok(fmt.Sprintf("Análisis de %d sucursales", len(stats)), BranchOverview{
			EstadisticasGlobales: GlobalBranchStats{
				TotalSucursales:      len(stats),
				TotalActividades:     total,
				TotalUsuarios:        distinct(e.ds.Records, usuarioOf),
				PromedioCalificacion: round2(mean(scores(e.ds.Records))),
			},
			MejoresSucursales: BestBranches{
				PorCalificacion: leader(func(a, b BranchStat) bool { return a.PromedioCalificacion > b.PromedioCalificacion }),
				PorActividad:    leader(func(a, b BranchStat) bool { return a.TotalActividades > b.TotalActividades }),
				PorPuntos:       leader(func(a, b BranchStat) bool { return a.PuntosTotales > b.PuntosTotales }),
			},
			StatsPorSucursal: stats,
		}), nil
	})
}
