package analytics

import (
	"fmt"
	"sort"
	"strings"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

type UserSummary struct {
	TotalActividades     int      `json:"total_actividades"`
	PromedioCalificacion float64  `json:"promedio_calificacion"`
	MejorCalificacion    float64  `json:"mejor_calificacion"`
	PeorCalificacion     float64  `json:"peor_calificacion"`
	TotalPuntos          float64  `json:"total_puntos"`
	SucursalesDistintas  int      `json:"sucursales_distintas"`
	Sucursales           []string `json:"sucursales"`
}

type BranchBreakdown struct {
	Sucursal    string  `json:"sucursal"`
	Promedio    float64 `json:"promedio"`
	Actividades int     `json:"actividades"`
	Puntos      float64 `json:"puntos"`
}

type ActivityWindow struct {
	PrimeraActividad string `json:"primera_actividad"`
	UltimaActividad  string `json:"ultima_actividad"`
}

type UserHistory struct {
	Usuario                string            `json:"usuario"`
	Nombre                 string            `json:"nombre"`
	Resumen                UserSummary       `json:"resumen"`
	UltimasActividades     []Row             `json:"ultimas_actividades"`
	EstadisticasSucursales []BranchBreakdown `json:"estadisticas_sucursales"`
	DatosUtilizados        []Row             `json:"datos_utilizados"`
	RangoFechas            ActivityWindow    `json:"rango_fechas"`
}

// UserActivityHistory summarizes every attempt of one user.
func (e *Engine) UserActivityHistory(usuario string) Envelope {
	return e.run("user_activity_history", withColumns(dataset.ColUsuarioNombre), func() (Envelope, error) {
		if strings.TrimSpace(usuario) == "" {
			return Envelope{}, apperror.Value("usuario", "Se requiere especificar un usuario")
		}

		rs := byDate(where(e.ds.Records, userMatcher(usuario)))
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontró al usuario %s", usuario), nil), nil
		}

		s := summarize(scores(rs))
		branches := distinctValues(rs, sucursalOf)
		if branches == nil {
			branches = []string{}
		}

		h := UserHistory{
			Usuario: rs[0].Usuario,
			Nombre:  rs[0].UsuarioNombre,
			Resumen: UserSummary{
				TotalActividades:     len(rs),
				PromedioCalificacion: round2(s.Mean),
				MejorCalificacion:    s.Max,
				PeorCalificacion:     s.Min,
				TotalPuntos:          summarize(points(rs)).Sum,
				SucursalesDistintas:  len(branches),
				Sucursales:           branches,
			},
			UltimasActividades: rowsOf(tail(rs, 5)),
			DatosUtilizados:    rowsOf(rs),
			RangoFechas: ActivityWindow{
				PrimeraActividad: dataset.FormatDisplay(rs[0].FechaHora),
				UltimaActividad:  dataset.FormatDisplay(rs[len(rs)-1].FechaHora),
			},
		}

		for _, g := range groupBy(rs, func(r dataset.Record) string { return branchLabel(r.Sucursal) }) {
			h.EstadisticasSucursales = append(h.EstadisticasSucursales, BranchBreakdown{
				Sucursal:    g.Key,
				Promedio:    round2(mean(scores(g.Records))),
				Actividades: len(g.Records),
				Puntos:      summarize(points(g.Records)).Sum,
			})
		}

		return ok(fmt.Sprintf("Usuario encontrado con %d actividades", len(rs)), h), nil
	})
}

type RankedUser struct {
	Posicion              int     `json:"posicion"`
	UsuariosMismaPosicion int     `json:"usuarios_misma_posicion"`
	Usuario               string  `json:"usuario"`
	Nombre                string  `json:"nombre"`
	Promedio              float64 `json:"promedio"`
	MejorCalif            float64 `json:"mejor_calif"`
	PeorCalif             float64 `json:"peor_calif"`
	Desviacion            float64 `json:"desviacion"`
	TotalActividades      int     `json:"total_actividades"`
	PuntosTotales         float64 `json:"puntos_totales"`
	Sucursales            int     `json:"sucursales"`
	ActividadesDiferentes int     `json:"actividades_diferentes"`
	ValorMetrica          float64 `json:"valor_metrica"`
}

type IndividualScore struct {
	Usuario      string  `json:"usuario"`
	Nombre       string  `json:"nombre"`
	Calificacion float64 `json:"calificacion"`
	Actividad    string  `json:"actividad"`
}

type UserRanking struct {
	Ranking                    []RankedUser     `json:"ranking"`
	MetricaUtilizada           string           `json:"metrica_utilizada"`
	UsuariosExcluidos          int              `json:"usuarios_excluidos"`
	MinActividades             int              `json:"min_actividades"`
	PeorCalificacionIndividual *IndividualScore `json:"peor_calificacion_individual,omitempty"`
}

// RankingQuery narrows UserRankings. Zero values select the general ranking,
// descending, over users with at least one activity.
type RankingQuery struct {
	Tipo          string
	Sucursal      string
	Actividad     string
	Order         string
	MinActivities int
}

var rankingMetrics = map[string]string{
	"general":     "promedio",
	"puntos":      "puntos_totales",
	"actividades": "total_actividades",
}

// UserRankings ranks users by average score, total points or activity count.
// Ties share the lowest position.
func (e *Engine) UserRankings(q RankingQuery) Envelope {
	return e.run("user_rankings", withColumns(dataset.ColUsuarioNombre, dataset.ColSucursal), func() (Envelope, error) {
		if q.Tipo == "" {
			q.Tipo = "general"
		}
		metric, known := rankingMetrics[q.Tipo]
		if !known {
			return Envelope{}, apperror.Value("tipo", "Tipo de ranking no válido: %s", q.Tipo)
		}
		asc := strings.EqualFold(q.Order, "asc")
		if q.MinActivities < 1 {
			q.MinActivities = 1
		}

		rs := e.ds.Records
		if q.Sucursal != "" {
			rs = where(rs, func(r dataset.Record) bool { return strings.EqualFold(r.Sucursal, q.Sucursal) })
		}
		if q.Actividad != "" {
			rs = where(rs, func(r dataset.Record) bool { return strings.EqualFold(r.ActividadNombre, q.Actividad) })
		}

		groups := groupBy(rs, usuarioOf)
		var users []RankedUser
		for _, g := range groups {
			if len(g.Records) < q.MinActivities {
				continue
			}
			s := summarize(scores(g.Records))
			u := RankedUser{
				Usuario:               g.Key,
				Nombre:                g.Records[0].UsuarioNombre,
				Promedio:              round2(s.Mean),
				MejorCalif:            s.Max,
				PeorCalif:             s.Min,
				Desviacion:            round2(s.Std),
				TotalActividades:      s.Count,
				PuntosTotales:         summarize(points(g.Records)).Sum,
				Sucursales:            distinct(g.Records, sucursalOf),
				ActividadesDiferentes: distinct(g.Records, actividadOf),
			}
			switch q.Tipo {
			case "puntos":
				u.ValorMetrica = u.PuntosTotales
			case "actividades":
				u.ValorMetrica = float64(u.TotalActividades)
			default:
				u.ValorMetrica = u.Promedio
			}
			users = append(users, u)
		}

		if len(users) == 0 {
			return ok("No se encontraron usuarios que cumplan con los criterios", []RankedUser{}), nil
		}

		sort.SliceStable(users, func(i, j int) bool {
			if asc {
				return users[i].ValorMetrica < users[j].ValorMetrica
			}
			return users[i].ValorMetrica > users[j].ValorMetrica
		})
		top := head(users, 10)
		for i := range top {
			better, same := 0, 0
			for _, other := range top {
				switch {
				case other.ValorMetrica == top[i].ValorMetrica:
					same++
				case asc && other.ValorMetrica < top[i].ValorMetrica, !asc && other.ValorMetrica > top[i].ValorMetrica:
					better++
				}
			}
			top[i].Posicion = better + 1
			top[i].UsuariosMismaPosicion = same
		}

		result := UserRanking{
			Ranking:           top,
			MetricaUtilizada:  metric,
			UsuariosExcluidos: len(groups) - len(users),
			MinActividades:    q.MinActivities,
		}
		if len(rs) > 0 {
			worst := rs[0]
			for _, r := range rs[1:] {
				if r.Calificacion < worst.Calificacion {
					worst = r
				}
			}
			result.PeorCalificacionIndividual = &IndividualScore{
				Usuario:      worst.Usuario,
				Nombre:       worst.UsuarioNombre,
				Calificacion: worst.Calificacion,
				Actividad:    worst.ActividadNombre,
			}
		}

		direction := "descendente"
		if asc {
			direction = "ascendente"
		}
		return ok(fmt.Sprintf("Ranking de usuarios por %s (%s)", q.Tipo, direction), result), nil
	})
}

type BranchUser struct {
	Usuario               string  `json:"usuario"`
	Nombre                string  `json:"nombre"`
	PromedioCalificacion  float64 `json:"promedio_calificacion"`
	MejorCalificacion     float64 `json:"mejor_calificacion"`
	TotalActividades      int     `json:"total_actividades"`
	PuntosTotales         float64 `json:"puntos_totales"`
	ActividadesDiferentes int     `json:"actividades_diferentes"`
}

type BranchUsersSummary struct {
	TotalUsuarios    int       `json:"total_usuarios"`
	PromedioGeneral  float64   `json:"promedio_general"`
	TotalActividades int       `json:"total_actividades"`
	Periodo          DateRange `json:"periodo"`
}

type BranchUsers struct {
	Sucursal string             `json:"sucursal"`
	Usuarios []BranchUser       `json:"usuarios"`
	Resumen  BranchUsersSummary `json:"resumen"`
}

// UsersByBranch lists the users of one branch. "5" is looked up as
// "Sucursal 5" as well as verbatim.
func (e *Engine) UsersByBranch(sucursal string) Envelope {
	return e.run("users_by_branch", withColumns(dataset.ColUsuarioNombre, dataset.ColSucursal), func() (Envelope, error) {
		raw := strings.TrimSpace(sucursal)
		if raw == "" {
			return Envelope{}, apperror.Value("sucursal", "Se requiere especificar una sucursal")
		}
		term := raw
		if !containsFold(raw, "sucursal") {
			term = "Sucursal " + raw
		}

		rs := where(e.ds.Records, func(r dataset.Record) bool {
			return strings.EqualFold(r.Sucursal, term) || strings.EqualFold(r.Sucursal, raw)
		})
		if len(rs) == 0 {
			return ok(fmt.Sprintf("No se encontró la sucursal %s", sucursal), nil), nil
		}

		groups := groupBy(rs, usuarioOf)
		sortGroupsByKey(groups)
		out := BranchUsers{Sucursal: term}
		for _, g := range groups {
			s := summarize(scores(g.Records))
			out.Usuarios = append(out.Usuarios, BranchUser{
				Usuario:               g.Key,
				Nombre:                g.Records[0].UsuarioNombre,
				PromedioCalificacion:  round2(s.Mean),
				MejorCalificacion:     s.Max,
				TotalActividades:      s.Count,
				PuntosTotales:         summarize(points(g.Records)).Sum,
				ActividadesDiferentes: distinct(g.Records, actividadOf),
			})
		}

		span := byDate(rs)
		out.Resumen = BranchUsersSummary{
			TotalUsuarios:    len(groups),
			PromedioGeneral:  round2(mean(scores(rs))),
			TotalActividades: len(rs),
			Periodo: DateRange{
				Inicio: span[0].FechaHora.Format("02/01/06"),
				Fin:    span[len(span)-1].FechaHora.Format("02/01/06"),
			},
		}
		return ok(fmt.Sprintf("Usuarios encontrados en sucursal %s", sucursal), out), nil
	})
}
