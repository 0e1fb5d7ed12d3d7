// Package dispatch routes a classified intent to one catalog operation and
// keeps the conversational context in step with every data turn.
package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/conversation"
	"rolplay-assistant-be/pkg/intent"
	"rolplay-assistant-be/pkg/search"
	"rolplay-assistant-be/pkg/text"
)

const module = "DISPATCH"

// Catalog is the set of analytics operations the dispatcher can reach.
// *analytics.Engine satisfies it.
type Catalog interface {
	ExactActivityResult(fecha, actividad string) analytics.Envelope
	UserActivityHistory(usuario string) analytics.Envelope
	BranchPerformance(sucursal string) analytics.Envelope
	BranchRankings() analytics.Envelope
	ActivityStats(actividad string) analytics.Envelope
	TopPerformances(n int, metric string, filtros map[string]any) analytics.Envelope
	ComparativeAnalysis(usuarios, fechas []string, actividad string) analytics.Envelope
	TrendAnalysis(f analytics.TrendFilter) analytics.Envelope
	BranchStats() analytics.Envelope
	ActivityRankings() analytics.Envelope
	TimePeriodAnalysis(periodo, metrica string) analytics.Envelope
	UserRankings(q analytics.RankingQuery) analytics.Envelope
	CorrelationAnalysis() analytics.Envelope
	GeneralStats() analytics.Envelope
	UsersByBranch(sucursal string) analytics.Envelope
	UserProgression(usuario, metrica string) analytics.Envelope
	PersonalizedRecommendations(usuario string) analytics.Envelope
	AdvancedSearch(filtros map[string]any) analytics.Envelope
	ActivitySuccessFactors() analytics.Envelope
}

// Searcher answers free-form questions over the indexed dataset.
type Searcher interface {
	Query(ctx context.Context, q string) (search.Answer, error)
}

// ContextStore is the per-session memory consulted and updated on data turns.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (conversation.Context, error)
	Update(ctx context.Context, sessionID, queryType string, v conversation.Values) (conversation.Context, error)
}

// Observer counts dispatched query types.
type Observer interface {
	OnDispatch(queryType string)
}

type noopObserver struct{}

func (noopObserver) OnDispatch(string) {}

// Result is what a turn produced. Conversational turns carry no envelope.
type Result struct {
	QueryType      intent.QueryType
	Conversational bool
	Parameters     intent.Parameters
	Envelope       analytics.Envelope
}

type handler func(ctx context.Context, p *intent.Parameters, raw string) analytics.Envelope

type Dispatcher struct {
	catalog  Catalog
	searcher Searcher
	store    ContextStore
	log      logger.ILogger
	observer Observer
	handlers map[intent.QueryType]handler
}

// New builds a dispatcher and fails when any catalog query type has no
// handler.
func New(catalog Catalog, searcher Searcher, store ContextStore, log logger.ILogger, observer Observer) (*Dispatcher, error) {
	d := &Dispatcher{catalog: catalog, searcher: searcher, store: store, log: log, observer: observer}
	return d.withTable(d.table())
}

func (d *Dispatcher) withTable(table map[intent.QueryType]handler) (*Dispatcher, error) {
	var missing []string
	for _, qt := range intent.AllQueryTypes() {
		if table[qt] == nil {
			missing = append(missing, qt.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dispatch: no handler registered for %s", strings.Join(missing, ", "))
	}
	if d.observer == nil {
		d.observer = noopObserver{}
	}
	if d.log == nil {
		d.log = logger.NewNopLogger()
	}
	d.handlers = table
	return d, nil
}

// Dispatch runs the operation for in and never panics. The session context
// is updated after every data turn, including failed ones.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, in intent.Intent, raw string) Result {
	if !in.RequiresData {
		return Result{QueryType: intent.Conversation, Conversational: true, Parameters: in.Parameters}
	}

	ctx, span := otel.Tracer("rolplay/dispatch").Start(ctx, "dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("query_type", in.QueryType.String()))

	p := in.Parameters
	if in.UseContext {
		d.fillFromContext(ctx, sessionID, &p)
	}

	env := d.invoke(ctx, in.QueryType, &p, raw)
	d.observer.OnDispatch(in.QueryType.String())

	values := conversation.Values{Fecha: p.Fecha, Usuario: p.Usuario, Actividad: p.Actividad, Sucursal: p.Sucursal}
	if _, err := d.store.Update(ctx, sessionID, in.QueryType.String(), values); err != nil {
		d.log.Error(module, "failed to update conversation context", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
	}

	if env.Failed() {
		d.log.Warn(module, "operation returned an error envelope", map[string]interface{}{
			"query_type": in.QueryType,
			"error":      env.Error,
		})
	}
	return Result{QueryType: in.QueryType, Parameters: p, Envelope: env}
}

// fillFromContext only touches empty fields.
func (d *Dispatcher) fillFromContext(ctx context.Context, sessionID string, p *intent.Parameters) {
	stored, err := d.store.Get(ctx, sessionID)
	if err != nil {
		d.log.Warn(module, "conversation context unavailable", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	fill(&p.Fecha, stored.Fecha)
	fill(&p.Usuario, stored.Usuario)
	fill(&p.Actividad, stored.Actividad)
	fill(&p.Sucursal, stored.Sucursal)
}

func (d *Dispatcher) invoke(ctx context.Context, qt intent.QueryType, p *intent.Parameters, raw string) (env analytics.Envelope) {
	op := qt.String()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(module, "handler panicked", map[string]interface{}{
				"query_type": op,
				"panic":      fmt.Sprint(r),
			})
			env = analytics.Failure(op, apperror.Internal(fmt.Errorf("%v", r), "panic in %s", op))
		}
	}()

	if len(p.Invalid) > 0 {
		keys := make([]string, 0, len(p.Invalid))
		for k := range p.Invalid {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		key := keys[0]
		return analytics.Failure(op, apperror.Value(key, "Valor no válido para %s: %s", key, p.Invalid[key]))
	}

	h, found := d.handlers[qt]
	if !found {
		h = d.handlers[intent.ExploratoryAnalysis]
	}
	return h(ctx, p, raw)
}

func (d *Dispatcher) table() map[intent.QueryType]handler {
	c := d.catalog
	return map[intent.QueryType]handler{
		intent.SpecificDate: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.ExactActivityResult(p.Fecha, p.Actividad)
		},
		intent.UserPerformance: func(_ context.Context, p *intent.Parameters, raw string) analytics.Envelope {
			if quoted := quotedRepresentative(raw); quoted != "" {
				p.Usuario = quoted
			}
			return c.UserActivityHistory(p.Usuario)
		},
		intent.BranchPerformance: func(_ context.Context, p *intent.Parameters, raw string) analytics.Envelope {
			if p.Sucursal != "" {
				return c.BranchPerformance(p.Sucursal)
			}
			if asksForWorst(raw) {
				p.Tipo = "peores"
			}
			return d.rankBranches(p)
		},
		intent.ActivityAnalysis: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.ActivityStats(p.Actividad)
		},
		intent.TopPerformance: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			n := p.N
			if n == 0 {
				n = 5
			}
			return c.TopPerformances(n, orDefault(p.Metric, "calificacion"), p.Filtros)
		},
		intent.Comparative: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.ComparativeAnalysis(p.Usuarios, p.Fechas, p.Actividad)
		},
		intent.Trend: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.TrendAnalysis(analytics.TrendFilter{
				Usuario:   p.Usuario,
				Actividad: p.Actividad,
				Sucursal:  p.Sucursal,
				Periodo:   orDefault(p.Periodo, "day"),
			})
		},
		intent.BranchRanking: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return d.rankBranches(p)
		},
		intent.BranchStats: func(context.Context, *intent.Parameters, string) analytics.Envelope {
			return c.BranchStats()
		},
		intent.ActivityRanking: func(context.Context, *intent.Parameters, string) analytics.Envelope {
			return c.ActivityRankings()
		},
		intent.TimePeriod: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			metric := orDefault(p.Metric, orDefault(p.Metrica, "calificacion"))
			return c.TimePeriodAnalysis(orDefault(p.Periodo, "day"), metric)
		},
		intent.UserRanking: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.UserRankings(analytics.RankingQuery{
				Tipo:      orDefault(p.Tipo, "general"),
				Sucursal:  p.Sucursal,
				Actividad: p.Actividad,
				Order:     p.Order,
			})
		},
		intent.Correlation: func(context.Context, *intent.Parameters, string) analytics.Envelope {
			return c.CorrelationAnalysis()
		},
		intent.GeneralStats: func(context.Context, *intent.Parameters, string) analytics.Envelope {
			return c.GeneralStats()
		},
		intent.UsersByBranch: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.UsersByBranch(p.Sucursal)
		},
		intent.UserProgression: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.UserProgression(p.Usuario, orDefault(p.Metrica, "calificacion"))
		},
		intent.PersonalizedRecommendations: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.PersonalizedRecommendations(p.Usuario)
		},
		intent.AdvancedSearch: func(_ context.Context, p *intent.Parameters, _ string) analytics.Envelope {
			return c.AdvancedSearch(searchFilters(p))
		},
		intent.SuccessFactors: func(context.Context, *intent.Parameters, string) analytics.Envelope {
			return c.ActivitySuccessFactors()
		},
		intent.ExploratoryAnalysis: func(ctx context.Context, _ *intent.Parameters, raw string) analytics.Envelope {
			return d.semanticSearch(ctx, raw)
		},
	}
}

// rankBranches runs the branch rankings and remembers the best branch, or
// the worst when p.Tipo is "peores", as the turn's sucursal.
func (d *Dispatcher) rankBranches(p *intent.Parameters) analytics.Envelope {
	env := d.catalog.BranchRankings()
	ranking, isRanking := env.Data.(analytics.BranchRanking)
	if env.Failed() || !isRanking {
		return env
	}
	if p.Tipo == "peores" {
		p.Sucursal = ranking.PeorSucursal.Sucursal
	} else {
		p.Sucursal = ranking.MejorSucursal.Sucursal
	}
	return env
}

func (d *Dispatcher) semanticSearch(ctx context.Context, raw string) analytics.Envelope {
	if d.searcher == nil {
		return analytics.Failure("semantic_search", apperror.Empty("No hay un índice de búsqueda disponible"))
	}
	answer, err := d.searcher.Query(ctx, raw)
	if err != nil {
		return analytics.Failure("semantic_search", err)
	}
	return analytics.Envelope{Message: "Resultados de búsqueda semántica", Data: answer}
}

var quotedRepresentativePattern = regexp.MustCompile(`(?i)"([^"]*representante[^"]*)"`)

func quotedRepresentative(raw string) string {
	if !strings.Contains(strings.ToLower(raw), "representante") || !strings.Contains(raw, `"`) {
		return ""
	}
	if m := quotedRepresentativePattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

var inferiorityWords = []string{"peor", "menor", "mas bajo", "mala"}

// asksForWorst matches on the normalized query, so "más bajo" is covered by
// "mas bajo".
func asksForWorst(raw string) bool {
	return text.ContainsAny(text.Normalize(raw), inferiorityWords...)
}

// searchFilters merges the top-level entities into filtros without
// overriding keys the classifier already put there.
func searchFilters(p *intent.Parameters) map[string]any {
	out := make(map[string]any, len(p.Filtros)+4)
	for k, v := range p.Filtros {
		out[k] = v
	}
	for key, value := range map[string]string{
		"usuario":   p.Usuario,
		"sucursal":  p.Sucursal,
		"actividad": p.Actividad,
	} {
		if _, set := out[key]; !set && value != "" {
			out[key] = value
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
