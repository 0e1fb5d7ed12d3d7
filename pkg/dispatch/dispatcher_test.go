package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/pkg/logger"
	"rolplay-assistant-be/pkg/analytics"
	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/conversation"
	"rolplay-assistant-be/pkg/dataset"
	"rolplay-assistant-be/pkg/intent"
	"rolplay-assistant-be/pkg/search"
)

type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]conversation.Context
	updates int
	getErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: map[string]conversation.Context{}}
}

func (s *memoryStore) Get(_ context.Context, id string) (conversation.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return conversation.Context{}, s.getErr
	}
	return s.byID[id], nil
}

func (s *memoryStore) Update(_ context.Context, id, qt string, v conversation.Values) (conversation.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	next := s.byID[id].Merge(qt, v)
	s.byID[id] = next
	return next, nil
}

type stubSearcher struct {
	answer search.Answer
	err    error
	query  string
}

func (s *stubSearcher) Query(_ context.Context, q string) (search.Answer, error) {
	s.query = q
	return s.answer, s.err
}

type countingObserver struct{ seen []string }

func (o *countingObserver) OnDispatch(qt string) { o.seen = append(o.seen, qt) }

func record(user, branch, activity string, when time.Time, score float64) dataset.Record {
	return dataset.Record{
		Usuario:         user,
		UsuarioNombre:   "Representante " + strings.TrimPrefix(user, "user"),
		Sucursal:        branch,
		ActividadNombre: activity,
		FechaHora:       when,
		Calificacion:    score,
		PuntosTotales:   score * 10,
	}
}

// fixture: Sucursal A averages 4.5, Sucursal B 2.1.
func fixture() *analytics.Engine {
	at := func(day int) time.Time { return time.Date(2024, 3, day, 10, 0, 0, 0, time.UTC) }
	return analytics.NewEngine(dataset.New([]dataset.Record{
		record("user1", "Sucursal A", "Ronda 1", at(1), 4.0),
		record("user1", "Sucursal A", "Ronda 2", at(2), 5.0),
		record("user2", "Sucursal B", "Ronda 1", at(3), 2.1),
		record("user2", "Sucursal B", "Ronda 2", at(4), 2.1),
	}))
}

func newDispatcher(t *testing.T, store ContextStore, searcher Searcher) *Dispatcher {
	t.Helper()
	d, err := New(fixture(), searcher, store, logger.NewNopLogger(), nil)
	require.NoError(t, err)
	return d
}

func data(qt intent.QueryType, p intent.Parameters) intent.Intent {
	return intent.Intent{RequiresData: true, QueryType: qt, Parameters: p}
}

func TestNewRejectsIncompleteTable(t *testing.T) {
	d := &Dispatcher{catalog: fixture(), store: newMemoryStore()}
	table := d.table()
	delete(table, intent.Correlation)
	delete(table, intent.Trend)

	_, err := d.withTable(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trend")
	assert.Contains(t, err.Error(), "correlation")
}

func TestTableCoversCatalog(t *testing.T) {
	d := newDispatcher(t, newMemoryStore(), nil)
	for _, qt := range intent.AllQueryTypes() {
		assert.NotNil(t, d.handlers[qt], qt.String())
	}
}

func TestConversationalTurnSkipsDataAndContext(t *testing.T) {
	store := newMemoryStore()
	d := newDispatcher(t, store, nil)

	res := d.Dispatch(t.Context(), "s1", intent.Intent{RequiresData: false, QueryType: intent.Conversation}, "hola")

	assert.True(t, res.Conversational)
	assert.Equal(t, intent.Conversation, res.QueryType)
	assert.Zero(t, store.updates)
}

func TestContextFillNeverOverwrites(t *testing.T) {
	store := newMemoryStore()
	store.byID["s1"] = conversation.Context{Usuario: "user1", Sucursal: "Sucursal B", Actividad: "Ronda 2"}
	d := newDispatcher(t, store, nil)

	in := data(intent.UserPerformance, intent.Parameters{Usuario: "user2"})
	in.UseContext = true
	res := d.Dispatch(t.Context(), "s1", in, "¿y él?")

	assert.Equal(t, "user2", res.Parameters.Usuario)
	assert.Equal(t, "Sucursal B", res.Parameters.Sucursal)
	assert.Equal(t, "Ronda 2", res.Parameters.Actividad)
	assert.False(t, res.Envelope.Failed())
}

func TestContextFillOnlyWhenRequested(t *testing.T) {
	store := newMemoryStore()
	store.byID["s1"] = conversation.Context{Usuario: "user1"}
	d := newDispatcher(t, store, nil)

	res := d.Dispatch(t.Context(), "s1", data(intent.UserPerformance, intent.Parameters{}), "¿cómo va?")

	assert.Empty(t, res.Parameters.Usuario)
	assert.True(t, res.Envelope.Failed())
}

func TestContextFillToleratesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("redis down")
	d := newDispatcher(t, store, nil)

	in := data(intent.UserPerformance, intent.Parameters{Usuario: "user1"})
	in.UseContext = true
	res := d.Dispatch(t.Context(), "s1", in, "user1")

	assert.False(t, res.Envelope.Failed())
	assert.Equal(t, 1, store.updates)
}

func TestBranchPerformanceInfersWorstOrBest(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"¿Cuál es la peor sucursal?", "Sucursal B"},
		{"¿Qué sucursal tiene el promedio más bajo?", "Sucursal B"},
		{"¿Cuál es la mejor sucursal?", "Sucursal A"},
		{"Háblame de las sucursales", "Sucursal A"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			store := newMemoryStore()
			d := newDispatcher(t, store, nil)

			res := d.Dispatch(t.Context(), "s1", data(intent.BranchPerformance, intent.Parameters{}), tc.raw)

			require.False(t, res.Envelope.Failed())
			assert.IsType(t, analytics.BranchRanking{}, res.Envelope.Data)
			assert.Equal(t, tc.want, res.Parameters.Sucursal)
			assert.Equal(t, tc.want, store.byID["s1"].Sucursal)
		})
	}
}

func TestBranchPerformanceWithSucursalRunsReport(t *testing.T) {
	d := newDispatcher(t, newMemoryStore(), nil)

	res := d.Dispatch(t.Context(), "s1", data(intent.BranchPerformance, intent.Parameters{Sucursal: "Sucursal A"}), "peor")

	assert.IsType(t, analytics.BranchReport{}, res.Envelope.Data)
	assert.Equal(t, "Sucursal A", res.Parameters.Sucursal)
}

func TestBranchRankingKeysOffTipo(t *testing.T) {
	d := newDispatcher(t, newMemoryStore(), nil)

	worst := d.Dispatch(t.Context(), "s1", data(intent.BranchRanking, intent.Parameters{Tipo: "peores"}), "ranking")
	best := d.Dispatch(t.Context(), "s2", data(intent.BranchRanking, intent.Parameters{}), "ranking de la peor")

	assert.Equal(t, "Sucursal B", worst.Parameters.Sucursal)
	assert.Equal(t, "Sucursal A", best.Parameters.Sucursal)
}

func TestRepresentativeQuoteOverridesUsuario(t *testing.T) {
	d := newDispatcher(t, newMemoryStore(), nil)

	res := d.Dispatch(t.Context(), "s1",
		data(intent.UserPerformance, intent.Parameters{Usuario: "user1"}),
		`¿Cómo le fue a "Representante 2" esta semana?`)

	assert.Equal(t, "Representante 2", res.Parameters.Usuario)

	res = d.Dispatch(t.Context(), "s1",
		data(intent.UserPerformance, intent.Parameters{Usuario: "user1"}),
		`¿Cómo le fue al representante "Ana"?`)
	assert.Equal(t, "user1", res.Parameters.Usuario)
}

func TestInvalidParametersBecomeValueErrors(t *testing.T) {
	store := newMemoryStore()
	d := newDispatcher(t, store, nil)

	p := intent.Parameters{Usuario: "user1", Invalid: map[string]string{"n": "muchos", "filtros": "[1]"}}
	res := d.Dispatch(t.Context(), "s1", data(intent.TopPerformance, p), "top muchos")

	require.True(t, res.Envelope.Failed())
	assert.Equal(t, apperror.KindValue, apperror.KindOf(res.Envelope.Err))
	assert.True(t, strings.HasPrefix(res.Envelope.Error, "Error de valor en top_performance"))
	assert.Contains(t, res.Envelope.Error, "filtros")
	assert.Equal(t, "user1", store.byID["s1"].Usuario)
	assert.Equal(t, "top_performance", store.byID["s1"].TipoConsulta)
}

func TestDispatchNeverPanicsOnMalformedParameters(t *testing.T) {
	malformed := []intent.Parameters{
		{},
		{Fecha: "el día de la marmota", Metric: "???", Tipo: "cualquiera", Order: "sideways", Periodo: "year", Metrica: "x"},
		{Filtros: map[string]any{"calif_min": "alto", "puntos_max": []any{1}, "fecha": 3.5, "limit": -4}},
		{Usuarios: []string{"", "nadie"}, Fechas: []string{"ayer", "31/02/2024"}, N: 1 << 30},
		{Invalid: map[string]string{"usuarios": "{}"}},
	}
	types := append(intent.AllQueryTypes(), intent.QueryType("bogus"))

	d := newDispatcher(t, newMemoryStore(), &stubSearcher{err: errors.New("index offline")})
	for _, qt := range types {
		for _, p := range malformed {
			var res Result
			assert.NotPanics(t, func() {
				res = d.Dispatch(t.Context(), "s1", data(qt, p), `"representante" peor`)
			}, qt.String())
			assert.True(t, res.Envelope.Failed() || res.Envelope.Message != "", "%s returned an empty envelope", qt)
		}
	}
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	store := newMemoryStore()
	d := &Dispatcher{catalog: fixture(), store: store}
	table := d.table()
	table[intent.GeneralStats] = func(context.Context, *intent.Parameters, string) analytics.Envelope {
		panic("index out of range")
	}
	d, err := d.withTable(table)
	require.NoError(t, err)

	res := d.Dispatch(t.Context(), "s1", data(intent.GeneralStats, intent.Parameters{Sucursal: "Sucursal A"}), "stats")

	require.True(t, res.Envelope.Failed())
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(res.Envelope.Err))
	assert.Equal(t, "Sucursal A", store.byID["s1"].Sucursal)
}

func TestContextUpdatedEvenOnFailure(t *testing.T) {
	store := newMemoryStore()
	d := newDispatcher(t, store, nil)

	res := d.Dispatch(t.Context(), "s1",
		data(intent.TimePeriod, intent.Parameters{Metric: "velocidad", Actividad: "Ronda 1", Fecha: "01/03/24"}),
		"por velocidad")

	require.True(t, res.Envelope.Failed())
	assert.Equal(t, conversation.Context{
		Fecha:        "01/03/24",
		Actividad:    "Ronda 1",
		TipoConsulta: "time_period",
	}, store.byID["s1"])
}

func TestExploratoryUsesSearcher(t *testing.T) {
	s := &stubSearcher{answer: search.Answer{Response: "respuesta", SourceNodes: []search.Source{{Text: "doc"}}}}
	d := newDispatcher(t, newMemoryStore(), s)

	res := d.Dispatch(t.Context(), "s1", data(intent.ExploratoryAnalysis, intent.Parameters{}), "¿qué patrones ves?")
	require.False(t, res.Envelope.Failed())
	assert.Equal(t, s.answer, res.Envelope.Data)
	assert.Equal(t, "¿qué patrones ves?", s.query)

	res = d.Dispatch(t.Context(), "s1", data(intent.QueryType("no_such_type"), intent.Parameters{}), "algo raro")
	assert.Equal(t, s.answer, res.Envelope.Data)
	assert.Equal(t, "algo raro", s.query)
}

func TestExploratoryWithoutSearcher(t *testing.T) {
	d := newDispatcher(t, newMemoryStore(), nil)

	res := d.Dispatch(t.Context(), "s1", data(intent.ExploratoryAnalysis, intent.Parameters{}), "algo")

	require.True(t, res.Envelope.Failed())
	assert.Equal(t, apperror.KindEmpty, apperror.KindOf(res.Envelope.Err))
}

func TestSearchFiltersMergeEntities(t *testing.T) {
	got := searchFilters(&intent.Parameters{
		Usuario:  "user1",
		Sucursal: "Sucursal A",
		Filtros:  map[string]any{"sucursal": "Sucursal B", "calif_min": 3.0},
	})

	assert.Equal(t, map[string]any{
		"usuario":   "user1",
		"sucursal":  "Sucursal B",
		"calif_min": 3.0,
	}, got)
}

func TestObserverSeesDataTurns(t *testing.T) {
	obs := &countingObserver{}
	d, err := New(fixture(), nil, newMemoryStore(), logger.NewNopLogger(), obs)
	require.NoError(t, err)

	d.Dispatch(t.Context(), "s1", data(intent.GeneralStats, intent.Parameters{}), "stats")
	d.Dispatch(t.Context(), "s1", intent.Intent{QueryType: intent.Conversation}, "hola")

	assert.Equal(t, []string{"general_stats"}, obs.seen)
}
