// Package intent turns a raw query into a routing decision, first through a
// remote classifier and, when that keeps failing, through keyword rules.
package intent

import (
	"fmt"
	"strconv"
)

type QueryType string

const (
	SpecificDate                QueryType = "specific_date"
	UserPerformance             QueryType = "user_performance"
	BranchPerformance           QueryType = "branch_performance"
	ActivityAnalysis            QueryType = "activity_analysis"
	TopPerformance              QueryType = "top_performance"
	Comparative                 QueryType = "comparative"
	Trend                       QueryType = "trend"
	BranchRanking               QueryType = "branch_ranking"
	BranchStats                 QueryType = "branch_stats"
	ActivityRanking             QueryType = "activity_ranking"
	TimePeriod                  QueryType = "time_period"
	UserRanking                 QueryType = "user_ranking"
	Correlation                 QueryType = "correlation"
	GeneralStats                QueryType = "general_stats"
	UsersByBranch               QueryType = "users_by_branch"
	UserProgression             QueryType = "user_progression"
	PersonalizedRecommendations QueryType = "personalized_recommendations"
	AdvancedSearch              QueryType = "advanced_search"
	SuccessFactors              QueryType = "success_factors"
	ExploratoryAnalysis         QueryType = "exploratory_analysis"

	// Conversation marks a turn that needs no data. It is not a catalog type.
	Conversation QueryType = "conversation"
)

var catalog = []QueryType{
	SpecificDate, UserPerformance, BranchPerformance, ActivityAnalysis,
	TopPerformance, Comparative, Trend, BranchRanking, BranchStats,
	ActivityRanking, TimePeriod, UserRanking, Correlation, GeneralStats,
	UsersByBranch, UserProgression, PersonalizedRecommendations,
	AdvancedSearch, SuccessFactors, ExploratoryAnalysis,
}

// AllQueryTypes returns the closed catalog in a stable order.
func AllQueryTypes() []QueryType {
	out := make([]QueryType, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether q belongs to the catalog.
func (q QueryType) Known() bool {
	for _, c := range catalog {
		if c == q {
			return true
		}
	}
	return false
}

func (q QueryType) String() string { return string(q) }

// Parameters is the fixed-shape parameter record. Empty strings, zero N and
// nil collections mean the classifier did not provide the value.
type Parameters struct {
	Usuario   string         `json:"usuario,omitempty"`
	Sucursal  string         `json:"sucursal,omitempty"`
	Actividad string         `json:"actividad,omitempty"`
	Fecha     string         `json:"fecha,omitempty"`
	Tipo      string         `json:"tipo,omitempty"`
	Metric    string         `json:"metric,omitempty"`
	N         int            `json:"n,omitempty"`
	Periodo   string         `json:"periodo,omitempty"`
	Filtros   map[string]any `json:"filtros,omitempty"`
	Metrica   string         `json:"metrica,omitempty"`
	Order     string         `json:"order,omitempty"`
	Usuarios  []string       `json:"usuarios,omitempty"`
	Fechas    []string       `json:"fechas,omitempty"`

	// Invalid collects values that were present but could not be coerced,
	// keyed by parameter name. The dispatcher turns them into value errors.
	Invalid map[string]string `json:"-"`
}

type Intent struct {
	RequiresData bool       `json:"requires_data"`
	QueryType    QueryType  `json:"query_type"`
	Parameters   Parameters `json:"parameters"`
	UseContext   bool       `json:"use_context"`
}

// fromMap coerces a loosely typed parameters object. Strings accept numbers,
// N accepts numeric strings; anything else is recorded in Invalid.
func fromMap(m map[string]any) Parameters {
	var p Parameters
	str := func(key string, dst *string) {
		v, ok := m[key]
		if !ok || v == nil {
			return
		}
		switch t := v.(type) {
		case string:
			*dst = t
		case float64:
			*dst = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			*dst = strconv.FormatBool(t)
		default:
			p.invalid(key, fmt.Sprintf("%v", v))
		}
	}

	str("usuario", &p.Usuario)
	str("sucursal", &p.Sucursal)
	str("actividad", &p.Actividad)
	str("fecha", &p.Fecha)
	str("tipo", &p.Tipo)
	str("metric", &p.Metric)
	str("periodo", &p.Periodo)
	str("metrica", &p.Metrica)
	str("order", &p.Order)

	switch v := m["n"].(type) {
	case nil:
	case float64:
		if v != float64(int(v)) || v < 0 {
			p.invalid("n", strconv.FormatFloat(v, 'f', -1, 64))
		} else {
			p.N = int(v)
		}
	case string:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			p.invalid("n", v)
		} else {
			p.N = n
		}
	default:
		p.invalid("n", fmt.Sprintf("%v", v))
	}

	switch v := m["filtros"].(type) {
	case nil:
	case map[string]any:
		p.Filtros = v
	default:
		p.invalid("filtros", fmt.Sprintf("%v", v))
	}

	p.Usuarios = stringList(m["usuarios"])
	p.Fechas = stringList(m["fechas"])
	return p
}

func (p *Parameters) invalid(key, value string) {
	if p.Invalid == nil {
		p.Invalid = make(map[string]string)
	}
	p.Invalid[key] = value
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
