package intent

import (
	"rolplay-assistant-be/pkg/extract"
	"rolplay-assistant-be/pkg/text"
)

// Fallback builds an Intent from extraction alone. It is used once every
// remote attempt has failed and always asks for data.
func Fallback(e extract.Entities) Intent {
	params := Parameters{
		Usuario:   e.Usuario,
		Actividad: e.Actividad,
		Sucursal:  e.Sucursal,
		Fecha:     e.Fecha,
	}

	var qt QueryType
	switch {
	case e.Fecha != "":
		qt = SpecificDate
	case e.Mentioned(extract.User) && !e.Mentioned(extract.Progress) && !e.Mentioned(extract.Recommendation):
		qt = UserPerformance
	case e.Mentioned(extract.Branch) && !e.Mentioned(extract.ListRequest) && !e.Mentioned(extract.User):
		qt = BranchPerformance
	case e.Mentioned(extract.Activity) && !text.ContainsAny(e.Normalized, "ranking", "mejor", "peor"):
		qt = ActivityAnalysis
	default:
		qt = ExploratoryAnalysis
	}

	return Intent{
		RequiresData: true,
		QueryType:    qt,
		Parameters:   params,
		UseContext:   e.ContextReference,
	}
}

// enrich applies the extractor's findings to a classifier result.
func enrich(in Intent, e extract.Entities) Intent {
	if e.ContextReference {
		in.UseContext = true
	}

	p := &in.Parameters
	if p.Usuario == "" {
		p.Usuario = e.Usuario
	}
	if p.Actividad == "" {
		p.Actividad = e.Actividad
	}
	if p.Sucursal == "" {
		p.Sucursal = e.Sucursal
	}

	if e.Fecha != "" {
		p.Fecha = e.Fecha
	} else if p.Fecha != "" {
		p.Fecha = fixCompactDate(p.Fecha)
	}
	return in
}
