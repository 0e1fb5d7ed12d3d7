// Package dataset loads the role-play activity fact table into memory.
package dataset

import (
	"context"
	"time"

	"rolplay-assistant-be/pkg/apperror"
)

// Column names as they appear in the source spreadsheet.
const (
	ColUsuario       = "Usuario"
	ColUsuarioNombre = "Usuario Nombre"
	ColSucursal      = "Sucursal"
	ColActividad     = "Actividad_Nombre"
	ColFecha         = "Fecha_y_Hora"
	ColCalificacion  = "Calificacion"
	ColPuntos        = "Puntos_Totales"
	ColCasoDeUso     = "Caso_de_Uso_Nombre"
)

// ScoringPoints is the number of Info_CorrectaN / PuntosN column pairs.
const ScoringPoints = 10

// NotApplicable marks an unused scoring point in the source.
const NotApplicable = "No aplica"

type ScoringPoint struct {
	Index  int    `json:"index"`
	Info   string `json:"info"`
	Puntos string `json:"puntos"`
}

// Record is one attempt of one user at one activity. An empty Sucursal
// means the source cell was blank.
type Record struct {
	Usuario         string
	UsuarioNombre   string
	Sucursal        string
	ActividadNombre string
	CasoDeUso       string
	FechaHora       time.Time
	Calificacion    float64
	PuntosTotales   float64
	Detalle         []ScoringPoint
}

// Dataset is read-only once built.
type Dataset struct {
	Records []Record
	columns map[string]bool
}

// New builds a Dataset. When no columns are given every known column is
// assumed present.
func New(records []Record, columns ...string) *Dataset {
	if len(columns) == 0 {
		columns = AllColumns()
	}
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	return &Dataset{Records: records, columns: cols}
}

func AllColumns() []string {
	return []string{ColUsuario, ColUsuarioNombre, ColSucursal, ColActividad, ColFecha, ColCalificacion, ColPuntos, ColCasoDeUso}
}

func (d *Dataset) Len() int { return len(d.Records) }

// Has reports whether the source provided column c.
func (d *Dataset) Has(c string) bool { return d.columns[c] }

// Require returns a missing-key error for the first absent column.
func (d *Dataset) Require(cols ...string) error {
	for _, c := range cols {
		if !d.columns[c] {
			return apperror.MissingKey(c)
		}
	}
	return nil
}

// Loader produces a Dataset from some backing store.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}
