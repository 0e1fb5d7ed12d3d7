package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactRoundTripKeepsBlankBranch(t *testing.T) {
	rec := Record{
		Usuario:         "user7",
		ActividadNombre: "Ronda 2",
		FechaHora:       time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Calificacion:    91,
		PuntosTotales:   140,
		Detalle:         []ScoringPoint{{Index: 3, Info: "Cierre", Puntos: "15"}},
	}

	m, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Nil(t, m.Sucursal)
	assert.Equal(t, "fact_rolplay_sim", m.TableName())

	back, err := m.toRecord()
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestFactBadDetalle(t *testing.T) {
	_, err := FactRolPlaySim{Detalle: []byte("{")}.toRecord()
	assert.ErrorContains(t, err, "decode detalle")
}
