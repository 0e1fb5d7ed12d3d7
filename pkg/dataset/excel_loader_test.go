package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	path := filepath.Join(t.TempDir(), "fact.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelLoaderLoad(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Usuario", "Usuario Nombre", "Sucursal", "Actividad_Nombre", "Fecha_y_Hora", "Calificacion", "Puntos_Totales", "Caso_de_Uso_Nombre", "Info_Correcta1", "Puntos1", "Info_Correcta2", "Puntos2"},
		{"user1", "Ana Ruiz", "Sucursal 3", "Ronda 1", "15/03/24 10:30", "85.5", "120", "Venta", "Saludo", "10", "No aplica", "No aplica"},
		{"user2", "Luis Paz", "", "Ronda 2", "2024-03-16 09:00:00", "70", "90", "Venta"},
		{},
	})

	ds, err := NewExcelLoader(path, "").Load(t.Context())
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	first := ds.Records[0]
	assert.Equal(t, "user1", first.Usuario)
	assert.Equal(t, "Sucursal 3", first.Sucursal)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), first.FechaHora)
	assert.InDelta(t, 85.5, first.Calificacion, 1e-9)
	assert.Equal(t, []ScoringPoint{{Index: 1, Info: "Saludo", Puntos: "10"}}, first.Detalle)

	assert.Empty(t, ds.Records[1].Sucursal)
	assert.True(t, ds.Has(ColCasoDeUso))
	assert.NoError(t, ds.Require(ColUsuario, ColPuntos))
}

func TestExcelLoaderMissingColumns(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Usuario", "Actividad_Nombre", "Calificacion"},
		{"user1", "Ronda 1", "80"},
	})

	ds, err := NewExcelLoader(path, "Sheet1").Load(t.Context())
	require.NoError(t, err)

	assert.False(t, ds.Has(ColSucursal))
	assert.ErrorContains(t, ds.Require(ColUsuario, ColSucursal), ColSucursal)
}

func TestExcelLoaderBadNumber(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Usuario", "Calificacion"},
		{"user1", "muy bien"},
	})

	_, err := NewExcelLoader(path, "").Load(t.Context())
	assert.ErrorContains(t, err, "row 2")
}

func TestNormalizeBranch(t *testing.T) {
	assert.Equal(t, "5", normalizeBranch("5.0"))
	assert.Equal(t, "Sucursal 5", normalizeBranch("Sucursal 5"))
	assert.Equal(t, "", normalizeBranch(""))
}
