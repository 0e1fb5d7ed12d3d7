package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractQuotedAssignment(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		usuario   string
		actividad string
		sucursal  string
	}{
		{
			name:    "user keyword inside literal",
			query:   `¿Cómo le fue a "Representante 12"?`,
			usuario: "Representante 12",
		},
		{
			name:      "activity keyword inside literal",
			query:     `Resultados de "Ronda de cierre"`,
			actividad: "Ronda de cierre",
		},
		{
			name:     "branch keyword inside literal",
			query:    `Datos de "Sucursal 4"`,
			sucursal: "Sucursal 4",
		},
		{
			name:      "several literals",
			query:     `Compara "usuario 1" en "actividad 3"`,
			usuario:   "usuario 1",
			actividad: "actividad 3",
		},
		{
			name:    "bare literal goes to first mentioned category",
			query:   `¿Qué tal el empleado "Juan Pérez" en la sucursal norte?`,
			usuario: "Juan Pérez",
		},
		{
			name:      "bare literal with activity mention",
			query:     `Muéstrame la tarea "Cierre"`,
			actividad: "Cierre",
		},
		{
			name:  "bare literal without mention stays unassigned",
			query: `Dime algo de "Zeta"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Extract(tt.query)
			assert.Equal(t, tt.usuario, e.Usuario)
			assert.Equal(t, tt.actividad, e.Actividad)
			assert.Equal(t, tt.sucursal, e.Sucursal)
		})
	}
}

func TestExtractDateLiteral(t *testing.T) {
	assert.Equal(t, "15/03/24", Extract("resultados del 15/03/24").Fecha)
	assert.Equal(t, "1-2-2024", Extract("del 1-2-2024 por favor").Fecha)
	assert.Equal(t, "2024/03/15", Extract("el 2024/03/15").Fecha)
	assert.Equal(t, "", Extract("el 20240315").Fecha)
}

func TestExtractMentionsAndContext(t *testing.T) {
	e := Extract("¿Y en esa misma sucursal?")
	assert.True(t, e.ContextReference)
	assert.True(t, e.Mentioned(Branch))
	assert.False(t, e.Mentioned(User))

	e = Extract("¿Cuál es la evolución del usuario 5?")
	assert.True(t, e.Mentioned(Progress))
	assert.True(t, e.Mentioned(User))

	e = Extract("Ayúdame con recomendaciones")
	assert.True(t, e.Mentioned(Recommendation))

	e = Extract("¿Cómo va Juan?")
	assert.True(t, e.Mentioned(User))
	assert.False(t, e.ContextReference)
	assert.Empty(t, e.Usuario)

	e = Extract("¿Cómo van las sucursales?")
	assert.False(t, e.Mentioned(User))
}
