package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsRememberedValues(t *testing.T) {
	c := Context{Usuario: "Ana", Sucursal: "3", TipoConsulta: "user_performance"}

	got := c.Merge("branch_ranking", Values{Sucursal: "Sucursal 7"})

	assert.Equal(t, "Ana", got.Usuario)
	assert.Equal(t, "Sucursal 7", got.Sucursal)
	assert.Equal(t, "branch_ranking", got.TipoConsulta)
	assert.Equal(t, "3", c.Sucursal, "receiver is not mutated")
}

func TestMergeEmptyTurnOnlyTouchesType(t *testing.T) {
	c := Context{Fecha: "15/03/24", Actividad: "Ronda 1"}

	got := c.Merge("general_stats", Values{})

	assert.Equal(t, Context{Fecha: "15/03/24", Actividad: "Ronda 1", TipoConsulta: "general_stats"}, got)
	assert.False(t, got.IsZero())
	assert.True(t, Context{}.IsZero())
}
