package dataset

import (
	"testing"
	"time"

	"rolplay-assistant-be/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"15/03/24 10:30", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"15/03/2024 10:30", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15 10:30:45", time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)},
		{"15/03/24", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15-03-2024 08:05", time.Date(2024, 3, 15, 8, 5, 0, 0, time.UTC)},
		{"2024/03/15 08:05", time.Date(2024, 3, 15, 8, 5, 0, 0, time.UTC)},
		{"15.03.2024 08:05", time.Date(2024, 3, 15, 8, 5, 0, 0, time.UTC)},
		{"1/3/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"15 de marzo de 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"15 de marzo del 2024 a las 3 pm", time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)},
		{"15/03/2024 09:00 am", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFlexibleDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlexibleDateRejects(t *testing.T) {
	_, err := ParseFlexibleDate("el día que llovió")
	require.Error(t, err)
	assert.Equal(t, apperror.KindValue, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "No se pudo interpretar la fecha")
}

func TestHasClockAndSameDay(t *testing.T) {
	a := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.False(t, HasClock(a))
	assert.True(t, HasClock(b))
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.Add(time.Minute)))
	assert.Equal(t, "15/03/24 23:59", FormatDisplay(b))
}
