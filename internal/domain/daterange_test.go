package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateRange(t *testing.T) {
	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	jan3 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    time.Time
		to      time.Time
		wantErr bool
	}{
		{name: "Ordered range", from: jan1, to: jan3},
		{name: "Zero width range", from: jan1, to: jan1},
		{name: "From after To", from: jan3, to: jan1, wantErr: true},
		{name: "Before supported history", from: MinTime.Add(-time.Second), to: jan1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewDateRange(tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, r.From)
			assert.Equal(t, tt.to, r.To)
		})
	}
}

func TestDateRange_Contains(t *testing.T) {
	from := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	r := DateRange{From: from, To: to}

	assert.False(t, r.Contains(from), "From is exclusive")
	assert.True(t, r.Contains(from.Add(time.Nanosecond)))
	assert.True(t, r.Contains(to), "To is inclusive")
	assert.False(t, r.Contains(to.Add(time.Nanosecond)))
}

func TestDateRange_ClampFrom(t *testing.T) {
	from := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)
	r := DateRange{From: from, To: to}

	t.Run("Data starts inside the range", func(t *testing.T) {
		first := time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)
		clamped, ok := r.ClampFrom(first)
		require.True(t, ok)
		assert.Equal(t, first, clamped.From)
		assert.Equal(t, to, clamped.To)
	})

	t.Run("Data starts before the range", func(t *testing.T) {
		clamped, ok := r.ClampFrom(from.AddDate(0, 0, -3))
		require.True(t, ok)
		assert.Equal(t, r, clamped)
	})

	t.Run("Range entirely before data", func(t *testing.T) {
		_, ok := r.ClampFrom(to.Add(time.Second))
		assert.False(t, ok)
	})
}

func TestOpenRange(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := OpenRange(now)
	assert.Equal(t, MinTime, r.From)
	assert.Equal(t, now, r.To)
}
