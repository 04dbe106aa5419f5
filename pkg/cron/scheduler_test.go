package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	// a Sunday
	from := time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{"midnight", "0 0 * * *", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{"every five minutes", "*/5 * * * *", time.Date(2026, 10, 18, 14, 35, 0, 0, time.UTC)},
		{"weekday mornings", "0 8 * * 1-5", time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)},
		{"descriptor", "@hourly", time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextRun(tt.expr, from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestNextRunStrictlyAfter(t *testing.T) {
	midnight := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	next, err := NextRun("0 0 * * *", midnight)
	require.NoError(t, err)
	assert.Equal(t, midnight.AddDate(0, 0, 1), next)
}

func TestNextRunInvalid(t *testing.T) {
	_, err := NextRun("", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	_, err = NextRun("61 * * * *", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")

	_, err = NextRun("0 0 30 2 *", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never fires")
}
