package trend

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Period
		wantErr  bool
	}{
		{name: "all", input: "all", expected: PeriodAll},
		{name: "upper case", input: "WEEK", expected: PeriodWeek},
		{name: "padded", input: " day ", expected: PeriodDay},
		{name: "month", input: "month", expected: PeriodMonth},
		{name: "unknown", input: "year", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePeriod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPeriod))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestPeriod_Since(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, PeriodAll.Since(now).IsZero())
	assert.Equal(t, now.Add(-24*time.Hour), PeriodDay.Since(now))
	assert.Equal(t, now.Add(-7*24*time.Hour), PeriodWeek.Since(now))
	assert.Equal(t, now.Add(-30*24*time.Hour), PeriodMonth.Since(now))
}

func TestPeriods(t *testing.T) {
	for _, p := range Periods() {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Period("year").Valid())
}
