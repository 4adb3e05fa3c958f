package profile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOk bool
	}{
		{"0:42.17", "42.17", true},
		{"1:02.50", "62.5", true},
		{"9:59.99", "599.99", true},
		{"--", "0", false},
		{"", "0", false},
		{"10:00.00", "0", false},
		{"1:2.50", "0", false},
		{"1:75.00", "0", false},
		{"a:00.00", "0", false},
		{"1-00.00", "0", false},
		{"1:-1.00", "0", false},
		{"1:+1.00", "0", false},
		{"1:01.-5", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:42.17", FormatTime(42170*time.Millisecond))
	assert.Equal(t, "1:02.50", FormatTime(62*time.Second+496*time.Millisecond))
	assert.Equal(t, "0:00.00", FormatTime(-time.Second))
	assert.Equal(t, "9:59.99", FormatTime(time.Hour))
}

func TestIsImprovement(t *testing.T) {
	assert.True(t, IsImprovement("--", time.Minute))
	assert.True(t, IsImprovement("garbage", time.Minute))
	assert.True(t, IsImprovement("1:00.01", time.Minute))
	assert.False(t, IsImprovement("1:00.00", time.Minute))
	assert.False(t, IsImprovement("0:59.99", time.Minute))
}
