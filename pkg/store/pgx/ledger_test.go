package pgx

import (
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		name      string
		timeframe string
		want      time.Duration
	}{
		{"hours", "6 hours", 6 * time.Hour},
		{"single hour", "1 hour", time.Hour},
		{"days", "3 days", 72 * time.Hour},
		{"weeks", "2 weeks", 14 * 24 * time.Hour},
		{"no space", "12hour", 12 * time.Hour},
		{"empty defaults", "", 24 * time.Hour},
		{"garbage defaults", "soon", 24 * time.Hour},
		{"negative-free zero defaults", "0 hours", 24 * time.Hour},
		{"unknown unit defaults", "5 months", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTimeframe(tt.timeframe); got != tt.want {
				t.Errorf("ParseTimeframe(%q) = %v, want %v", tt.timeframe, got, tt.want)
			}
		})
	}
}
