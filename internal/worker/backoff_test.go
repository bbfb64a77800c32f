package worker

import (
	"testing"
	"time"

	"github.com/shaiso/jobqueue/internal/domain"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.BackoffStrategy
		base     float64
		attempt  int
		want     time.Duration
	}{
		{"fixed is constant", domain.BackoffFixed, 5, 1, 5 * time.Second},
		{"fixed ignores attempt", domain.BackoffFixed, 5, 7, 5 * time.Second},
		{"linear first attempt", domain.BackoffLinear, 3, 1, 3 * time.Second},
		{"linear third attempt", domain.BackoffLinear, 3, 3, 9 * time.Second},
		{"exponential first failure", domain.BackoffExponential, 2, 1, 4 * time.Second},
		{"exponential second failure", domain.BackoffExponential, 2, 2, 8 * time.Second},
		{"exponential third failure", domain.BackoffExponential, 2, 3, 16 * time.Second},
		{"fractional base", domain.BackoffFixed, 0.5, 1, 500 * time.Millisecond},
		{"zero base falls back to one second", domain.BackoffFixed, 0, 1, time.Second},
		{"unknown strategy behaves as exponential", domain.BackoffStrategy("bogus"), 2, 1, 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Backoff(tt.strategy, tt.base, tt.attempt)
			if got != tt.want {
				t.Errorf("Backoff(%s, %v, %d) = %v, want %v", tt.strategy, tt.base, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoff_Cap(t *testing.T) {
	got := Backoff(domain.BackoffExponential, 60, 20)
	if got != maxBackoff {
		t.Errorf("expected delay capped at %v, got %v", maxBackoff, got)
	}
}
