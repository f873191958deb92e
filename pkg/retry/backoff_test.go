package retry

import (
	"testing"
	"time"
)

func TestFixedBackoff(t *testing.T) {
	delay := 100 * time.Millisecond
	backoff := NewFixedBackoff(delay)

	for _, failures := range []int{1, 2, 3, 10} {
		if got := backoff.NextDelay(failures); got != delay {
			t.Errorf("NextDelay(%d) = %v, want %v", failures, got, delay)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff(100*time.Millisecond,
		WithBackoffMultiplier(2.0),
		WithBackoffMaxDelay(1*time.Second))

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1000 * time.Millisecond},  // Limited by max delay
		{10, 1000 * time.Millisecond}, // Limited by max delay
	}

	for _, tt := range tests {
		if got := backoff.NextDelay(tt.failures); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := NewLinearBackoff(100*time.Millisecond, 50*time.Millisecond,
		WithBackoffMaxDelay(500*time.Millisecond))

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 150 * time.Millisecond},
		{5, 300 * time.Millisecond},
		{10, 500 * time.Millisecond}, // Limited by max delay
	}

	for _, tt := range tests {
		if got := backoff.NextDelay(tt.failures); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestJitterFunctions(t *testing.T) {
	delay := 1000 * time.Millisecond

	for i := 0; i < 100; i++ {
		jittered := FullJitter(delay)
		if jittered < 0 || jittered > delay {
			t.Errorf("FullJitter result %v out of range [0, %v]", jittered, delay)
		}
	}

	half := delay / 2
	for i := 0; i < 100; i++ {
		jittered := EqualJitter(delay)
		if jittered < half || jittered > delay {
			t.Errorf("EqualJitter result %v out of range [%v, %v]", jittered, half, delay)
		}
	}
}

func TestJitterWithTinyDelay(t *testing.T) {
	if FullJitter(0) != 0 {
		t.Error("FullJitter with zero delay should return 0")
	}
	if EqualJitter(0) != 0 {
		t.Error("EqualJitter with zero delay should return 0")
	}
	if got := EqualJitter(1); got != 1 {
		t.Errorf("EqualJitter(1ns) = %v, want 1ns", got)
	}
}

func TestBackoffEdgeCases(t *testing.T) {
	t.Run("zero and negative failures", func(t *testing.T) {
		backoff := NewExponentialBackoff(100 * time.Millisecond)

		delay0 := backoff.NextDelay(0)
		delay1 := backoff.NextDelay(1)
		delayNeg := backoff.NextDelay(-1)

		if delay0 != delay1 || delay1 != delayNeg {
			t.Errorf("Zero/negative failures handling: %v, %v, %v", delay0, delay1, delayNeg)
		}
	})

	t.Run("very large failure counts", func(t *testing.T) {
		maxDelay := 10 * time.Second
		backoff := NewExponentialBackoff(1*time.Millisecond, WithBackoffMaxDelay(maxDelay))

		for _, failures := range []int{100, 5000} {
			if delay := backoff.NextDelay(failures); delay != maxDelay {
				t.Errorf("NextDelay(%d) = %v, want %v", failures, delay, maxDelay)
			}
		}
	})

	t.Run("fixed with jitter stays in range", func(t *testing.T) {
		delay := 100 * time.Millisecond
		backoff := NewFixedBackoff(delay, WithBackoffJitter(EqualJitter))

		for i := 0; i < 50; i++ {
			if got := backoff.NextDelay(1); got < delay/2 || got > delay {
				t.Errorf("Jittered delay %v out of expected range [%v, %v]", got, delay/2, delay)
			}
		}
	})
}

func BenchmarkExponentialBackoff(b *testing.B) {
	backoff := NewExponentialBackoff(100 * time.Millisecond)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		backoff.NextDelay(i%10 + 1)
	}
}
