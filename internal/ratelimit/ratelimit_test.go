package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name      string
		perMinute int
		burst     int
		calls     int
		wantPass  int
	}{
		{
			name:      "burst allows initial requests",
			perMinute: 1,
			burst:     3,
			calls:     3,
			wantPass:  3,
		},
		{
			name:      "exceeding burst blocks",
			perMinute: 1,
			burst:     2,
			calls:     5,
			wantPass:  2,
		},
		{
			name:      "zero rate disables limiting",
			perMinute: 0,
			burst:     1,
			calls:     50,
			wantPass:  50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.perMinute, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("u1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_Refills(t *testing.T) {
	rl := New(60, 1) // One token per second
	defer rl.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("u1") {
		t.Fatal("first Allow() should pass")
	}
	if rl.Allow("u1") {
		t.Fatal("second Allow() should be limited")
	}

	now = now.Add(time.Second)
	if !rl.Allow("u1") {
		t.Error("Allow() should pass after refill")
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("u1")
	if rl.Allow("u1") {
		t.Error("u1 should be exhausted")
	}

	if !rl.Allow("u2") {
		t.Error("u2 should be independent and allowed")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(DefaultIdleTTL)
	rl.Allow("fresh")
	now = now.Add(time.Second)

	rl.evictIdle()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	// An evicted key starts over with a full bucket.
	if !rl.Allow("old") {
		t.Error("evicted key should be allowed again")
	}
}
