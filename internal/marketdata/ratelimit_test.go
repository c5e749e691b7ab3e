package marketdata

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
	}
	if rl.tryAcquire() {
		t.Fatal("expected bucket to be empty after burst")
	}
}

func TestRateLimiterWaitHonoursCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first token: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := rl.Wait(cancelled); err == nil {
		t.Fatal("expected Wait to fail once context expires")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first token: %v", err)
	}
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("refilled token: %v", err)
	}
}
