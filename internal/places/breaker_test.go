package places

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		b.Call(func() error { return errUpstream })
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	if err := b.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerClosedOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Hour})

	b.Call(func() error { return errUpstream })
	b.Call(func() error { return errUpstream })
	b.Call(func() error { return nil })

	// Success in closed state resets the failure count.
	b.Call(func() error { return errUpstream })
	b.Call(func() error { return errUpstream })

	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: 10 * time.Millisecond})

	b.Call(func() error { return errUpstream })
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe should run, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after successful probe", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})

	b.Call(func() error { return errUpstream })
	b.Reset()

	if b.State() != StateClosed {
		t.Fatal("reset should close the breaker")
	}
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("call after reset should run, got %v", err)
	}
}
