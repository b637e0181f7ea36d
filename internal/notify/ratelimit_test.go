package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSender struct{ n int }

func (c *countingSender) Send(context.Context, string, string, string) error {
	c.n++
	return nil
}

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0, 5) != nil {
		t.Fatal("rps 0 must mean unlimited (nil)")
	}
	l := NewLimiter(2, 0)
	if l == nil || l.Burst() != 1 || float64(l.Limit()) != 2 {
		t.Fatalf("limiter = %+v", l)
	}
}

func TestLimit_NilLimiterPassesThrough(t *testing.T) {
	cs := &countingSender{}
	if got := Limit(cs, nil); got != Sender(cs) {
		t.Fatalf("Limit(nil) = %T; want original sender", got)
	}
}

func TestRateLimited_WaitsForToken(t *testing.T) {
	cs := &countingSender{}
	s := Limit(cs, NewLimiter(0.001, 1))

	if err := s.Send(context.Background(), "a", "", ""); err != nil {
		t.Fatalf("first send uses the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, "b", "", "")
	if err == nil {
		t.Fatal("second send must fail waiting for a token")
	}
	if cs.n != 1 {
		t.Fatalf("sends = %d; want 1", cs.n)
	}
}

func TestRateLimited_SharedLimiter(t *testing.T) {
	l := NewLimiter(0.001, 1)
	a, b := &countingSender{}, &countingSender{}
	sa, sb := Limit(a, l), Limit(b, l)

	if err := sa.Send(context.Background(), "x", "", ""); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sb.Send(ctx, "y", "", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if b.n != 0 {
		t.Fatal("shared bucket already drained; b must not send")
	}
}
