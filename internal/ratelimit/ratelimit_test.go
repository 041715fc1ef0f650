package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auxwars/auxwars/internal/store"
)

func newTestLimiter(limits Limits) (*Limiter, *time.Time) {
	now := time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)
	l := New(store.NewMemory(), limits)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllow_WithinBudget(t *testing.T) {
	l, _ := newTestLimiter(Limits{ClassVote: {Requests: 3, Window: time.Minute}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := l.Allow(ctx, ClassVote, "alice"); !d.Allowed {
			t.Fatalf("request %d rejected within budget", i)
		}
	}
	d := l.Allow(ctx, ClassVote, "alice")
	if d.Allowed {
		t.Fatal("request over budget admitted")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("retry after = %v, want within the current window", d.RetryAfter)
	}
}

func TestAllow_ClientsAndClassesIsolated(t *testing.T) {
	l, _ := newTestLimiter(Limits{
		ClassVote: {Requests: 1, Window: time.Minute},
		ClassRead: {Requests: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if d := l.Allow(ctx, ClassVote, "alice"); !d.Allowed {
		t.Fatal("alice's first vote rejected")
	}
	if d := l.Allow(ctx, ClassVote, "alice"); d.Allowed {
		t.Fatal("alice's second vote admitted")
	}
	// Exhausting votes leaves alice's reads and bob's votes untouched.
	if d := l.Allow(ctx, ClassRead, "alice"); !d.Allowed {
		t.Error("alice's read rejected after vote exhaustion")
	}
	if d := l.Allow(ctx, ClassVote, "bob"); !d.Allowed {
		t.Error("bob's vote rejected after alice's exhaustion")
	}
}

func TestAllow_WindowRolls(t *testing.T) {
	l, now := newTestLimiter(Limits{ClassAdd: {Requests: 1, Window: time.Minute}})
	ctx := context.Background()

	if d := l.Allow(ctx, ClassAdd, "alice"); !d.Allowed {
		t.Fatal("first request rejected")
	}
	if d := l.Allow(ctx, ClassAdd, "alice"); d.Allowed {
		t.Fatal("second request admitted in same window")
	}
	*now = now.Add(time.Minute)
	if d := l.Allow(ctx, ClassAdd, "alice"); !d.Allowed {
		t.Error("request rejected after window rolled")
	}
}

func TestAllow_UnknownClassUnlimited(t *testing.T) {
	l, _ := newTestLimiter(Limits{})
	for i := 0; i < 100; i++ {
		if d := l.Allow(context.Background(), ClassRead, "alice"); !d.Allowed {
			t.Fatal("unlimited class rejected")
		}
	}
}

type failingStore struct{ store.Store }

func (failingStore) Incr(context.Context, string, int64) (int64, error) {
	return 0, errors.New("store down")
}

func TestAllow_FailsOpen(t *testing.T) {
	l := New(failingStore{}, Limits{ClassVote: {Requests: 1, Window: time.Minute}})
	for i := 0; i < 5; i++ {
		if d := l.Allow(context.Background(), ClassVote, "alice"); !d.Allowed {
			t.Fatal("limiter failed closed on store error")
		}
	}
}

func TestAllow_ConcurrentCounting(t *testing.T) {
	l, _ := newTestLimiter(Limits{ClassVote: {Requests: 10, Window: time.Minute}})
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make([]bool, 20)
	for i := range allowed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed[i] = l.Allow(ctx, ClassVote, "alice").Allowed
		}()
	}
	wg.Wait()

	n := 0
	for _, ok := range allowed {
		if ok {
			n++
		}
	}
	if n != 10 {
		t.Errorf("%d requests admitted, want exactly 10", n)
	}
}
