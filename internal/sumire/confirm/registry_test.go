package confirm

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistry_FIFOOrder(t *testing.T) {
	r := NewRegistry(WithTTL(time.Hour))
	defer r.Close()

	r.Register("@u:example.org", Pending{Tag: "wwChange"})
	r.Register("@u:example.org", Pending{Tag: "tzChange"})

	if tag, ok := r.Peek("@u:example.org"); !ok || tag != "wwChange" {
		t.Fatalf("Peek = %q, %v; want head wwChange", tag, ok)
	}

	p, err := r.Pop("@u:example.org")
	if err != nil || p.Tag != "wwChange" {
		t.Fatalf("first Pop = %q, %v", p.Tag, err)
	}
	p, err = r.Pop("@u:example.org")
	if err != nil || p.Tag != "tzChange" {
		t.Fatalf("second Pop = %q, %v", p.Tag, err)
	}
	if _, err := r.Pop("@u:example.org"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("empty Pop err = %v, want ErrNoPending", err)
	}
}

func TestRegistry_UsersAreIndependent(t *testing.T) {
	r := NewRegistry(WithTTL(time.Hour))
	defer r.Close()

	r.Register("@a:example.org", Pending{Tag: "locChange"})

	if _, ok := r.Peek("@b:example.org"); ok {
		t.Fatal("user b should have nothing pending")
	}
	if _, err := r.Pop("@b:example.org"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("Pop for other user err = %v, want ErrNoPending", err)
	}
	if _, ok := r.Peek("@a:example.org"); !ok {
		t.Fatal("user a's entry must survive user b's operations")
	}
}

func TestRegistry_AppendDoesNotRefreshDeadline(t *testing.T) {
	now := time.Now()
	r := NewRegistry(WithTTL(time.Hour))
	defer r.Close()
	r.now = func() time.Time { return now }

	r.Register("@u:example.org", Pending{Tag: "first"})
	now = now.Add(10 * time.Minute)
	r.Register("@u:example.org", Pending{Tag: "second"})

	q := r.queues["@u:example.org"]
	if len(q) != 2 {
		t.Fatalf("queue length = %d, want 2", len(q))
	}
	if !q[1].ExpiresAt.After(q[0].ExpiresAt) {
		t.Error("second entry must expire after the first")
	}
	if got := q[1].ExpiresAt.Sub(q[0].ExpiresAt); got != 10*time.Minute {
		t.Errorf("deadline gap = %v, want 10m (each entry keeps its own deadline)", got)
	}
}

func TestRegistry_PopAfterDeadlineIsNoPending(t *testing.T) {
	now := time.Now()
	var expired atomic.Int32
	r := NewRegistry(
		WithTTL(time.Hour),
		WithExpiryHook(func(userID string, p Pending, wasHead bool, next *Pending) {
			expired.Add(1)
			if !wasHead {
				t.Error("expired entry was the head")
			}
		}),
	)
	defer r.Close()
	r.now = func() time.Time { return now }

	r.Register("@u:example.org", Pending{Tag: "wwChange"})

	// The deadline passes but the wall-clock timer has not fired yet.
	now = now.Add(2 * time.Hour)

	if _, err := r.Pop("@u:example.org"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("Pop past deadline err = %v, want ErrNoPending", err)
	}
	if got := expired.Load(); got != 1 {
		t.Errorf("expiry hook fired %d times, want 1", got)
	}
	// The stale entry is gone for good.
	if _, ok := r.Peek("@u:example.org"); ok {
		t.Error("expired entry must not linger in the queue")
	}
}

func TestRegistry_TimerExpiresEntry(t *testing.T) {
	done := make(chan Pending, 1)
	r := NewRegistry(
		WithTTL(20*time.Millisecond),
		WithExpiryHook(func(userID string, p Pending, wasHead bool, next *Pending) {
			done <- p
		}),
	)
	defer r.Close()

	r.Register("@u:example.org", Pending{Tag: "locChange"})

	select {
	case p := <-done:
		if p.Tag != "locChange" {
			t.Errorf("expired tag = %q", p.Tag)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	if _, ok := r.Peek("@u:example.org"); ok {
		t.Error("queue must be empty after timeout")
	}
}

func TestRegistry_TimeoutVsPopFiresExactlyOnce(t *testing.T) {
	var expired atomic.Int32
	r := NewRegistry(
		WithTTL(5*time.Millisecond),
		WithExpiryHook(func(string, Pending, bool, *Pending) { expired.Add(1) }),
	)
	defer r.Close()

	r.Register("@u:example.org", Pending{Tag: "wwChange"})
	time.Sleep(5 * time.Millisecond)

	popped := 0
	if _, err := r.Pop("@u:example.org"); err == nil {
		popped = 1
	}

	// Give a racing timer time to run, then require exactly one winner.
	time.Sleep(50 * time.Millisecond)
	if total := popped + int(expired.Load()); total != 1 {
		t.Errorf("entry resolved %d times (popped=%d expired=%d), want exactly 1",
			total, popped, expired.Load())
	}
}

func TestRegistry_CancelHandle(t *testing.T) {
	var expired atomic.Int32
	r := NewRegistry(
		WithTTL(20*time.Millisecond),
		WithExpiryHook(func(string, Pending, bool, *Pending) { expired.Add(1) }),
	)
	defer r.Close()

	cancel, pos := r.Register("@u:example.org", Pending{Tag: "wwChange"})
	if pos != 0 {
		t.Fatalf("pos = %d, want 0", pos)
	}
	cancel()
	cancel() // safe to repeat

	if _, ok := r.Peek("@u:example.org"); ok {
		t.Error("cancelled entry must be removed")
	}
	time.Sleep(60 * time.Millisecond)
	if expired.Load() != 0 {
		t.Error("cancelled entry must not reach the expiry hook")
	}
}

func TestRegistry_ExpireIsIdempotent(t *testing.T) {
	r := NewRegistry(WithTTL(time.Hour))
	defer r.Close()

	r.Expire("@u:example.org") // nothing pending: no-op

	r.Register("@u:example.org", Pending{Tag: "wwChange"})
	r.Register("@u:example.org", Pending{Tag: "tzChange"})
	r.Expire("@u:example.org")
	r.Expire("@u:example.org")

	if _, err := r.Pop("@u:example.org"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("Pop after Expire err = %v, want ErrNoPending", err)
	}
}

func TestRegistry_RegisterReportsQueuePosition(t *testing.T) {
	r := NewRegistry(WithTTL(time.Hour))
	defer r.Close()

	if _, pos := r.Register("@u:example.org", Pending{Tag: "a"}); pos != 0 {
		t.Errorf("first pos = %d, want 0", pos)
	}
	if _, pos := r.Register("@u:example.org", Pending{Tag: "b"}); pos != 1 {
		t.Errorf("second pos = %d, want 1", pos)
	}
}
