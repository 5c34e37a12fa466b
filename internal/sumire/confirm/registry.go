// Package confirm implements the deferred-confirmation protocol: sensitive
// settings changes are held as pending yes/no questions, per user, and only
// committed when the user affirms within a bounded window.
//
// The live pending state is in-memory on purpose.  A pending question is
// conversational state tied to a running session; unlike a durable approval
// queue it has no meaning after a restart, when the question would be long
// forgotten by the user anyway.  Resolved outcomes are still written to the
// confirmation_log table for auditing (see Recorder).
package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bdobrica/Sumire/internal/sumire/dialog"
)

// DefaultTTL is how long a pending confirmation remains answerable.
const DefaultTTL = 30 * time.Second

// ErrNoPending is returned by Pop when the user has nothing pending.  Most
// conversational turns are unrelated to any confirmation, so callers treat
// this as a routine no-op, not a failure.
var ErrNoPending = errors.New("confirm: nothing pending")

// Commit is the capability executed only upon affirmation.  It receives the
// resolving turn's context so it can re-run time-sensitive lookups instead
// of relying on data cached at request time.
type Commit func(ctx context.Context) error

// Pending is a snapshot of one queued confirmation entry.
type Pending struct {
	Tag       string
	Commit    Commit
	CreatedAt time.Time
	ExpiresAt time.Time

	// Question names the dialog line to pose for this entry, with its
	// parameters and language.  Queued entries keep their question here
	// until they reach the head of the queue.
	Question       string
	QuestionParams dialog.Params
	Lang           string
}

// entry is the internal, timer-carrying form of a Pending.
type entry struct {
	Pending
	timer *time.Timer
}

// ExpiryHook is called after an entry is removed by timeout.  wasHead
// reports whether the expired entry was at the front of the user's queue
// (i.e. its question had been posed).  next is the new head entry whose
// question should now be posed, or nil.  The hook runs outside the registry
// lock.
type ExpiryHook func(userID string, expired Pending, wasHead bool, next *Pending)

// Registry tracks outstanding confirmation requests per user.
//
// Each user has at most one record: registering a second confirmation while
// one is pending appends to the user's FIFO queue rather than replacing it.
// Every queued entry carries its own deadline, measured from registration —
// appending a new ask never refreshes an older one, so a stale question
// cannot be kept alive by piling more on top of it.
//
// All operations on the same user are serialised by an internal mutex; the
// race between a firing timeout and a concurrent Pop is resolved by whoever
// takes the lock first, and the loser finds nothing left to do.
type Registry struct {
	mu       sync.Mutex
	queues   map[string][]*entry
	ttl      time.Duration
	now      func() time.Time
	onExpire ExpiryHook
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTTL sets how long each registered entry remains answerable.
func WithTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithExpiryHook installs the callback invoked when an entry times out.
func WithExpiryHook(hook ExpiryHook) RegistryOption {
	return func(r *Registry) {
		r.onExpire = hook
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		queues: make(map[string][]*entry),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a (tag, commit) pair to the user's queue, creating the
// queue if absent, and arms the entry's expiry timer.  pos is the entry's
// position in the queue: 0 means it is the head and its question should be
// posed now.  The returned cancellation handle removes the entry without
// invoking either the commit or the expiry hook; calling it after the entry
// resolved or expired is a no-op.
func (r *Registry) Register(userID string, p Pending) (cancel func(), pos int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	p.CreatedAt = now
	p.ExpiresAt = now.Add(r.ttl)
	e := &entry{Pending: p}
	e.timer = time.AfterFunc(r.ttl, func() { r.expireEntry(userID, e) })
	pos = len(r.queues[userID])
	r.queues[userID] = append(r.queues[userID], e)

	return func() { r.remove(userID, e) }, pos
}

// Peek returns the head tag of the user's queue without consuming it.
func (r *Registry) Peek(userID string) (tag string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[userID]
	if len(q) == 0 {
		return "", false
	}
	return q[0].Tag, true
}

// Pop removes and returns the head entry of the user's queue, cancelling
// its timer.  A head entry whose deadline has already passed (the timer has
// not fired yet) is discarded via the normal expiry path and ErrNoPending
// is returned, so a clock race never hands a stale commit to the caller.
func (r *Registry) Pop(userID string) (Pending, error) {
	r.mu.Lock()
	q := r.queues[userID]
	if len(q) == 0 {
		r.mu.Unlock()
		return Pending{}, ErrNoPending
	}

	head := q[0]
	head.timer.Stop()
	r.dropHead(userID)

	if r.now().After(head.ExpiresAt) {
		next := r.headSnapshot(userID)
		hook := r.onExpire
		r.mu.Unlock()
		if hook != nil {
			hook(userID, head.Pending, true, next)
		}
		return Pending{}, ErrNoPending
	}

	r.mu.Unlock()
	return head.Pending, nil
}

// Next returns a snapshot of the user's current head entry, or nil.  Used
// by the controller to pose the next queued question after one resolves.
func (r *Registry) Next(userID string) *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headSnapshot(userID)
}

// Expire removes everything pending for the user without running commits.
// It is idempotent: expiring a user with nothing pending is a no-op.
func (r *Registry) Expire(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.queues[userID] {
		e.timer.Stop()
	}
	delete(r.queues, userID)
}

// Close stops every timer.  The registry must not be used afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range r.queues {
		for _, e := range q {
			e.timer.Stop()
		}
	}
	r.queues = make(map[string][]*entry)
}

// expireEntry is the timer callback for one entry.  If the entry was
// already resolved or cancelled it finds nothing and returns; the timeout
// and a racing Pop can both run safely in either order.
func (r *Registry) expireEntry(userID string, target *entry) {
	r.mu.Lock()
	idx := r.indexOf(userID, target)
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	wasHead := idx == 0
	r.removeAt(userID, idx)
	next := r.headSnapshot(userID)
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		hook(userID, target.Pending, wasHead, next)
	}
}

// remove deletes a specific entry if still present (cancellation handle).
func (r *Registry) remove(userID string, target *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(userID, target)
	if idx < 0 {
		return
	}
	target.timer.Stop()
	r.removeAt(userID, idx)
}

// Callers must hold r.mu for the helpers below.

func (r *Registry) indexOf(userID string, target *entry) int {
	for i, e := range r.queues[userID] {
		if e == target {
			return i
		}
	}
	return -1
}

func (r *Registry) dropHead(userID string) {
	r.removeAt(userID, 0)
}

func (r *Registry) removeAt(userID string, idx int) {
	q := r.queues[userID]
	q = append(q[:idx], q[idx+1:]...)
	if len(q) == 0 {
		delete(r.queues, userID)
	} else {
		r.queues[userID] = q
	}
}

func (r *Registry) headSnapshot(userID string) *Pending {
	q := r.queues[userID]
	if len(q) == 0 {
		return nil
	}
	p := q[0].Pending
	return &p
}
