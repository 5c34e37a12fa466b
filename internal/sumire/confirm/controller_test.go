package confirm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/vocab"
)

const user = "@mika:example.org"

// spyAnnouncer records announced line keys in order.
type spyAnnouncer struct {
	mu   sync.Mutex
	keys []string
}

func (a *spyAnnouncer) Announce(_ context.Context, _, key string, _ dialog.Params) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
}

func (a *spyAnnouncer) announced() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.keys...)
}

// spyRecorder records audit outcomes in order.
type spyRecorder struct {
	mu       sync.Mutex
	outcomes []confirm.Outcome
}

func (r *spyRecorder) Record(_ context.Context, _, _ string, outcome confirm.Outcome, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *spyRecorder) recorded() []confirm.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]confirm.Outcome(nil), r.outcomes...)
}

func newController(t *testing.T, opts ...confirm.Option) (*confirm.Controller, *spyAnnouncer, *spyRecorder) {
	t.Helper()
	words, err := vocab.LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin: %v", err)
	}
	announcer := &spyAnnouncer{}
	recorder := &spyRecorder{}
	opts = append(opts, confirm.WithRecorder(recorder))
	c := confirm.New(vocab.NewClassifier(words), announcer, opts...)
	t.Cleanup(c.Close)
	return c, announcer, recorder
}

func ask(c *confirm.Controller, tag, question string, commit confirm.Commit) {
	c.Request(context.Background(), user, confirm.Pending{
		Tag:      tag,
		Commit:   commit,
		Question: question,
		Lang:     "en-us",
	})
}

func TestRequest_PosesExactlyOneQuestion(t *testing.T) {
	c, announcer, _ := newController(t)

	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error { return nil })

	got := announcer.announced()
	if len(got) != 1 || got[0] != "ConfirmNewWakePhrase" {
		t.Fatalf("announced %v, want exactly the question", got)
	}
	if !c.HasPending(user) {
		t.Error("question must be pending after Request")
	}
}

func TestResolve_AffirmCommitsExactlyOnce(t *testing.T) {
	c, _, recorder := newController(t)

	commits := 0
	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error {
		commits++
		return nil
	})

	if !c.Resolve(context.Background(), user, "yes please", "en-us") {
		t.Fatal("affirmation must consume the turn")
	}
	if commits != 1 {
		t.Fatalf("commit ran %d times, want 1", commits)
	}

	// A second yes has nothing to answer: passthrough, no re-fire.
	if c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Error("second yes must not be consumed")
	}
	if commits != 1 {
		t.Errorf("commit re-fired: %d runs", commits)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != confirm.OutcomeAffirmed {
		t.Errorf("recorded %v, want [affirmed]", got)
	}
}

func TestResolve_DenyDiscardsWithoutCommit(t *testing.T) {
	c, announcer, recorder := newController(t)

	ask(c, "PermitAudioRecording", "ConfirmTranscription", func(context.Context) error {
		t.Error("denied action must never commit")
		return nil
	})

	if !c.Resolve(context.Background(), user, "no thanks", "en-us") {
		t.Fatal("denial must consume the turn")
	}
	if c.HasPending(user) {
		t.Error("denied question must be cleared")
	}
	got := announcer.announced()
	if len(got) != 2 || got[1] != "ActionCancelled" {
		t.Errorf("announced %v, want cancellation after the question", got)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != confirm.OutcomeDenied {
		t.Errorf("recorded %v, want [denied]", got)
	}
}

func TestResolve_UnrelatedPreservesPending(t *testing.T) {
	c, _, _ := newController(t)

	commits := 0
	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error {
		commits++
		return nil
	})

	if c.Resolve(context.Background(), user, "what time is it", "en-us") {
		t.Fatal("unrelated utterance must not be consumed")
	}
	if !c.HasPending(user) {
		t.Fatal("unrelated turn must leave the question armed")
	}
	if !c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Fatal("question must still be answerable after an unrelated turn")
	}
	if commits != 1 {
		t.Errorf("commit ran %d times, want 1", commits)
	}
}

func TestResolve_NothingPending(t *testing.T) {
	c, _, _ := newController(t)

	if c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Error("yes with nothing pending must flow through")
	}
}

func TestResolve_CommitFailureClearsEntry(t *testing.T) {
	c, announcer, recorder := newController(t)

	commits := 0
	ask(c, "locChange", "AlsoChange", func(context.Context) error {
		commits++
		return errors.New("geocoder unreachable")
	})

	if !c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Fatal("failed commit still consumes the turn")
	}
	got := announcer.announced()
	if len(got) != 2 || got[1] != "SomethingWentWrong" {
		t.Errorf("announced %v, want apology after the question", got)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != confirm.OutcomeFailed {
		t.Errorf("recorded %v, want [failed]", got)
	}

	// The entry is gone: yes again must not retry the commit.
	if c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Error("cleared question must not be re-answerable")
	}
	if commits != 1 {
		t.Errorf("commit ran %d times, want 1", commits)
	}
}

func TestQueuedQuestionsPoseInOrder(t *testing.T) {
	c, announcer, _ := newController(t)

	var order []string
	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error {
		order = append(order, "ww")
		return nil
	})
	ask(c, "PermitAudioRecording", "ConfirmTranscription", func(context.Context) error {
		order = append(order, "audio")
		return nil
	})

	// Only the first question has been posed.
	if got := announcer.announced(); len(got) != 1 || got[0] != "ConfirmNewWakePhrase" {
		t.Fatalf("announced %v, want only the first question", got)
	}

	if !c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Fatal("first answer must be consumed")
	}
	// Resolving the first poses the second.
	if got := announcer.announced(); len(got) != 2 || got[1] != "ConfirmTranscription" {
		t.Fatalf("announced %v, want the second question after the first resolves", got)
	}

	if !c.Resolve(context.Background(), user, "no", "en-us") {
		t.Fatal("second answer must be consumed")
	}
	if len(order) != 1 || order[0] != "ww" {
		t.Errorf("commits = %v, want only the affirmed first action", order)
	}
	if c.HasPending(user) {
		t.Error("queue must be drained")
	}
}

func TestTimeout_ClearsWithoutCommit(t *testing.T) {
	c, _, recorder := newController(t, confirm.WithTimeout(20*time.Millisecond))

	ask(c, "tzChange", "AlsoChange", func(context.Context) error {
		t.Error("timed-out action must never commit")
		return nil
	})

	deadline := time.Now().Add(2 * time.Second)
	for c.HasPending(user) {
		if time.Now().After(deadline) {
			t.Fatal("pending question never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Error("yes after expiry must flow through")
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != confirm.OutcomeExpired {
		t.Errorf("recorded %v, want [expired]", got)
	}
}

func TestTimeout_SilentByDefault(t *testing.T) {
	c, announcer, _ := newController(t, confirm.WithTimeout(20*time.Millisecond))

	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error { return nil })

	time.Sleep(200 * time.Millisecond)
	if got := announcer.announced(); len(got) != 1 {
		t.Errorf("announced %v, want only the question (silent expiry)", got)
	}
}

func TestTimeout_NoticeWhenEnabled(t *testing.T) {
	c, announcer, _ := newController(t,
		confirm.WithTimeout(20*time.Millisecond), confirm.WithExpiryNotice())

	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error { return nil })

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := announcer.announced()
		if len(got) >= 2 {
			if got[1] != "ExpiryNotice" {
				t.Fatalf("announced %v, want expiry notice second", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expiry notice never announced; got %v", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHesitationFillerPrecedesCommit(t *testing.T) {
	c, announcer, _ := newController(t,
		confirm.WithHesitation(func(context.Context, string) bool { return true }))

	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error { return nil })
	if !c.Resolve(context.Background(), user, "yes", "en-us") {
		t.Fatal("affirmation must be consumed")
	}

	got := announcer.announced()
	if len(got) != 2 {
		t.Fatalf("announced %v, want question then filler", got)
	}
	if got[1] != "FillerOkay" && got[1] != "FillerSoundsGood" {
		t.Errorf("second announcement %q is not a filler line", got[1])
	}
}

func TestCancelDropsEverythingSilently(t *testing.T) {
	c, announcer, recorder := newController(t)

	ask(c, "wwChange", "ConfirmNewWakePhrase", func(context.Context) error {
		t.Error("cancelled action must never commit")
		return nil
	})
	c.Cancel(user)

	if c.HasPending(user) {
		t.Error("Cancel must clear the queue")
	}
	if got := announcer.announced(); len(got) != 1 {
		t.Errorf("announced %v, want no speech beyond the question", got)
	}
	if got := recorder.recorded(); len(got) != 0 {
		t.Errorf("recorded %v, want nothing for a session cancel", got)
	}
}

func TestRequestLinked_AppliesThenAsks(t *testing.T) {
	c, announcer, _ := newController(t)

	applied := false
	err := c.RequestLinked(context.Background(), user, confirm.LinkedChange{
		ApplyNow: func(context.Context) error {
			applied = true
			return nil
		},
		Followup: confirm.Pending{
			Tag:      "tzChange",
			Commit:   func(context.Context) error { return nil },
			Question: "AlsoChange",
			Lang:     "en-us",
		},
	})
	if err != nil {
		t.Fatalf("RequestLinked: %v", err)
	}
	if !applied {
		t.Error("first change must apply immediately")
	}
	if got := announcer.announced(); len(got) != 1 || got[0] != "AlsoChange" {
		t.Errorf("announced %v, want the follow-up question", got)
	}
	if !c.HasPending(user) {
		t.Error("follow-up must be pending")
	}
}

func TestRequestLinked_ApplyFailureSkipsQuestion(t *testing.T) {
	c, announcer, _ := newController(t)

	err := c.RequestLinked(context.Background(), user, confirm.LinkedChange{
		ApplyNow: func(context.Context) error { return errors.New("lookup failed") },
		Followup: confirm.Pending{
			Tag:      "tzChange",
			Commit:   func(context.Context) error { return nil },
			Question: "AlsoChange",
			Lang:     "en-us",
		},
	})
	if err == nil {
		t.Fatal("expected the apply error back")
	}
	if c.HasPending(user) {
		t.Error("failed apply must not pose the follow-up")
	}
	if got := announcer.announced(); len(got) != 0 {
		t.Errorf("announced %v, want nothing", got)
	}
}
