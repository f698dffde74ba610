package statemanager_test

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/Pir-CHILD/RTC-Learning/pkg/state"
	"github.com/Pir-CHILD/RTC-Learning/pkg/state/statemanager"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	// Discard logger output during tests by setting a high level
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func newTestRegistry() *statemanager.InMemoryRegistry {
	return statemanager.NewInMemoryRegistry(newTestLogger())
}

type nopHandle struct{}

func (nopHandle) Send([]byte) error { return nil }
func (nopHandle) Close(error)       {}

// --- Session Lifecycle Tests ---

func TestSessionLifecycle(t *testing.T) {
	r := newTestRegistry()

	sess, err := r.Register(1, nopHandle{}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if sess.ID != 1 {
		t.Errorf("Registered session ID mismatch: got %d", sess.ID)
	}
	if sess.State != state.StateConnecting {
		t.Errorf("Expected new session in connecting state, got %v", sess.State)
	}

	retrieved, found := r.Get(1)
	if !found {
		t.Fatal("Get failed to find registered session")
	}
	if retrieved.ID != 1 {
		t.Errorf("Retrieved session ID mismatch")
	}

	if !r.Deregister(1) {
		t.Fatal("Deregister reported no session removed")
	}
	if _, found = r.Get(1); found {
		t.Error("Found session after it should have been deregistered")
	}
	if sess.State != state.StateClosed {
		t.Errorf("Expected closed state after deregister, got %v", sess.State)
	}
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Register(7, nopHandle{}, "1.1.1.1"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	_, err := r.Register(7, nopHandle{}, "2.2.2.2")
	if !errors.Is(err, state.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

func TestDeregisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")

	if !r.Deregister(1) {
		t.Fatal("first Deregister reported no removal")
	}
	if r.Deregister(1) {
		t.Error("second Deregister reported a removal")
	}
	if r.Deregister(99) {
		t.Error("Deregister of never-registered id reported a removal")
	}
}

// --- Display Name Tests ---

func TestSetNameUniqueness(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.Register(2, nopHandle{}, "2.2.2.2")

	if err := r.SetName(1, "alice"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	if err := r.SetName(2, "alice"); !errors.Is(err, state.ErrNameTaken) {
		t.Fatalf("Expected ErrNameTaken, got %v", err)
	}

	// The loser keeps its previous (absent) name.
	sess, _ := r.Get(2)
	if sess.Name != "" {
		t.Errorf("Losing session should have no name, got %q", sess.Name)
	}

	found, ok := r.FindByName("alice")
	if !ok || found.ID != 1 {
		t.Errorf("FindByName resolved to the wrong session")
	}
}

func TestSetNameUnknownSession(t *testing.T) {
	r := newTestRegistry()
	if err := r.SetName(42, "ghost"); !errors.Is(err, state.ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestSetNameReleasesPreviousName(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.Register(2, nopHandle{}, "2.2.2.2")

	r.SetName(1, "alice")
	if err := r.SetName(1, "alicia"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, found := r.FindByName("alice"); found {
		t.Error("old name still resolves after rename")
	}
	// The freed name is immediately available to another session.
	if err := r.SetName(2, "alice"); err != nil {
		t.Errorf("freed name not reusable: %v", err)
	}
}

func TestSetNameOwnNameIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.SetName(1, "alice")
	if err := r.SetName(1, "alice"); err != nil {
		t.Errorf("re-asserting own name should succeed, got %v", err)
	}
}

func TestNameReusableAfterDisconnect(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.Register(2, nopHandle{}, "2.2.2.2")
	r.SetName(1, "alice")

	r.Deregister(1)
	if err := r.SetName(2, "alice"); err != nil {
		t.Errorf("name should be reusable after disconnect, got %v", err)
	}
}

func TestConcurrentRenameSingleWinner(t *testing.T) {
	r := newTestRegistry()
	const sessions = 32
	for i := int64(1); i <= sessions; i++ {
		r.Register(i, nopHandle{}, "1.1.1.1")
	}

	var wg sync.WaitGroup
	results := make([]error, sessions)
	for i := int64(1); i <= sessions; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			results[id-1] = r.SetName(id, "contested")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, state.ErrNameTaken):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("Expected exactly one session to win the name, got %d", winners)
	}
}

// --- Snapshot and Ordering Tests ---

func TestSnapshotNamesOrderAndExclusion(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.Register(2, nopHandle{}, "2.2.2.2")
	r.Register(3, nopHandle{}, "3.3.3.3")

	// Commit names out of registration order; the roster still follows
	// registration order, and the unnamed session is excluded.
	r.SetName(3, "carol")
	r.SetName(1, "alice")

	names := r.SnapshotNames()
	if len(names) != 2 || names[0] != "alice" || names[1] != "carol" {
		t.Errorf("Unexpected snapshot: %v", names)
	}

	sessions := r.AllSessions()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 live sessions, got %d", len(sessions))
	}
	for i, want := range []int64{1, 2, 3} {
		if sessions[i].ID != want {
			t.Errorf("AllSessions order mismatch at %d: got %d want %d", i, sessions[i].ID, want)
		}
	}
}

func TestCountByIP(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, nopHandle{}, "1.1.1.1")
	r.Register(2, nopHandle{}, "1.1.1.1")
	r.Register(3, nopHandle{}, "2.2.2.2")

	if got := r.CountByIP("1.1.1.1"); got != 2 {
		t.Errorf("CountByIP = %d, want 2", got)
	}
	r.Deregister(1)
	if got := r.CountByIP("1.1.1.1"); got != 1 {
		t.Errorf("CountByIP after deregister = %d, want 1", got)
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}
