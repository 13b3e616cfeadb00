package registry

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func mkRecord(chatID, userID int64) *Record {
	return &Record{
		ChatID:        chatID,
		UserID:        userID,
		ExpectedToken: "token",
		Prompt:        1,
		CreatedAt:     time.Now(),
		Cancel:        NewCancelToken(),
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	r := New()

	if !r.Create(mkRecord(1, 2)) {
		t.Fatal("first Create failed")
	}
	if r.Create(mkRecord(1, 2)) {
		t.Error("second Create for the same key succeeded")
	}
	if r.Len() != 1 {
		t.Errorf("got %d records, want 1", r.Len())
	}

	// Taking frees the key for a fresh challenge.
	if _, ok := r.Take(1, 2); !ok {
		t.Fatal("Take failed on a live record")
	}
	if !r.Create(mkRecord(1, 2)) {
		t.Error("Create after Take failed")
	}
}

func TestTakeIsOneShot(t *testing.T) {
	r := New()
	r.Create(mkRecord(1, 2))

	if _, ok := r.Take(1, 2); !ok {
		t.Fatal("first Take failed")
	}
	if _, ok := r.Take(1, 2); ok {
		t.Error("second Take on the same key succeeded")
	}
	if _, ok := r.Take(99, 100); ok {
		t.Error("Take for an unknown key succeeded")
	}
}

func TestEmptyChatIsCollected(t *testing.T) {
	r := New()
	r.Create(mkRecord(1, 2))
	r.Create(mkRecord(1, 3))
	r.Create(mkRecord(4, 5))

	r.Take(1, 2)
	if r.Chats() != 2 {
		t.Errorf("got %d chats, want 2 while chat 1 still has a record", r.Chats())
	}

	r.Take(1, 3)
	if r.Chats() != 1 {
		t.Errorf("got %d chats, want 1 after chat 1 emptied", r.Chats())
	}

	r.Take(4, 5)
	if r.Chats() != 0 {
		t.Errorf("got %d chats, want 0", r.Chats())
	}
}

func TestActive(t *testing.T) {
	r := New()

	if r.Active(1, 2) {
		t.Error("Active true before Create")
	}
	r.Create(mkRecord(1, 2))
	if !r.Active(1, 2) {
		t.Error("Active false after Create")
	}
	r.Take(1, 2)
	if r.Active(1, 2) {
		t.Error("Active true after Take")
	}
}

func TestConcurrentTakeSingleWinner(t *testing.T) {
	const callers = 64

	for trial := range 100 {
		r := New()
		r.Create(mkRecord(1, 2))

		var wins atomic.Int64
		var start, done sync.WaitGroup
		start.Add(1)
		done.Add(callers)

		for range callers {
			go func() {
				defer done.Done()
				start.Wait()
				if _, ok := r.Take(1, 2); ok {
					wins.Add(1)
				}
			}()
		}

		start.Done()
		done.Wait()

		if got := wins.Load(); got != 1 {
			t.Fatalf("trial %d: %d winners, want exactly 1", trial, got)
		}
	}
}

func TestCancelTokenIdempotent(t *testing.T) {
	c := NewCancelToken()

	select {
	case <-c.Done():
		t.Fatal("token fired before Cancel")
	default:
	}

	c.Cancel()
	c.Cancel()

	select {
	case <-c.Done():
	default:
		t.Fatal("token did not fire after Cancel")
	}
}
