package sink

import (
	"context"
	"errors"
	"testing"
)

type fakeSink struct {
	name  string
	fail  bool
	count int
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Notify(ctx context.Context, ev Event) error {
	f.count++
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func TestFanOutIsolatesFailures(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", fail: true}
	after := &fakeSink{name: "after"}

	FanOut(context.Background(), []Interface{good, bad, after}, Event{UserID: 1})

	for _, s := range []*fakeSink{good, bad, after} {
		if s.count != 1 {
			t.Errorf("sink %s: notified %d times, want 1", s.name, s.count)
		}
	}
}

func TestFanOutEmpty(t *testing.T) {
	FanOut(context.Background(), nil, Event{})
}
