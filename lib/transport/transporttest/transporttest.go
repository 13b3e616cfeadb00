// Package transporttest provides an in-memory transport fake that
// records every call and can be told to fail specific operations.
package transporttest

import (
	"context"
	"sync"

	"github.com/atareao/expulsabot/lib/transport"
)

// Call is one recorded transport operation.
type Call struct {
	Op      string
	ChatID  int64
	UserID  int64
	Text    string
	Message transport.MessageID
	Answers []transport.Button
}

// Recorder implements transport.Interface. Zero value is ready to use.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	nextID transport.MessageID

	// Per-operation failure injection. A non-nil error makes the
	// matching operation return it.
	FailRestrict   error
	FailUnrestrict error
	FailBan        error
	FailSendPrompt error
	FailSendNotice error
	FailDelete     error
}

var _ transport.Interface = (*Recorder)(nil)

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Call, len(r.calls))
	copy(result, r.calls)
	return result
}

// Count returns how many calls with the given op were recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (r *Recorder) Restrict(_ context.Context, chatID, userID int64) error {
	if r.FailRestrict != nil {
		return r.FailRestrict
	}
	r.record(Call{Op: "restrict", ChatID: chatID, UserID: userID})
	return nil
}

func (r *Recorder) Unrestrict(_ context.Context, chatID, userID int64) error {
	if r.FailUnrestrict != nil {
		return r.FailUnrestrict
	}
	r.record(Call{Op: "unrestrict", ChatID: chatID, UserID: userID})
	return nil
}

func (r *Recorder) Ban(_ context.Context, chatID, userID int64) error {
	if r.FailBan != nil {
		return r.FailBan
	}
	r.record(Call{Op: "ban", ChatID: chatID, UserID: userID})
	return nil
}

func (r *Recorder) SendPrompt(_ context.Context, chatID int64, text string, answers []transport.Button) (transport.MessageID, error) {
	if r.FailSendPrompt != nil {
		return 0, r.FailSendPrompt
	}
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.calls = append(r.calls, Call{Op: "sendPrompt", ChatID: chatID, Text: text, Message: id, Answers: answers})
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) SendNotice(_ context.Context, chatID int64, text string) (transport.MessageID, error) {
	if r.FailSendNotice != nil {
		return 0, r.FailSendNotice
	}
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.calls = append(r.calls, Call{Op: "sendNotice", ChatID: chatID, Text: text, Message: id})
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) DeleteMessage(_ context.Context, chatID int64, id transport.MessageID) error {
	if r.FailDelete != nil {
		return r.FailDelete
	}
	r.record(Call{Op: "deleteMessage", ChatID: chatID, Message: id})
	return nil
}
