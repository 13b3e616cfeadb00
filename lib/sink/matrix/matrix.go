// Package matrix posts challenge-outcome events into a Matrix room as
// plain text messages.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/atareao/expulsabot/lib/sink"
)

var ErrSend = errors.New("matrix: send rejected")

const httpTimeout = 5 * time.Second

type Sink struct {
	baseURL string
	roomID  string
	token   string
	client  *http.Client
	now     func() time.Time
}

var _ sink.Interface = (*Sink)(nil)

// New builds a sink for the given homeserver host and room ID, e.g.
// New("matrix.org", "!abcdef:matrix.org", token).
func New(homeserver, roomID, token string) *Sink {
	return &Sink{
		baseURL: "https://" + homeserver,
		roomID:  roomID,
		token:   token,
		client:  &http.Client{Timeout: httpTimeout},
		now:     time.Now,
	}
}

// NewWithBaseURL is New with an explicit base URL, mainly for tests.
func NewWithBaseURL(baseURL, roomID, token string) *Sink {
	return &Sink{
		baseURL: baseURL,
		roomID:  roomID,
		token:   token,
		client:  &http.Client{Timeout: httpTimeout},
		now:     time.Now,
	}
}

func (s *Sink) Name() string { return "matrix" }

type message struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

func format(ev sink.Event) string {
	verdict := "superó la prueba"
	if ev.Banned {
		verdict = "fue expulsado"
	}
	return fmt.Sprintf("%s (%d) en %s (%d): %s", ev.UserName, ev.UserID, ev.GroupName, ev.GroupID, verdict)
}

func (s *Sink) Notify(ctx context.Context, ev sink.Event) error {
	body, err := json.Marshal(message{MsgType: "m.text", Body: format(ev)})
	if err != nil {
		return fmt.Errorf("matrix: can't encode message: %w", err)
	}

	// Transaction IDs only need to be unique per access token.
	txn := fmt.Sprintf("%d", s.now().UnixNano())
	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		s.baseURL, url.PathEscape(s.roomID), txn)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("matrix: can't build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("matrix: put failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrSend, resp.StatusCode)
	}

	return nil
}
