// Package openobserve ships challenge-outcome events to an OpenObserve
// JSON ingestion stream.
package openobserve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/atareao/expulsabot/lib/sink"
)

var ErrIngest = errors.New("openobserve: ingestion rejected")

const httpTimeout = 5 * time.Second

type Sink struct {
	url    string
	token  string
	client *http.Client
}

var _ sink.Interface = (*Sink)(nil)

// New builds a sink posting to https://<host>/api/default/<stream>/_json
// with HTTP Basic credentials.
func New(host, stream, token string) *Sink {
	return &Sink{
		url:    fmt.Sprintf("https://%s/api/default/%s/_json", host, stream),
		token:  token,
		client: &http.Client{Timeout: httpTimeout},
	}
}

// NewWithURL is New with a fully formed ingestion URL, mainly for tests.
func NewWithURL(url, token string) *Sink {
	return &Sink{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: httpTimeout},
	}
}

func (s *Sink) Name() string { return "openobserve" }

func (s *Sink) Notify(ctx context.Context, ev sink.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("openobserve: can't encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("openobserve: can't build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openobserve: post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrIngest, resp.StatusCode)
	}

	return nil
}
