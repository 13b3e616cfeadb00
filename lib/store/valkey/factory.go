package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atareao/expulsabot/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

var ErrNoURL = errors.New("valkey: no URL defined")

func init() {
	store.Register("valkey", Factory{})
}

// Config selects the valkey server, as a redis:// or rediss://
// connection string.
type Config struct {
	URL string `json:"url"`
}

func (c Config) options() (*valkey.Options, error) {
	if c.URL == "" {
		return nil, ErrNoURL
	}

	opts, err := valkey.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("can't parse URL: %w", err)
	}

	return opts, nil
}

type Factory struct{}

func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	opts, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	rdb := valkey.NewClient(opts)

	// Fail at startup rather than on the first challenge.
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("can't ping %s: %w", opts.Addr, err)
	}

	return &Store{rdb: rdb}, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parseConfig(data)
	return err
}

func parseConfig(data json.RawMessage) (*valkey.Options, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	opts, err := config.options()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return opts, nil
}
