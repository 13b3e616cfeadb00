package valkey

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/atareao/expulsabot/lib/store"
	"github.com/atareao/expulsabot/lib/store/storetest"
)

func TestImpl(t *testing.T) {
	url := os.Getenv("VALKEY_TEST_URL")
	if url == "" {
		t.Skip("set VALKEY_TEST_URL (e.g. redis://localhost:6379/0) to run this test")
		return
	}

	data, err := json.Marshal(Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	storetest.Common(t, Factory{}, json.RawMessage(data))
}

func TestFactoryValid(t *testing.T) {
	f := Factory{}

	err := f.Valid(json.RawMessage(`{}`))
	if !errors.Is(err, ErrNoURL) {
		t.Errorf("wanted ErrNoURL for a missing URL, got: %v", err)
	}
	if !errors.Is(err, store.ErrBadConfig) {
		t.Errorf("wanted ErrBadConfig for a missing URL, got: %v", err)
	}

	if err := f.Valid(json.RawMessage(`{"url":":not a url:"}`)); !errors.Is(err, store.ErrBadConfig) {
		t.Errorf("wanted ErrBadConfig for a malformed URL, got: %v", err)
	}

	if err := f.Valid(json.RawMessage(`{"url":"redis://localhost:6379/0"}`)); err != nil {
		t.Errorf("wanted valid config to pass validation: %v", err)
	}
}
