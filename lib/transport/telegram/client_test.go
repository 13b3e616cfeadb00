package telegram

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atareao/expulsabot/lib/transport"
)

type apiCall struct {
	method  string
	payload map[string]any
}

// fakeAPI serves the Bot API envelope and records every call.
func fakeAPI(t *testing.T, results map[string]any) (*Client, *[]apiCall) {
	t.Helper()

	var calls []apiCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/TESTTOKEN/"
		if len(r.URL.Path) <= len(prefix) {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		method := r.URL.Path[len(prefix):]

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("can't decode %s payload: %v", method, err)
		}
		calls = append(calls, apiCall{method: method, payload: payload})

		result, ok := results[method]
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "method not faked"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}))
	t.Cleanup(srv.Close)

	return New("TESTTOKEN", WithAPIURL(srv.URL+"/")), &calls
}

func TestSendNotice(t *testing.T) {
	client, calls := fakeAPI(t, map[string]any{
		"sendMessage": map[string]any{"message_id": 42, "chat": map[string]any{"id": 7, "type": "group"}},
	})

	id, err := client.SendNotice(t.Context(), 7, "hola")
	if err != nil {
		t.Fatal(err)
	}
	if id != transport.MessageID(42) {
		t.Errorf("got message id %d, want 42", id)
	}

	if len(*calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(*calls))
	}
	call := (*calls)[0]
	if call.method != "sendMessage" {
		t.Errorf("got method %q, want sendMessage", call.method)
	}
	if call.payload["parse_mode"] != "HTML" {
		t.Errorf("got parse_mode %v, want HTML", call.payload["parse_mode"])
	}
}

func TestSendPromptKeyboard(t *testing.T) {
	client, calls := fakeAPI(t, map[string]any{
		"sendMessage": map[string]any{"message_id": 1, "chat": map[string]any{"id": 7, "type": "group"}},
	})

	answers := []transport.Button{
		{Label: "🐕", Token: "aaa"},
		{Label: "🍕", Token: "bbb"},
	}
	if _, err := client.SendPrompt(t.Context(), 7, "elige", answers); err != nil {
		t.Fatal(err)
	}

	markup, ok := (*calls)[0].payload["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup missing or wrong type: %v", (*calls)[0].payload["reply_markup"])
	}
	rows, ok := markup["inline_keyboard"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("got %v keyboard rows, want 1", markup["inline_keyboard"])
	}
	row := rows[0].([]any)
	if len(row) != 2 {
		t.Fatalf("got %d buttons, want 2", len(row))
	}
	btn := row[0].(map[string]any)
	if btn["text"] != "🐕" || btn["callback_data"] != "aaa" {
		t.Errorf("unexpected first button: %v", btn)
	}
}

func TestRestrictPermissions(t *testing.T) {
	client, calls := fakeAPI(t, map[string]any{
		"restrictChatMember": true,
	})

	if err := client.Restrict(t.Context(), 7, 9); err != nil {
		t.Fatal(err)
	}
	if err := client.Unrestrict(t.Context(), 7, 9); err != nil {
		t.Fatal(err)
	}

	if len(*calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(*calls))
	}

	for i, want := range []bool{false, true} {
		perms, ok := (*calls)[i].payload["permissions"].(map[string]any)
		if !ok {
			t.Fatalf("call %d: permissions missing", i)
		}
		if got := perms["can_send_messages"]; got != want {
			t.Errorf("call %d: can_send_messages = %v, want %v", i, got, want)
		}
	}
}

func TestBanRevokesMessages(t *testing.T) {
	client, calls := fakeAPI(t, map[string]any{
		"banChatMember": true,
	})

	if err := client.Ban(t.Context(), 7, 9); err != nil {
		t.Fatal(err)
	}

	if got := (*calls)[0].payload["revoke_messages"]; got != true {
		t.Errorf("revoke_messages = %v, want true", got)
	}
}

func TestAPIError(t *testing.T) {
	client, _ := fakeAPI(t, map[string]any{})

	err := client.Ban(t.Context(), 7, 9)
	if !errors.Is(err, ErrAPI) {
		t.Errorf("got %v, want %v", err, ErrAPI)
	}
}

func TestIsChatAdmin(t *testing.T) {
	for _, tt := range []struct {
		status string
		want   bool
	}{
		{status: "creator", want: true},
		{status: "administrator", want: true},
		{status: "member", want: false},
		{status: "kicked", want: false},
	} {
		t.Run(tt.status, func(t *testing.T) {
			client, _ := fakeAPI(t, map[string]any{
				"getChatMember": map[string]any{"status": tt.status, "user": map[string]any{"id": 9}},
			})

			got, err := client.IsChatAdmin(t.Context(), 7, 9)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("IsChatAdmin with status %q = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestGetUpdates(t *testing.T) {
	client, calls := fakeAPI(t, map[string]any{
		"getUpdates": []map[string]any{
			{"update_id": 10, "message": map[string]any{"message_id": 1, "chat": map[string]any{"id": 7, "type": "group"}, "text": "/stats"}},
			{"update_id": 11, "callback_query": map[string]any{"id": "cb", "from": map[string]any{"id": 9}, "data": "tok"}},
		},
	})

	updates, err := client.GetUpdates(t.Context(), 5)
	if err != nil {
		t.Fatal(err)
	}

	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/stats" {
		t.Errorf("first update decoded wrong: %+v", updates[0])
	}
	if updates[1].CallbackQuery == nil || updates[1].CallbackQuery.Data != "tok" {
		t.Errorf("second update decoded wrong: %+v", updates[1])
	}

	if got := (*calls)[0].payload["offset"]; got != float64(5) {
		t.Errorf("offset = %v, want 5", got)
	}
}
