package exempt

import (
	"strings"
	"testing"
)

func TestPolicyExempt(t *testing.T) {
	policy, err := NewPolicy([]string{
		"userId == 42",
		`username.endsWith("_admin")`,
		"whitelisted",
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name   string
		params Params
		want   bool
	}{
		{
			name:   "matches by id",
			params: Params{UserID: 42, Username: "anyone"},
			want:   true,
		},
		{
			name:   "matches by username suffix",
			params: Params{UserID: 7, Username: "carlos_admin"},
			want:   true,
		},
		{
			name:   "matches by whitelist flag",
			params: Params{UserID: 7, Username: "nobody", Whitelisted: true},
			want:   true,
		},
		{
			name:   "no match",
			params: Params{UserID: 7, Username: "nobody"},
			want:   false,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Exempt(t.Context(), tt.params); got != tt.want {
				t.Errorf("Exempt(%+v): got %v, want %v", tt.params, got, tt.want)
			}
		})
	}
}

func TestNilPolicy(t *testing.T) {
	var policy *Policy

	if policy.Exempt(t.Context(), Params{UserID: 42}) {
		t.Error("nil policy should exempt nobody")
	}
	if policy.Len() != 0 {
		t.Errorf("nil policy Len: got %d, want 0", policy.Len())
	}
}

func TestBadRule(t *testing.T) {
	for _, tt := range []struct {
		name string
		src  string
	}{
		{name: "syntax error", src: "userId =="},
		{name: "unknown variable", src: "remoteAddress == \"x\""},
		{name: "not a bool", src: "username"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPolicy([]string{tt.src}); err == nil {
				t.Errorf("wanted rule %q to fail compilation", tt.src)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	policy, err := Load(strings.NewReader(`
exemptions:
  - isBot && userId == 1234
  - chatId == -1001
`), "test.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if policy.Len() != 2 {
		t.Fatalf("loaded %d rules, want 2", policy.Len())
	}

	if !policy.Exempt(t.Context(), Params{UserID: 1234, IsBot: true}) {
		t.Error("bot 1234 should be exempt")
	}
	if policy.Exempt(t.Context(), Params{UserID: 1234, IsBot: false}) {
		t.Error("human 1234 should not be exempt")
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(strings.NewReader(`{exemptions: [`), "broken.yaml"); err == nil {
		t.Error("wanted broken YAML to fail")
	}
}

func TestRuleHashStable(t *testing.T) {
	env, err := NewEnvironment()
	if err != nil {
		t.Fatal(err)
	}

	a, err := NewRule(env, "userId == 1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRule(env, "userId == 1")
	if err != nil {
		t.Fatal(err)
	}

	if a.Hash() != b.Hash() {
		t.Errorf("same source produced different hashes: %q vs %q", a.Hash(), b.Hash())
	}
}
