package arith

import (
	"math/rand/v2"
	"testing"

	"github.com/atareao/expulsabot/lib/puzzle"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xcafef00d))
}

func labelValue(t *testing.T, label string) int {
	t.Helper()
	for v, g := range glyphs {
		if g == label {
			return v
		}
	}
	t.Fatalf("label %q is not a digit glyph", label)
	return -1
}

func TestGenerateProperties(t *testing.T) {
	rng := testRand(1)

	for trial := range 1000 {
		payload, err := Impl{}.Generate(rng)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		if len(payload.Answers) != puzzle.AnswerCount {
			t.Fatalf("trial %d: got %d answers, want %d", trial, len(payload.Answers), puzzle.AnswerCount)
		}

		labels := map[string]bool{}
		tokens := map[string]bool{}
		correctCount := 0
		for _, a := range payload.Answers {
			if labels[a.Label] {
				t.Errorf("trial %d: duplicate label %q", trial, a.Label)
			}
			labels[a.Label] = true

			if tokens[a.Token] {
				t.Errorf("trial %d: duplicate token %q", trial, a.Token)
			}
			tokens[a.Token] = true

			if a.Token == payload.ExpectedToken {
				correctCount++
			}
		}

		if correctCount != 1 {
			t.Errorf("trial %d: expected token appears %d times, want exactly 1", trial, correctCount)
		}

		// The anti-automation rule: slot 0 is always wrong.
		if payload.Answers[0].Token == payload.ExpectedToken {
			t.Errorf("trial %d: first slot holds the correct token", trial)
		}
	}
}

func TestResultInRange(t *testing.T) {
	rng := testRand(2)

	for trial := range 1000 {
		payload, err := Impl{}.Generate(rng)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		for _, a := range payload.Answers {
			v := labelValue(t, a.Label)
			if a.Token == payload.ExpectedToken && (v < 0 || v > 9) {
				t.Errorf("trial %d: correct result %d out of range", trial, v)
			}
		}
	}
}

func TestFiveMinusThreeScenario(t *testing.T) {
	rng := testRand(3)

	for trial := range 200 {
		payload := build(5, 3, rng)

		wantPrompt := "5️⃣ ➖ 3️⃣ 🟰 ❓"
		if payload.Prompt != wantPrompt {
			t.Fatalf("trial %d: prompt %q, want %q", trial, payload.Prompt, wantPrompt)
		}

		twos := 0
		for i, a := range payload.Answers {
			if labelValue(t, a.Label) != 2 {
				continue
			}
			twos++
			if a.Token != payload.ExpectedToken {
				t.Errorf("trial %d: slot %d holds 2 but not the expected token", trial, i)
			}
			if i == 0 {
				t.Errorf("trial %d: slot 0 resolves to the correct result", trial)
			}
		}

		if twos != 1 {
			t.Errorf("trial %d: value 2 appears in %d slots, want exactly 1", trial, twos)
		}
	}
}

func TestRegistered(t *testing.T) {
	if _, ok := puzzle.Get("arith"); !ok {
		t.Error("arith generator is not registered")
	}
}
