package category

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/atareao/expulsabot/lib/puzzle"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func symbolSet(c Category) map[string]bool {
	result := map[string]bool{}
	for _, s := range c.Symbols {
		result[s] = true
	}
	return result
}

func TestGenerateProperties(t *testing.T) {
	impl := &Impl{Catalog: DefaultCatalog}
	rng := testRand(1)

	for trial := range 1000 {
		payload, err := impl.Generate(rng)
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
	}
}

func TestFoilNeverInMainCategory(t *testing.T) {
	impl := &Impl{Catalog: DefaultCatalog}
	rng := testRand(2)

	bySingular := map[string]Category{}
	for _, c := range DefaultCatalog {
		bySingular[c.Singular] = c
	}

	for trial := range 1000 {
		payload, err := impl.Generate(rng)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		var main Category
		found := false
		for singular, c := range bySingular {
			if strings.Contains(payload.Prompt, singular) {
				main, found = c, true
				break
			}
		}
		if !found {
			t.Fatalf("trial %d: prompt %q names no known category", trial, payload.Prompt)
		}

		mainSet := symbolSet(main)
		for _, a := range payload.Answers {
			if a.Token == payload.ExpectedToken {
				if mainSet[a.Label] {
					t.Errorf("trial %d: foil %q belongs to main category %q", trial, a.Label, main.Name)
				}
			} else if !mainSet[a.Label] {
				t.Errorf("trial %d: non-foil %q not in main category %q", trial, a.Label, main.Name)
			}
		}
	}
}

func TestAnimalFoodScenario(t *testing.T) {
	catalog := []Category{
		{Name: "animales", Singular: "un animal", Symbols: []string{"🐕", "🐱", "🐰", "🐸", "🦊"}},
		{Name: "comida", Singular: "comida", Symbols: []string{"🍕", "🍔", "🍎", "🍌", "🍇"}},
	}
	impl := &Impl{Catalog: catalog}
	rng := testRand(3)

	food := symbolSet(catalog[1])

	for trial := range 200 {
		payload, err := impl.Generate(rng)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		var correctLabel string
		for _, a := range payload.Answers {
			if a.Token == payload.ExpectedToken {
				correctLabel = a.Label
			}
		}

		switch {
		case strings.Contains(payload.Prompt, "un animal"):
			if !food[correctLabel] {
				t.Errorf("trial %d: main=animales but correct answer %q is not food", trial, correctLabel)
			}
		case strings.Contains(payload.Prompt, "comida"):
			if food[correctLabel] {
				t.Errorf("trial %d: main=comida but correct answer %q is food", trial, correctLabel)
			}
		default:
			t.Fatalf("trial %d: unexpected prompt %q", trial, payload.Prompt)
		}
	}
}

func TestBadCatalog(t *testing.T) {
	for _, tt := range []struct {
		name    string
		catalog []Category
	}{
		{name: "empty", catalog: nil},
		{name: "single-category", catalog: DefaultCatalog[:1]},
		{
			name: "main-too-small",
			catalog: []Category{
				{Name: "a", Singular: "una a", Symbols: []string{"x", "y"}},
				{Name: "b", Singular: "una b", Symbols: []string{"z", "w"}},
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			impl := &Impl{Catalog: tt.catalog}
			if _, err := impl.Generate(testRand(4)); !errors.Is(err, ErrBadCatalog) {
				t.Errorf("got %v, want %v", err, ErrBadCatalog)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	if _, ok := puzzle.Get("category"); !ok {
		t.Error("category generator is not registered")
	}
}
