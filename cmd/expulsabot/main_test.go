package main

import (
	"math/rand/v2"
	"testing"

	"github.com/atareao/expulsabot/lib/puzzle"
)

// The generators register themselves via blank imports in lib/lifecycle,
// so every variant the -puzzle flag accepts must resolve here without any
// test-only imports.
func TestPuzzleVariantsLinked(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, variant := range []string{"random", "category", "arith"} {
		t.Run(variant, func(t *testing.T) {
			name, gen, err := puzzle.Pick(variant, rng)
			if err != nil {
				t.Fatalf("variant %q unavailable in the binary: %v", variant, err)
			}

			payload, err := gen.Generate(rng)
			if err != nil {
				t.Fatalf("generator %q: %v", name, err)
			}

			if len(payload.Answers) != puzzle.AnswerCount {
				t.Errorf("generator %q: got %d answers, want %d", name, len(payload.Answers), puzzle.AnswerCount)
			}
		})
	}
}
