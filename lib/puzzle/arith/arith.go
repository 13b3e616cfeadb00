// Package arith implements the subtraction puzzle. The first offered
// answer is always wrong so that automation which blindly picks the
// first option always fails.
package arith

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/atareao/expulsabot/lib/puzzle"
	"github.com/google/uuid"
)

// digit glyphs for rendering the equation and the answer labels
var glyphs = [10]string{"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

const (
	minusGlyph  = "➖"
	equalsGlyph = "🟰"
	resultGlyph = "❓"
)

func init() {
	puzzle.Register("arith", Impl{})
}

type Impl struct{}

func (Impl) Generate(rng *rand.Rand) (*puzzle.Payload, error) {
	a := rng.IntN(10)
	b := rng.IntN(a + 1)

	return build(a, b, rng), nil
}

// build assembles the payload for a given a-b draw. b must not exceed a,
// so the result stays in [0,9].
func build(a, b int, rng *rand.Rand) *puzzle.Payload {
	correct := a - b

	// Distractor pool: 4 distinct values in [0,9], none equal to the
	// correct result. The domain has 10 values so this terminates.
	distractors := make([]int, 0, puzzle.AnswerCount-1)
	seen := map[int]bool{correct: true}
	for len(distractors) < puzzle.AnswerCount-1 {
		n := rng.IntN(10)
		if seen[n] {
			continue
		}
		seen[n] = true
		distractors = append(distractors, n)
	}

	// One distractor is pinned to the first slot; the rest join the
	// correct result and are shuffled behind it.
	first := rng.IntN(len(distractors))
	forced := distractors[first]
	rest := make([]int, 0, puzzle.AnswerCount-1)
	rest = append(rest, distractors[:first]...)
	rest = append(rest, distractors[first+1:]...)
	rest = append(rest, correct)
	rng.Shuffle(len(rest), func(x, y int) {
		rest[x], rest[y] = rest[y], rest[x]
	})

	values := append([]int{forced}, rest...)

	result := &puzzle.Payload{
		Prompt:  render(a, b),
		Answers: make([]puzzle.Answer, 0, puzzle.AnswerCount),
	}

	for _, v := range values {
		token := uuid.NewString()
		if v == correct {
			result.ExpectedToken = token
		}
		result.Answers = append(result.Answers, puzzle.Answer{Label: glyphs[v], Token: token})
	}

	return result
}

func render(a, b int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s %s %s", glyphs[a], minusGlyph, glyphs[b], equalsGlyph, resultGlyph)
	return sb.String()
}
