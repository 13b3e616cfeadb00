package puzzle

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
)

// AnswerCount is the number of options every puzzle presents.
const AnswerCount = 5

var (
	ErrNoGenerators = errors.New("puzzle: no generators registered")
	ErrUnknown      = errors.New("puzzle: unknown generator")
)

// Answer is one selectable option: the label shown to the user and the
// opaque token submitted back when the option is chosen. The correct
// answer is never transmitted in cleartext; only its token identifies it.
type Answer struct {
	Label string
	Token string
}

// Payload is the full content of one issued puzzle. It is immutable once
// produced: exactly AnswerCount answers in display order, pairwise
// distinct labels and tokens, and exactly one token equal to
// ExpectedToken.
type Payload struct {
	Prompt        string
	Answers       []Answer
	ExpectedToken string
}

// Generator produces puzzle payloads. Implementations must be pure:
// everything they need beyond the random source is fixed at
// construction.
type Generator interface {
	Generate(rng *rand.Rand) (*Payload, error)
}

var (
	registry map[string]Generator = map[string]Generator{}
	regLock  sync.RWMutex
)

func Register(name string, gen Generator) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = gen
}

func Get(name string) (Generator, bool) {
	regLock.RLock()
	defer regLock.RUnlock()
	result, ok := registry[name]
	return result, ok
}

func Variants() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	var result []string
	for variant := range registry {
		result = append(result, variant)
	}
	sort.Strings(result)
	return result
}

// Pick resolves a variant name to a generator. The name "random" draws
// uniformly from everything registered, so each challenge may use a
// different variant.
func Pick(name string, rng *rand.Rand) (string, Generator, error) {
	if name == "random" {
		variants := Variants()
		if len(variants) == 0 {
			return "", nil, ErrNoGenerators
		}
		name = variants[rng.IntN(len(variants))]
	}

	gen, ok := Get(name)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	return name, gen, nil
}
