// Package category implements the category-distractor puzzle: four
// symbols from one category, one from another, and the user must pick
// the one that does not belong.
package category

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/atareao/expulsabot/lib/puzzle"
	"github.com/google/uuid"
)

var ErrBadCatalog = errors.New("category: catalog cannot support sampling")

// Category is one entry of the symbol catalog. Symbols must not repeat
// across categories used together, otherwise the foil could legally
// belong to the main set.
type Category struct {
	Name     string
	Singular string
	Symbols  []string
}

// DefaultCatalog holds the stock emoji categories.
var DefaultCatalog = []Category{
	{
		Name:     "animales",
		Singular: "un animal",
		Symbols: []string{
			"🐕", "🐱", "🐰", "🐸", "🦊", "🐼", "🐨", "🦁", "🐵", "🐮", "🐷", "🐯", "🦒", "🐘", "🦓",
		},
	},
	{
		Name:     "comida",
		Singular: "comida",
		Symbols: []string{
			"🍕", "🍔", "🍎", "🍌", "🍇", "🥕", "🍅", "🥐", "🧀", "🥓", "🍗", "🍰", "🍪", "🍫", "🥗",
		},
	},
	{
		Name:     "deportes",
		Singular: "un deporte",
		Symbols: []string{
			"⚽", "🏀", "🎾", "🏈", "⚾", "🏐", "🏓", "🏸", "🥊", "🎱", "🎯", "🏹", "⛳", "🥅", "🏆",
		},
	},
	{
		Name:     "vehículos",
		Singular: "un vehículo",
		Symbols: []string{
			"🚗", "🚕", "🚙", "🚐", "🚛", "🚌", "🚎", "🏎️", "🚓", "🚑", "🚒", "🚚", "🛻", "🏍️", "🚲",
		},
	},
	{
		Name:     "fenómenos climáticos",
		Singular: "un fenómeno climático",
		Symbols: []string{
			"☀️", "🌙", "⭐", "☁️", "⛅", "🌧️", "⛈️", "🌩️", "❄️", "🌨️", "🌪️", "🌈", "⚡", "🔥", "💧",
		},
	},
	{
		Name:     "herramientas",
		Singular: "una herramienta",
		Symbols: []string{
			"🔨", "🔧", "🪚", "⚒️", "🛠️", "⛏️", "🪓", "🔩", "⚙️", "🪛", "📏", "📐", "✂️", "🔪", "✏️",
		},
	},
	{
		Name:     "plantas",
		Singular: "una planta",
		Symbols: []string{
			"🌳", "🌲", "🌴", "🌵", "🌿", "🍀", "🌺", "🌸", "🌼", "🌻", "🌷", "🥀", "💐", "🌱", "🌾",
		},
	},
	{
		Name:     "edificios",
		Singular: "un edificio",
		Symbols: []string{
			"🏠", "🏡", "🏢", "🏣", "🏤", "🏥", "🏦", "🏨", "🏩", "🏪", "🏫", "🏬", "🏭", "🏯", "🏰",
		},
	},
}

// PromptFormat renders the question from the main category's singular
// label.
const PromptFormat = "¿Cuál de estos NO es %s?"

func init() {
	puzzle.Register("category", &Impl{Catalog: DefaultCatalog})
}

type Impl struct {
	// Catalog needs at least two categories, each with at least
	// AnswerCount symbols so the main draw can happen without
	// replacement.
	Catalog []Category
}

func (i *Impl) Generate(rng *rand.Rand) (*puzzle.Payload, error) {
	if len(i.Catalog) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 categories, have %d", ErrBadCatalog, len(i.Catalog))
	}

	mainIdx := rng.IntN(len(i.Catalog))
	foilIdx := rng.IntN(len(i.Catalog))
	for foilIdx == mainIdx {
		foilIdx = rng.IntN(len(i.Catalog))
	}

	main := i.Catalog[mainIdx]
	foil := i.Catalog[foilIdx]

	if len(main.Symbols) < puzzle.AnswerCount {
		return nil, fmt.Errorf("%w: category %q has %d symbols, need %d", ErrBadCatalog, main.Name, len(main.Symbols), puzzle.AnswerCount)
	}
	if len(foil.Symbols) == 0 {
		return nil, fmt.Errorf("%w: category %q is empty", ErrBadCatalog, foil.Name)
	}

	// Draw 4 main symbols without replacement.
	labels := make([]string, 0, puzzle.AnswerCount)
	used := map[int]bool{}
	for len(labels) < puzzle.AnswerCount-1 {
		idx := rng.IntN(len(main.Symbols))
		if used[idx] {
			continue
		}
		used[idx] = true
		labels = append(labels, main.Symbols[idx])
	}

	foilSymbol := foil.Symbols[rng.IntN(len(foil.Symbols))]
	labels = append(labels, foilSymbol)

	rng.Shuffle(len(labels), func(a, b int) {
		labels[a], labels[b] = labels[b], labels[a]
	})

	result := &puzzle.Payload{
		Prompt:  fmt.Sprintf(PromptFormat, main.Singular),
		Answers: make([]puzzle.Answer, 0, puzzle.AnswerCount),
	}

	for _, label := range labels {
		token := uuid.NewString()
		if label == foilSymbol {
			result.ExpectedToken = token
		}
		result.Answers = append(result.Answers, puzzle.Answer{Label: label, Token: token})
	}

	return result, nil
}
