package localization

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
)

func messageIDs(t *testing.T) []string {
	t.Helper()

	fin, err := localeFS.Open("locales/es.json")
	if err != nil {
		t.Fatal(err)
	}
	defer fin.Close()

	var translations map[string]any
	if err := json.NewDecoder(fin).Decode(&translations); err != nil {
		t.Fatal(err)
	}

	var keys []string
	for k := range translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestAllMessagesInAllLocales(t *testing.T) {
	service := NewService()
	keys := messageIDs(t)

	data := map[string]any{
		"Name":         "nombre",
		"Question":     "pregunta",
		"Minutes":      2,
		"ID":           42,
		"Uptime":       "1h",
		"Active":       0,
		"BotTreatment": "reto",
		"BannedBots":   0,
		"Whitelisted":  0,
	}

	for _, lang := range []string{"es", "en"} {
		t.Run(lang, func(t *testing.T) {
			sl := service.Localizer(lang)
			for _, key := range keys {
				t.Run(key, func(t *testing.T) {
					if result := sl.TData(key, data); result == "" {
						t.Error("key not defined")
					}
				})
			}
		})
	}
}

func TestSpanishIsDefault(t *testing.T) {
	sl := NewService().Localizer("fr")

	if got := sl.T("cmd_admin_only"); !strings.Contains(got, "administradores") {
		t.Errorf("unknown language should fall back to Spanish, got %q", got)
	}
}

func TestTemplateData(t *testing.T) {
	sl := NewService().Localizer("es")

	got := sl.TData("welcome_challenge", map[string]any{
		"Name":     "Eva",
		"Question": "¿Cuál de estos NO es un animal?",
		"Minutes":  2,
	})

	for _, want := range []string{"Eva", "NO es un animal", "2 minutos"} {
		if !strings.Contains(got, want) {
			t.Errorf("welcome message %q is missing %q", got, want)
		}
	}
}
