// Package localization renders user-facing chat messages through go-i18n.
// Spanish is the bundle default, matching the groups the bot was written for.
package localization

import (
	"embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type Service struct {
	bundle *i18n.Bundle
}

var (
	globalService *Service
	once          sync.Once
)

func NewService() *Service {
	once.Do(func() {
		bundle := i18n.NewBundle(language.Spanish)
		bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			globalService = &Service{bundle: bundle}
			return
		}

		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
				// Skip files that fail to parse, the bundle default
				// still covers every message ID.
				bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name())
			}
		}

		globalService = &Service{bundle: bundle}
	})

	return globalService
}

// Localizer builds a localizer for the given language tag, falling back to
// Spanish for missing messages.
func (s *Service) Localizer(lang string) *SimpleLocalizer {
	return &SimpleLocalizer{Localizer: i18n.NewLocalizer(s.bundle, lang, "es")}
}

// SimpleLocalizer wraps i18n.Localizer with a more convenient API
type SimpleLocalizer struct {
	Localizer *i18n.Localizer
}

// T provides a concise way to localize messages
func (sl *SimpleLocalizer) T(messageID string) string {
	return sl.Localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: messageID})
}

// TData localizes a message with template data.
func (sl *SimpleLocalizer) TData(messageID string, data map[string]any) string {
	return sl.Localizer.MustLocalize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}
