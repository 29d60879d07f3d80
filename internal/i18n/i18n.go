// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Corphon/Chronicle/internal/models"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds the user-facing strings for one language.
type Catalog struct {
	Title             string            `yaml:"title" json:"title"`
	Subtitle          string            `yaml:"subtitle" json:"subtitle"`
	EngineVersion     string            `yaml:"engineVersion" json:"engineVersion"`
	Loading           string            `yaml:"loading" json:"loading"`
	InputPlaceholder  string            `yaml:"inputPlaceholder" json:"inputPlaceholder"`
	StartPrompt       string            `yaml:"startPrompt" json:"startPrompt"`
	CharacterDetails  string            `yaml:"characterDetails" json:"characterDetails"`
	DefaultAppearance string            `yaml:"defaultAppearance" json:"defaultAppearance"`
	QuestLabel        string            `yaml:"questLabel" json:"questLabel"`
	InventoryLabel    string            `yaml:"inventoryLabel" json:"inventoryLabel"`
	JournalLabel      string            `yaml:"journalLabel" json:"journalLabel"`
	MapLabel          string            `yaml:"mapLabel" json:"mapLabel"`
	PeopleLabel       string            `yaml:"peopleLabel" json:"peopleLabel"`
	EmptyInventory    string            `yaml:"emptyInventory" json:"emptyInventory"`
	AwaitingQuest     string            `yaml:"awaitingQuest" json:"awaitingQuest"`
	Saving            string            `yaml:"saving" json:"saving"`
	ErrorKey          string            `yaml:"errorKey" json:"errorKey"`
	ErrorGen          string            `yaml:"errorGen" json:"errorGen"`
	RateLimit         string            `yaml:"rateLimit" json:"rateLimit"`
	MissingMistralKey string            `yaml:"missingMistralKey" json:"missingMistralKey"`
	InitialActions    []string          `yaml:"initialActions" json:"initialActions"`
	Classes           map[string]string `yaml:"classes" json:"classes"`
}

var supported = []models.Language{models.LanguageEnglish, models.LanguageRussian}

var tagMatcher = language.NewMatcher([]language.Tag{language.English, language.Russian})

var (
	loadOnce sync.Once
	catalogs map[models.Language]*Catalog
	loadErr  error
)

func load() {
	catalogs = make(map[models.Language]*Catalog, len(supported))

	base, err := readCatalog(models.LanguageEnglish, nil)
	if err != nil {
		loadErr = err
		return
	}
	catalogs[models.LanguageEnglish] = base

	for _, lang := range supported[1:] {
		c, err := readCatalog(lang, base)
		if err != nil {
			loadErr = err
			return
		}
		catalogs[lang] = c
	}
}

// readCatalog decodes a locale file over a copy of fallback, so keys the
// translation lacks keep the English text.
func readCatalog(lang models.Language, fallback *Catalog) (*Catalog, error) {
	data, err := localeFS.ReadFile("locales/" + string(lang) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", lang, err)
	}
	return decodeCatalog(lang, data, fallback)
}

func decodeCatalog(lang models.Language, data []byte, fallback *Catalog) (*Catalog, error) {
	c := &Catalog{}
	if fallback != nil {
		*c = *fallback
		c.InitialActions = append([]string{}, fallback.InitialActions...)
		c.Classes = make(map[string]string, len(fallback.Classes))
		for k, v := range fallback.Classes {
			c.Classes[k] = v
		}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse locale %s: %w", lang, err)
	}
	return c, nil
}

// Load parses the embedded catalogs. Lookup calls it lazily; callers that
// want to fail fast at startup call it directly.
func Load() error {
	loadOnce.Do(load)
	return loadErr
}

// Lookup returns the catalog for lang, falling back to English.
func Lookup(lang models.Language) *Catalog {
	if err := Load(); err != nil {
		return &Catalog{}
	}
	if c, ok := catalogs[lang]; ok {
		return c
	}
	return catalogs[models.LanguageEnglish]
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) models.Language {
	accept := strings.TrimSpace(acceptLanguage)
	if accept == "" {
		return models.LanguageEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return models.LanguageEnglish
	}
	_, index, confidence := tagMatcher.Match(tags...)
	if confidence == language.No {
		return models.LanguageEnglish
	}
	return supported[index]
}

// ClassName returns the localized class label, or key itself when unknown.
func (c *Catalog) ClassName(key string) string {
	if name, ok := c.Classes[strings.ToLower(strings.TrimSpace(key))]; ok {
		return name
	}
	return key
}

// StartPromptFor builds the opening prompt including the character details.
func (c *Catalog) StartPromptFor(ch models.Character) string {
	appearance := strings.TrimSpace(ch.Appearance)
	if appearance == "" {
		appearance = c.DefaultAppearance
	}
	details := strings.NewReplacer(
		"{name}", ch.Name,
		"{class}", ch.Class,
		"{appearance}", appearance,
	).Replace(c.CharacterDetails)
	return c.StartPrompt + " " + details
}
