package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/usecase"
)

// Catalog is the curated content shipped next to the textbook: the chapter
// title table, fact intents and manual facts for seeding the graph.
type Catalog struct {
	Chapters map[string]string   `yaml:"chapters"`
	Intents  []domain.FactIntent `yaml:"intents"`
	Facts    []domain.ManualFact `yaml:"facts"`
}

// DefaultCatalog is used when CATALOG_PATH is unset.
func DefaultCatalog() Catalog {
	return Catalog{
		Chapters: usecase.DefaultChapterTitles(),
		Intents:  usecase.DefaultFactIntents(),
		Facts: []domain.ManualFact{
			{
				ChapterNumber: "3",
				Chapter:       "Metals and Non-metals",
				Concept:       "Rusting of Iron",
				Formula:       "Fe → Fe²⁺ + 2e⁻",
			},
		},
	}
}

func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a catalog. Sections left out fall back
// to the defaults.
func ParseCatalog(raw []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", err)
	}

	def := DefaultCatalog()
	if len(catalog.Chapters) == 0 {
		catalog.Chapters = def.Chapters
	}
	if len(catalog.Intents) == 0 {
		catalog.Intents = def.Intents
	}

	for number, title := range catalog.Chapters {
		if _, err := strconv.Atoi(number); err != nil {
			return Catalog{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("chapter key %q is not a number", number))
		}
		if strings.TrimSpace(title) == "" {
			return Catalog{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("chapter %s has no title", number))
		}
	}
	for i := range catalog.Intents {
		catalog.Intents[i].Relation = strings.ToUpper(strings.TrimSpace(catalog.Intents[i].Relation))
		if err := usecase.ValidateFactIntent(catalog.Intents[i]); err != nil {
			return Catalog{}, err
		}
	}
	for _, fact := range catalog.Facts {
		if strings.TrimSpace(fact.Chapter) == "" || strings.TrimSpace(fact.Concept) == "" {
			return Catalog{}, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("fact %+v needs chapter and concept", fact))
		}
	}
	return catalog, nil
}
