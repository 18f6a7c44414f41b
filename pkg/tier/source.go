package tier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Source loads the tier catalog.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Config configures where the catalog comes from.
// When CatalogPath is empty the built-in defaults are used with the configured
// provider price ids attached to the default plans.
type Config struct {
	CatalogPath     string   `env:"TIER_CATALOG_PATH"`
	MonthlyPriceIDs []string `env:"PLAN_MONTHLY_PRICE_IDS" envSeparator:","`
	YearlyPriceIDs  []string `env:"PLAN_YEARLY_PRICE_IDS" envSeparator:","`
}

// NewSource returns the Source described by cfg.
func NewSource(cfg Config) Source {
	if cfg.CatalogPath != "" {
		return NewFileSource(cfg.CatalogPath)
	}

	plans := DefaultPlans()
	for i := range plans {
		switch plans[i].ID {
		case "monthly":
			plans[i].PriceIDs = cfg.MonthlyPriceIDs
		case "yearly":
			plans[i].PriceIDs = cfg.YearlyPriceIDs
		}
	}
	return NewInMemSource(DefaultTiers(), plans...)
}

type inMemSource struct {
	tiers map[Tier]Limits
	plans []Plan
}

// NewInMemSource returns a Source backed by in-memory definitions.
func NewInMemSource(tiers map[Tier]Limits, plans ...Plan) Source {
	return &inMemSource{tiers: tiers, plans: plans}
}

// Load validates the definitions and returns a new catalog.
func (s *inMemSource) Load(_ context.Context) (*Catalog, error) {
	c, err := NewCatalog(s.tiers, s.plans...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return c, nil
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source reading a YAML catalog file.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

// Load reads and parses the catalog file.
func (s *fileSource) Load(_ context.Context) (*Catalog, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	defer f.Close()

	return LoadYAML(f)
}

type yamlLimits struct {
	Features      map[Feature]bool   `yaml:"features"`
	Caps          map[Resource]int64 `yaml:"caps"`
	FreeTemplates []string           `yaml:"free_templates"`
}

type yamlCatalog struct {
	Tiers map[Tier]yamlLimits `yaml:"tiers"`
	Plans []Plan              `yaml:"plans"`
}

// LoadYAML parses a catalog document:
//
//	tiers:
//	  free:
//	    features: {cover_letters: false, watermark_pdf: true}
//	    caps: {ai_credits_total: 5, pdf_downloads_per_month: 3}
//	    free_templates: [classic, modern]
//	  paid:
//	    features: {cover_letters: true}
//	    caps: {ai_credits_total: -1}
//	plans:
//	  - id: monthly
//	    interval: monthly
//	    price_ids: [price_123]
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, fmt.Errorf("decode yaml: %w", err))
	}

	tiers := make(map[Tier]Limits, len(doc.Tiers))
	for t, l := range doc.Tiers {
		tiers[t] = Limits{
			Features:      l.Features,
			Caps:          l.Caps,
			FreeTemplates: l.FreeTemplates,
		}
	}

	c, err := NewCatalog(tiers, doc.Plans...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return c, nil
}
