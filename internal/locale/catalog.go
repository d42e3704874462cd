// Package locale holds the user-facing strings of the formatted output in
// every supported output language.
package locale

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Strings is the catalog entry of one output language.
type Strings struct {
	Name            string            `yaml:"name"`
	Verdicts        map[string]string `yaml:"verdicts"`
	ImportantLimits string            `yaml:"important_limits"`
	Tiers           map[string]string `yaml:"tiers"`
	Sections        map[string]string `yaml:"sections"`
}

// Catalog resolves strings by language, falling back to english per key.
type Catalog struct {
	Languages map[string]Strings `yaml:"languages"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse locale catalog: %w", err)
	}
	return &c, c.Validate()
}

// Validate requires a complete english entry, since every lookup falls back to it.
func (c *Catalog) Validate() error {
	en, ok := c.Languages[constants.LangEnglish]
	if !ok {
		return fmt.Errorf("locale catalog: missing %s", constants.LangEnglish)
	}
	for _, v := range constants.VerdictStrings() {
		if en.Verdicts[v] == "" {
			return fmt.Errorf("locale catalog: %s has no verdict text for %s", constants.LangEnglish, v)
		}
	}
	if en.ImportantLimits == "" {
		return fmt.Errorf("locale catalog: %s has no important_limits", constants.LangEnglish)
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

func (c *Catalog) lookup(lang string, pick func(Strings) string) string {
	if s, ok := c.Languages[lang]; ok {
		if v := pick(s); v != "" {
			return v
		}
	}
	return pick(c.Languages[constants.LangEnglish])
}

// Verdict is the one-line screening text for v.
func (c *Catalog) Verdict(lang string, v constants.Verdict) string {
	return c.lookup(lang, func(s Strings) string { return s.Verdicts[string(v)] })
}

// Limits is the important-limits disclaimer.
func (c *Catalog) Limits(lang string) string {
	return c.lookup(lang, func(s Strings) string { return s.ImportantLimits })
}

// Tier is the localized label of a confidence tier.
func (c *Catalog) Tier(lang string, t constants.ConfidenceTier) string {
	if v := c.lookup(lang, func(s Strings) string { return s.Tiers[string(t)] }); v != "" {
		return v
	}
	return string(t)
}

// Section is a section heading; unknown keys return the key itself.
func (c *Catalog) Section(lang, key string) string {
	if v := c.lookup(lang, func(s Strings) string { return s.Sections[key] }); v != "" {
		return v
	}
	return key
}
