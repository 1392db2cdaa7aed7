// Package catalog serves the reference data shipped with the application:
// food additives by E-number and the browsable food categories.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed additives.yaml
var additivesYAML []byte

//go:embed categories.yaml
var categoriesYAML []byte

// Safety is an additive's safety rating
type Safety string

const (
	SafetySafe    Safety = "Safe"
	SafetyCaution Safety = "Caution"
	SafetyAvoid   Safety = "Avoid"
	SafetyUnknown Safety = "Unknown"
)

// Level orders ratings from safest (0) to least safe. Unknown sits between
// Safe and Caution.
func (s Safety) Level() int {
	switch s {
	case SafetySafe:
		return 0
	case SafetyCaution:
		return 2
	case SafetyAvoid:
		return 3
	default:
		return 1
	}
}

// HealthEffects lists known positive and negative effects
type HealthEffects struct {
	Positive []string `yaml:"positive" json:"positive"`
	Negative []string `yaml:"negative" json:"negative"`
}

// Additive describes a food additive
type Additive struct {
	ID              string        `yaml:"id" json:"id"`
	Name            string        `yaml:"name" json:"name"`
	Type            string        `yaml:"type" json:"type"`
	Safety          Safety        `yaml:"safety" json:"safety_rating"`
	Description     string        `yaml:"description" json:"description"`
	LongDescription string        `yaml:"long_description" json:"long_description"`
	CommonProducts  []string      `yaml:"common_products" json:"common_products"`
	HealthEffects   HealthEffects `yaml:"health_effects" json:"health_effects"`
	Alternatives    []string      `yaml:"alternatives" json:"alternatives"`
}

// Category is a browsable food category
type Category struct {
	Slug        string `yaml:"slug" json:"slug"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	additives  map[string]Additive // keyed by upper-cased id
	sorted     []Additive
	categories []Category
}

// Load parses the embedded reference data
func Load() (*Catalog, error) {
	return Parse(additivesYAML, categoriesYAML)
}

// Parse builds a catalog from YAML documents
func Parse(additives, categories []byte) (*Catalog, error) {
	var list []Additive
	if err := yaml.Unmarshal(additives, &list); err != nil {
		return nil, fmt.Errorf("failed to parse additives: %w", err)
	}
	var cats []Category
	if err := yaml.Unmarshal(categories, &cats); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}

	c := &Catalog{
		additives:  make(map[string]Additive, len(list)),
		categories: cats,
	}
	for _, a := range list {
		if a.ID == "" {
			return nil, fmt.Errorf("additive without id: %q", a.Name)
		}
		key := strings.ToUpper(a.ID)
		if _, dup := c.additives[key]; dup {
			return nil, fmt.Errorf("duplicate additive: %s", a.ID)
		}
		if a.Safety == "" {
			a.Safety = SafetyUnknown
		}
		c.additives[key] = a
		c.sorted = append(c.sorted, a)
	}
	sort.Slice(c.sorted, func(i, j int) bool {
		return additiveLess(c.sorted[i].ID, c.sorted[j].ID)
	})
	return c, nil
}

// Additive returns the additive with the given E-number, ignoring case
func (c *Catalog) Additive(id string) (Additive, bool) {
	a, ok := c.additives[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Additive{}, false
	}
	return a.clone(), true
}

// Lookup is like Additive but returns a placeholder record for unknown ids
func (c *Catalog) Lookup(id string) Additive {
	if a, ok := c.Additive(id); ok {
		return a
	}
	return Additive{
		ID:              strings.TrimSpace(id),
		Name:            "Unknown Additive",
		Type:            "Unknown",
		Safety:          SafetyUnknown,
		Description:     "Information not available for this additive",
		LongDescription: "Detailed information about this additive is not available in our database.",
		CommonProducts:  []string{},
		HealthEffects:   HealthEffects{Positive: []string{}, Negative: []string{}},
		Alternatives:    []string{},
	}
}

// Additives returns every additive ordered by E-number
func (c *Catalog) Additives() []Additive {
	out := make([]Additive, len(c.sorted))
	for i, a := range c.sorted {
		out[i] = a.clone()
	}
	return out
}

// Search matches query against E-numbers and names, case-insensitively.
// An empty query returns everything.
func (c *Catalog) Search(query string) []Additive {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Additives()
	}
	out := []Additive{}
	for _, a := range c.sorted {
		if strings.Contains(strings.ToLower(a.ID), q) || strings.Contains(strings.ToLower(a.Name), q) {
			out = append(out, a.clone())
		}
	}
	return out
}

// Categories returns the categories in display order
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Category returns the category with the given slug
func (c *Catalog) Category(slug string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return Category{}, false
}

// WorstSafety returns the least safe rating among ids. Unknown ids count as
// SafetyUnknown; an empty list is SafetySafe.
func (c *Catalog) WorstSafety(ids []string) Safety {
	worst := SafetySafe
	for _, id := range ids {
		s := c.Lookup(id).Safety
		if s.Level() > worst.Level() {
			worst = s
		}
	}
	return worst
}

func (a Additive) clone() Additive {
	a.CommonProducts = append([]string{}, a.CommonProducts...)
	a.HealthEffects.Positive = append([]string{}, a.HealthEffects.Positive...)
	a.HealthEffects.Negative = append([]string{}, a.HealthEffects.Negative...)
	a.Alternatives = append([]string{}, a.Alternatives...)
	return a
}

// additiveLess orders E-numbers numerically, then by suffix: E100 < E150a < E202.
func additiveLess(a, b string) bool {
	na, sa := splitENumber(a)
	nb, sb := splitENumber(b)
	if na != nb {
		return na < nb
	}
	return sa < sb
}

func splitENumber(id string) (int, string) {
	s := strings.TrimPrefix(strings.ToUpper(id), "E")
	n, i := 0, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n, strings.ToLower(s[i:])
}
