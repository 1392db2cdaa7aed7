package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidBarcode is returned when a barcode is empty after trimming.
var ErrInvalidBarcode = errors.New("invalid barcode")

// NutritionFacts holds the nutrient values reported for a product
type NutritionFacts struct {
	Calories float64 `json:"calories"` // kcal
	Fat      float64 `json:"fat"`      // grams
	Carbs    float64 `json:"carbs"`    // grams
	Protein  float64 `json:"protein"`  // grams
	Sugar    float64 `json:"sugar"`    // grams
}

// Product is the normalized record built from a successful barcode resolution.
// A Product is never mutated after construction; use Clone before handing it out.
type Product struct {
	ID             string         `json:"id"` // barcode
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	ImageURL       string         `json:"image_url"`
	NutritionFacts NutritionFacts `json:"nutrition_facts"`
	Ingredients    []string       `json:"ingredients"`
	Additives      []string       `json:"additives"`

	// Optional enrichment, passed through from the product-data API
	NutriScoreGrade *string  `json:"nutriscore_grade"`
	NovaGroup       *int     `json:"nova_group"`
	EcoScoreGrade   *string  `json:"ecoscore_grade"`
	Categories      []string `json:"categories"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	c := p
	c.Ingredients = cloneStrings(p.Ingredients)
	c.Additives = cloneStrings(p.Additives)
	c.Categories = cloneStrings(p.Categories)
	if p.NutriScoreGrade != nil {
		v := *p.NutriScoreGrade
		c.NutriScoreGrade = &v
	}
	if p.NovaGroup != nil {
		v := *p.NovaGroup
		c.NovaGroup = &v
	}
	if p.EcoScoreGrade != nil {
		v := *p.EcoScoreGrade
		c.EcoScoreGrade = &v
	}
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ValidateBarcode trims the value and rejects empty barcodes.
func ValidateBarcode(barcode string) (string, error) {
	b := strings.TrimSpace(barcode)
	if b == "" {
		return "", ErrInvalidBarcode
	}
	if strings.ContainsAny(b, "/?#") {
		return "", ErrInvalidBarcode
	}
	return b, nil
}

// SampleProduct returns the demo product the web client used before live lookups existed.
// It is kept for tests and offline demos only.
func SampleProduct(id string) Product {
	return Product{
		ID:       id,
		Name:     "Organic Granola Cereal",
		Brand:    "Nature's Best",
		ImageURL: "/placeholder.svg?height=300&width=300",
		NutritionFacts: NutritionFacts{
			Calories: 120,
			Fat:      3.5,
			Carbs:    22,
			Protein:  4,
			Sugar:    8,
		},
		Ingredients: []string{
			"Rolled oats",
			"Honey",
			"Sunflower oil",
			"Almonds",
			"Coconut",
			"Brown sugar",
			"Salt",
			"Natural flavor",
			"Vitamin E (E306)",
		},
		Additives:  []string{"E306"},
		Categories: []string{},
	}
}
