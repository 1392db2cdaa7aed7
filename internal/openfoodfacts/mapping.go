package openfoodfacts

import (
	"strings"
	"time"

	"github.com/franckalain/eatsmarty/internal/models"
)

const (
	DefaultName     = "Unknown Product"
	DefaultBrand    = "Unknown Brand"
	DefaultImageURL = "/placeholder.svg?height=300&width=300"

	// tagPrefix namespaces additive and category tags, e.g. "en:e330".
	tagPrefix = "en:"
)

// MapProduct converts an API product into a Product. Each field is read
// defensively and the stated default is used when it is absent.
func MapProduct(barcode string, p *ResponseProduct, fetchedAt time.Time) models.Product {
	if p == nil {
		p = &ResponseProduct{}
	}

	product := models.Product{
		ID:          barcode,
		Name:        stringOr(p.ProductName, DefaultName),
		Brand:       stringOr(p.Brands, DefaultBrand),
		ImageURL:    stringOr(p.ImageURL, DefaultImageURL),
		Ingredients: splitIngredients(ingredientsText(p)),
		Additives:   mapTags(p.AdditivesTags, strings.ToUpper),
		Categories:  mapTags(p.CategoriesTags, nil),
		FetchedAt:   fetchedAt,
	}

	if n := p.Nutriments; n != nil {
		product.NutritionFacts = models.NutritionFacts{
			Calories: nonNegative(n.EnergyValue),
			Fat:      nonNegative(n.FatValue),
			Carbs:    nonNegative(n.CarbohydratesValue),
			Protein:  nonNegative(n.ProteinsValue),
			Sugar:    nonNegative(n.SugarsValue),
		}
	}

	product.NutriScoreGrade = optionalString(p.NutriScoreGrade)
	product.EcoScoreGrade = optionalString(p.EcoScoreGrade)
	if p.NovaGroup != nil && *p.NovaGroup != 0 {
		v := int(*p.NovaGroup)
		product.NovaGroup = &v
	}

	return product
}

func stringOr(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return strings.TrimSpace(*s)
}

func optionalString(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nonNegative(f *FlexFloat) float64 {
	if f == nil || *f < 0 || !finite(float64(*f)) {
		return 0
	}
	return float64(*f)
}

func ingredientsText(p *ResponseProduct) string {
	if p.IngredientsTextEN != nil && strings.TrimSpace(*p.IngredientsTextEN) != "" {
		return *p.IngredientsTextEN
	}
	if p.IngredientsText != nil {
		return *p.IngredientsText
	}
	return ""
}

// splitIngredients splits comma separated text into trimmed, non-empty entries.
func splitIngredients(text string) []string {
	out := []string{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, part := range strings.Split(text, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mapTags(tags []string, transform func(string) string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.TrimPrefix(strings.TrimSpace(tag), tagPrefix)
		if t == "" {
			continue
		}
		if transform != nil {
			t = transform(t)
		}
		out = append(out, t)
	}
	return out
}
