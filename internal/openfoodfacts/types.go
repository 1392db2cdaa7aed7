package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Response is the product endpoint payload. Every field is optional; nothing
// about its presence or type is assumed until MapProduct applies defaults.
type Response struct {
	Code          string           `json:"code"`
	Status        *FlexInt         `json:"status"`
	StatusVerbose string           `json:"status_verbose"`
	Product       *ResponseProduct `json:"product"`
}

// Found reports whether the payload describes an existing product.
// Status 0 is the API's "no such product" sentinel.
func (r *Response) Found() bool {
	if r == nil || r.Product == nil {
		return false
	}
	if r.Status != nil && *r.Status == 0 {
		return false
	}
	return true
}

// ResponseProduct is the nested product object
type ResponseProduct struct {
	ProductName       *string     `json:"product_name"`
	Brands            *string     `json:"brands"`
	ImageURL          *string     `json:"image_url"`
	Nutriments        *Nutriments `json:"nutriments"`
	IngredientsTextEN *string     `json:"ingredients_text_en"`
	IngredientsText   *string     `json:"ingredients_text"`
	AdditivesTags     []string    `json:"additives_tags"`
	CategoriesTags    []string    `json:"categories_tags"`
	NutriScoreGrade   *string     `json:"nutriscore_grade"`
	NovaGroup         *FlexInt    `json:"nova_group"`
	EcoScoreGrade     *string     `json:"ecoscore_grade"`
}

// Nutriments holds the nutrient values the app displays
type Nutriments struct {
	EnergyValue        *FlexFloat `json:"energy_value"`
	FatValue           *FlexFloat `json:"fat_value"`
	CarbohydratesValue *FlexFloat `json:"carbohydrates_value"`
	ProteinsValue      *FlexFloat `json:"proteins_value"`
	SugarsValue        *FlexFloat `json:"sugars_value"`
}

// FlexFloat decodes a JSON number or numeric string. Null, empty, malformed
// and non-finite values ("trace", "NaN", "Inf") decode to 0 so one bad
// nutrient never fails the whole product.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = FlexFloat(flexNumber(b))
	return nil
}

// FlexInt decodes a JSON integer or numeric string, with the same fallback
// to 0 as FlexFloat.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	*i = FlexInt(int(flexNumber(b)))
	return nil
}

// flexNumber parses b as a finite number, or returns 0.
func flexNumber(b []byte) float64 {
	s, ok := flexString(b)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// flexString returns the raw numeric text of b, or false for null/empty.
func flexString(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", false
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		return s, true
	}
	return string(b), true
}
