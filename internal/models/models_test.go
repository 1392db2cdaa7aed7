package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBarcode(t *testing.T) {
	b, err := ValidateBarcode("  3017620422003 ")
	require.NoError(t, err)
	assert.Equal(t, "3017620422003", b)

	for _, bad := range []string{"", "   ", "123/456", "12?3"} {
		_, err := ValidateBarcode(bad)
		assert.ErrorIs(t, err, ErrInvalidBarcode, bad)
	}
}

func TestProductCloneIsDeep(t *testing.T) {
	grade := "a"
	nova := 4
	p := SampleProduct("123")
	p.NutriScoreGrade = &grade
	p.NovaGroup = &nova

	c := p.Clone()
	c.Ingredients[0] = "changed"
	*c.NutriScoreGrade = "e"
	*c.NovaGroup = 1

	assert.Equal(t, "Rolled oats", p.Ingredients[0])
	assert.Equal(t, "a", *p.NutriScoreGrade)
	assert.Equal(t, 4, *p.NovaGroup)
}

func TestCloneNilSlicesBecomeEmpty(t *testing.T) {
	c := Product{ID: "1"}.Clone()
	assert.NotNil(t, c.Ingredients)
	assert.Empty(t, c.Ingredients)
	assert.NotNil(t, c.Additives)
	assert.NotNil(t, c.Categories)
}

func TestParseTheme(t *testing.T) {
	tests := map[string]Theme{
		"light":  ThemeLight,
		"DARK":   ThemeDark,
		"System": ThemeSystem,
		"":       ThemeSystem,
	}
	for in, want := range tests {
		got, err := ParseTheme(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseTheme("sepia")
	assert.Error(t, err)
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.Equal(t, ThemeSystem, p.Theme)
	assert.True(t, p.NotificationsEnabled)
	assert.True(t, p.ScanHistoryEnabled)
}
