package cli

import (
	"fmt"
	"strings"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/models"
)

// RenderProduct renders the product detail view. cat may be nil, in which
// case additives are listed without safety ratings.
func RenderProduct(p models.Product, cat *catalog.Catalog) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", SubtitleStyle.Render(p.Brand))
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Barcode:"), p.ID)

	var scores []string
	if p.NutriScoreGrade != nil {
		scores = append(scores, "Nutri-Score "+GradeBadge(*p.NutriScoreGrade))
	}
	if p.EcoScoreGrade != nil {
		scores = append(scores, "Eco-Score "+GradeBadge(*p.EcoScoreGrade))
	}
	if p.NovaGroup != nil {
		scores = append(scores, fmt.Sprintf("NOVA %d", *p.NovaGroup))
	}
	if len(scores) > 0 {
		fmt.Fprintf(&b, "%s\n", strings.Join(scores, "  "))
	}

	b.WriteString("\n" + BoldStyle.Render("Nutrition Facts") + "\n")
	n := p.NutritionFacts
	fmt.Fprintf(&b, "  %-10s %g kcal\n", "Calories", n.Calories)
	fmt.Fprintf(&b, "  %-10s %gg\n", "Fat", n.Fat)
	fmt.Fprintf(&b, "  %-10s %gg\n", "Carbs", n.Carbs)
	fmt.Fprintf(&b, "  %-10s %gg\n", "Protein", n.Protein)
	fmt.Fprintf(&b, "  %-10s %gg\n", "Sugar", n.Sugar)

	b.WriteString("\n" + BoldStyle.Render("Ingredients") + "\n")
	if len(p.Ingredients) == 0 {
		b.WriteString("  " + SubtleStyle.Render("No ingredients listed") + "\n")
	} else {
		b.WriteString("  " + strings.Join(p.Ingredients, ", ") + "\n")
	}

	b.WriteString("\n" + BoldStyle.Render("Additives") + "\n")
	if len(p.Additives) == 0 {
		b.WriteString("  " + SubtleStyle.Render("No additives") + "\n")
	} else if cat != nil {
		worst := cat.WorstSafety(p.Additives)
		fmt.Fprintf(&b, "  %s %s\n", SubtleStyle.Render("Overall:"), SafetyStyle(worst).Render(string(worst)))
	}
	for _, id := range p.Additives {
		if cat == nil {
			fmt.Fprintf(&b, "  %s\n", id)
			continue
		}
		a := cat.Lookup(id)
		fmt.Fprintf(&b, "  %-6s %s %s\n", id, a.Name, SafetyStyle(a.Safety).Render("("+string(a.Safety)+")"))
	}

	if len(p.Categories) > 0 {
		b.WriteString("\n" + SubtleStyle.Render("Categories: "+strings.Join(p.Categories, ", ")) + "\n")
	}

	return RenderBox(p.Name, strings.TrimRight(b.String(), "\n"))
}

// RenderHistory lists recent products, most recent first
func RenderHistory(products []models.Product) string {
	if len(products) == 0 {
		return SubtleStyle.Render("No products scanned yet")
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Recent Products") + "\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%2d. %-16s %s %s\n", i+1, p.ID, p.Name, SubtleStyle.Render(p.Brand))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPreferences renders the user's settings
func RenderPreferences(p models.Preferences) string {
	onOff := func(v bool) string {
		if v {
			return SuccessStyle.Render("on")
		}
		return SubtleStyle.Render("off")
	}
	return strings.Join([]string{
		TitleStyle.Render("Settings"),
		fmt.Sprintf("  %-14s %s", "theme", p.Theme),
		fmt.Sprintf("  %-14s %s", "notifications", onOff(p.NotificationsEnabled)),
		fmt.Sprintf("  %-14s %s", "scan-history", onOff(p.ScanHistoryEnabled)),
	}, "\n")
}

// RenderAdditiveList renders one line per additive
func RenderAdditiveList(list []catalog.Additive) string {
	if len(list) == 0 {
		return SubtleStyle.Render("No additives found")
	}
	var b strings.Builder
	for _, a := range list {
		fmt.Fprintf(&b, "%-6s %-28s %-18s %s\n", a.ID, a.Name, a.Type, SafetyStyle(a.Safety).Render(string(a.Safety)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderAdditive renders the additive detail view
func RenderAdditive(a catalog.Additive) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", SubtitleStyle.Render(a.Name), SafetyStyle(a.Safety).Render(string(a.Safety)))
	fmt.Fprintf(&b, "%s %s\n\n", SubtleStyle.Render("Type:"), a.Type)
	b.WriteString(a.LongDescription + "\n")

	section := func(title string, items []string, empty string) {
		b.WriteString("\n" + BoldStyle.Render(title) + "\n")
		if len(items) == 0 {
			b.WriteString("  " + SubtleStyle.Render(empty) + "\n")
			return
		}
		for _, item := range items {
			b.WriteString("  - " + item + "\n")
		}
	}
	section("Commonly Found In", a.CommonProducts, "No common products listed")
	section("Potential Benefits", a.HealthEffects.Positive, "No known benefits")
	section("Potential Concerns", a.HealthEffects.Negative, "No known concerns")
	section("Natural Alternatives", a.Alternatives, "No alternatives listed")

	return RenderBox(a.ID, strings.TrimRight(b.String(), "\n"))
}

// RenderCategories renders the food categories
func RenderCategories(cats []catalog.Category) string {
	var b strings.Builder
	for _, c := range cats {
		fmt.Fprintf(&b, "%-16s %s\n", BoldStyle.Render(c.Title), SubtleStyle.Render(c.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}
