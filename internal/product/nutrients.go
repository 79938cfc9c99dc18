package product

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultNutrientMap lists the nutrients shown on the result page as
// key:label pairs.
const DefaultNutrientMap = "energy-kcal:Energy (kcal)|fat:Total Fat|saturated-fat:Saturated Fat|" +
	"carbohydrates:Carbohydrate|fiber:Fiber|sugars:Sugar|proteins:Protein|" +
	"salt:Salt|sodium:Sodium"

type NutrientField struct {
	Key   string
	Label string
}

// ParseNutrientMap keeps the order of the map string. Entries without a
// colon are skipped; an empty result falls back to DefaultNutrientMap.
func ParseNutrientMap(s string) []NutrientField {
	var out []NutrientField
	for _, item := range strings.Split(s, "|") {
		key, label, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		out = append(out, NutrientField{Key: strings.TrimSpace(key), Label: strings.TrimSpace(label)})
	}
	if len(out) == 0 && s != DefaultNutrientMap {
		return ParseNutrientMap(DefaultNutrientMap)
	}
	return out
}

type NutrientRow struct {
	Label string
	Value string
	Level string
}

// Rows resolves each field against the per-100g nutriments, skipping
// nutrients the product does not report.
func (p *Product) Rows(fields []NutrientField) []NutrientRow {
	var rows []NutrientRow
	for _, f := range fields {
		v, ok := p.Nutriments[f.Key+"_100g"]
		if !ok {
			v, ok = p.Nutriments[f.Key]
		}
		if !ok || v == nil {
			continue
		}
		value := formatValue(v)
		if unit, ok := p.Nutriments[f.Key+"_unit"].(string); ok && unit != "" {
			value += " " + unit
		}
		rows = append(rows, NutrientRow{Label: f.Label, Value: value, Level: p.NutrientLevels[f.Key]})
	}
	return rows
}

// FormatNutrients renders every nutriment as "- Key Name: value", sorted by
// key, for inclusion in a prompt.
func (p *Product) FormatNutrients() string {
	keys := make([]string, 0, len(p.Nutriments))
	for k := range p.Nutriments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", humanKey(k), formatValue(p.Nutriments[k])))
	}
	return strings.Join(lines, "\n")
}

func humanKey(k string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(k))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%g", n)
	case string:
		return n
	default:
		return fmt.Sprint(n)
	}
}
