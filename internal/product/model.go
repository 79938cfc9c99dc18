package product

// Product is the subset of an OpenFoodFacts record the analysis uses.
type Product struct {
	Barcode         string            `json:"barcode"`
	ProductName     string            `json:"product_name"`
	NutriscoreGrade string            `json:"nutriscore_grade"`
	NutriscoreScore float64           `json:"nutriscore_score"`
	Nutriments      map[string]any    `json:"nutriments"`
	NutrientLevels  map[string]string `json:"nutrient_levels"`
	ImageURL        string            `json:"image_url"`
}

const UnknownName = "Unknown Product"

// HasUsableData reports whether the product is named and carries some
// nutrition data.
func (p *Product) HasUsableData() bool {
	if p == nil || p.ProductName == "" || p.ProductName == UnknownName {
		return false
	}
	return len(p.Nutriments) > 0 || (p.NutriscoreGrade != "" && p.NutriscoreGrade != "N/A")
}
