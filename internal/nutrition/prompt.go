package nutrition

import (
	"encoding/json"
	"fmt"
	"strings"

	"nutriscan/internal/knowledge"
	"nutriscan/internal/product"
)

// KnowledgeWordLimit caps the dietary principles included in a prompt.
const KnowledgeWordLimit = 2500

const systemInstructions = `You are an expert AI Nutritionist. Your task is to analyze a food product based on a user's profile and
provided dietary principles. Produce exactly one JSON object and nothing else. The JSON object keys must be:
- "advisability": string, one of "Yes", "No", "With Caution"
- "pros": list of short factual strings
- "cons": list of short factual strings
- "summary": short string with up to three concise points explaining the reasoning

Do not include any commentary or additional text outside the JSON object.`

var example = Assessment{
	Advisability: "With Caution",
	Pros: []string{
		"Good source of fiber, which aids satiety.",
		"Provides a quick energy boost.",
	},
	Cons: []string{
		"Very high in sugar (25g per 100g).",
		"High in calories and fat, making it dense for a weight loss diet.",
	},
	Summary: "This bar provides satiety via fiber but is high in sugar and calories, so limit consumption.",
}

// BuildPrompt returns the system message (instructions plus one worked
// example) and the user prompt carrying the live data.
func BuildPrompt(p Profile, prod *product.Product, dietKnowledge string) (system, user string) {
	ex, _ := json.MarshalIndent(example, "", "  ")
	system = systemInstructions + "\n\n---EXAMPLE---\n" + string(ex) + "\n---END EXAMPLE---"

	name := product.UnknownName
	nutrients := ""
	if prod != nil {
		if prod.ProductName != "" {
			name = prod.ProductName
		}
		nutrients = prod.FormatNutrients()
	}

	var b strings.Builder
	b.WriteString("<user_profile>\n")
	b.WriteString(p.promptBlock())
	b.WriteString("\n</user_profile>\n\n")
	b.WriteString("<product_info>\n")
	fmt.Fprintf(&b, "- Name: %s\n", name)
	b.WriteString("- Nutrients (per 100g if applicable):\n")
	b.WriteString(nutrients)
	b.WriteString("\n</product_info>\n\n")
	b.WriteString("<dietary_principles>\n")
	b.WriteString(knowledge.TruncateWords(dietKnowledge, KnowledgeWordLimit))
	b.WriteString("\n</dietary_principles>\n\n")
	b.WriteString("Based on all the information provided, produce the single JSON object described above.")

	return system, b.String()
}
