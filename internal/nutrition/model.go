package nutrition

import (
	"fmt"
	"strings"
)

// Profile is the health data a personalised assessment needs.
type Profile struct {
	Age                int
	WeightKg           float64
	HeightCm           float64
	BMI                float64
	HealthConditions   string
	DietaryPreferences string
	Goal               string
}

func (p Profile) promptBlock() string {
	orNone := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	lines := []string{
		"- Age: " + orProvided(p.Age > 0, fmt.Sprint(p.Age)),
		"- Weight: " + orProvided(p.WeightKg > 0, fmt.Sprintf("%g kg", p.WeightKg)),
		"- Height: " + orProvided(p.HeightCm > 0, fmt.Sprintf("%g cm", p.HeightCm)),
		"- BMI: " + orProvided(p.BMI > 0, fmt.Sprintf("%.1f", p.BMI)),
		"- Health Conditions: " + orNone(p.HealthConditions, "None"),
		"- Dietary Preferences: " + orNone(p.DietaryPreferences, "None"),
		"- Goal: " + orNone(p.Goal, "General health"),
	}
	return strings.Join(lines, "\n")
}

func orProvided(ok bool, v string) string {
	if !ok {
		return "Not provided"
	}
	return v
}

// Assessment is the normalised model verdict.
type Assessment struct {
	Advisability string   `json:"advisability"`
	Pros         []string `json:"pros"`
	Cons         []string `json:"cons"`
	Summary      string   `json:"summary"`
	Raw          string   `json:"raw,omitempty"`
}

const (
	UnknownAdvisability = "Unknown"
	NoSummary           = "No summary available"
)

// Normalize maps a parsed model reply onto an Assessment, accepting the
// alias keys models commonly use and filling defaults.
func Normalize(m map[string]any) Assessment {
	a := Assessment{
		Advisability: firstString(m, "advisability", "recommendation"),
		Pros:         firstList(m, "pros", "benefits"),
		Cons:         firstList(m, "cons", "drawbacks"),
		Summary:      firstString(m, "summary", "explanation"),
	}
	if a.Advisability == "" {
		a.Advisability = UnknownAdvisability
	}
	if a.Summary == "" {
		a.Summary = NoSummary
	}
	return a
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstList wraps a non-list value in a one-element list.
func firstList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch items := v.(type) {
		case []any:
			if len(items) == 0 {
				continue
			}
			out := make([]string, 0, len(items))
			for _, it := range items {
				out = append(out, fmt.Sprint(it))
			}
			return out
		case string:
			if items == "" {
				continue
			}
			return []string{items}
		default:
			return []string{fmt.Sprint(items)}
		}
	}
	return []string{}
}
