package bmi

import (
	"errors"
	"math"
)

var ErrInvalidInput = errors.New("weight and height must be positive")

// Band is one contiguous BMI range with its display attributes.
type Band struct {
	Name  string
	Label string
	Color string
	Min   float64 // inclusive
	Max   float64 // exclusive, +Inf for the last band
}

// Bands are ordered, contiguous and cover [0, +Inf).
var Bands = []Band{
	{Name: "Underweight", Label: "Underweight", Color: "#3498db", Min: 0, Max: 18.5},
	{Name: "Normal", Label: "Normal weight", Color: "#2ecc71", Min: 18.5, Max: 25},
	{Name: "Overweight", Label: "Overweight", Color: "#f39c12", Min: 25, Max: 30},
	{Name: "Obese", Label: "Obese", Color: "#e74c3c", Min: 30, Max: math.Inf(1)},
}

// Calculate expects weight in kilograms and height in centimeters.
func Calculate(weightKg, heightCm float64) (float64, error) {
	if !finitePositive(weightKg) || !finitePositive(heightCm) {
		return 0, ErrInvalidInput
	}
	h := heightCm / 100.0
	return weightKg / (h * h), nil
}

// Classify returns the band containing value. Negative or NaN input falls
// into the first band so callers always get a displayable result.
func Classify(value float64) Band {
	for _, b := range Bands {
		if value < b.Max {
			return b
		}
	}
	if math.IsNaN(value) {
		return Bands[0]
	}
	return Bands[len(Bands)-1]
}

// Round rounds to the given number of decimals.
func Round(value float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(value*p) / p
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
