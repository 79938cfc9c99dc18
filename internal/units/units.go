package units

import "math"

const (
	KgPerLb = 0.453592
	CmPerFt = 30.48
	CmPerIn = 2.54
)

func LbToKg(lb float64) float64 { return lb * KgPerLb }

func KgToLb(kg float64) float64 { return kg / KgPerLb }

// FeetInchesToCm combines feet and inches before converting.
func FeetInchesToCm(feet, inches float64) float64 {
	return feet*CmPerFt + inches*CmPerIn
}

// CmToFeetInches splits a height into whole feet and remaining inches.
func CmToFeetInches(cm float64) (feet int, inches float64) {
	totalIn := cm / CmPerIn
	feet = int(totalIn / 12)
	inches = totalIn - float64(feet)*12
	return feet, inches
}

// Round2 is the single rounding step applied at the canonical field boundary.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
