// Package signupcalc bridges the dual-unit signup inputs to the canonical
// weight_kg and height_cm form fields and computes a live BMI.
package signupcalc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"nutriscan/internal/bmi"
	"nutriscan/internal/units"
)

type WeightUnit string

const (
	Kg WeightUnit = "kg"
	Lb WeightUnit = "lb"
)

type HeightUnit string

const (
	Cm   HeightUnit = "cm"
	FtIn HeightUnit = "ft"
)

// Placeholder is shown instead of a BMI that cannot be computed.
const Placeholder = "--"

// Calculator owns the signup form's measurement inputs.
type Calculator struct {
	mu sync.Mutex

	weightUnit WeightUnit
	heightUnit HeightUnit

	weight   string // in weightUnit
	heightCm string
	feet     string
	inches   string

	// canonical values after the single rounding step; 0 when invalid
	weightKg    float64
	heightCmVal float64
}

// New starts in metric units with empty inputs.
func New() *Calculator {
	return &Calculator{weightUnit: Kg, heightUnit: Cm}
}

// Prefill seeds the metric inputs from canonical field values, e.g. when a
// rejected form is re-rendered.
func Prefill(weightKg, heightCm string) *Calculator {
	c := New()
	c.weight = strings.TrimSpace(weightKg)
	c.heightCm = strings.TrimSpace(heightCm)
	c.recompute()
	return c
}

func (c *Calculator) SetWeight(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weight = text
	c.recompute()
}

func (c *Calculator) SetHeightCm(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heightCm = text
	c.recompute()
}

func (c *Calculator) SetFeet(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feet = text
	c.recompute()
}

func (c *Calculator) SetInches(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inches = text
	c.recompute()
}

// SetWeightUnit activates one weight unit button. A valid displayed value is
// converted; the canonical weight is left exactly as it was.
func (c *Calculator) SetWeightUnit(u WeightUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if (u != Kg && u != Lb) || u == c.weightUnit {
		return
	}
	kg := c.weightKg
	if kg > 0 {
		v := kg
		if u == Lb {
			v = units.KgToLb(v)
		}
		c.weight = formatNumber(units.Round2(v))
	}
	c.weightUnit = u
	c.recompute()
	if kg > 0 {
		c.weightKg = kg
	}
}

// SetHeightUnit switches between the centimeter input and the feet+inches
// input group.
func (c *Calculator) SetHeightUnit(u HeightUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if (u != Cm && u != FtIn) || u == c.heightUnit {
		return
	}
	cm := c.heightCmVal
	if cm > 0 {
		if u == FtIn {
			ft, in := feetInches(cm)
			c.feet = strconv.Itoa(ft)
			c.inches = formatNumber(in)
		} else {
			c.heightCm = formatNumber(cm)
		}
	}
	c.heightUnit = u
	c.recompute()
	// the rounded display must not leak back into the canonical field
	if cm > 0 {
		c.heightCmVal = cm
	}
}

// feetInches splits cm for display with inches at one decimal, carrying a
// rounded-up 12 into the feet.
func feetInches(cm float64) (int, float64) {
	ft, in := units.CmToFeetInches(cm)
	in = math.Round(in*10) / 10
	if in >= 12 {
		ft++
		in -= 12
	}
	return ft, in
}

func (c *Calculator) recompute() {
	c.weightKg = 0
	if w, ok := parsePositive(c.weight); ok {
		if c.weightUnit == Lb {
			w = units.LbToKg(w)
		}
		c.weightKg = units.Round2(w)
	}

	c.heightCmVal = 0
	switch c.heightUnit {
	case Cm:
		if h, ok := parsePositive(c.heightCm); ok {
			c.heightCmVal = units.Round2(h)
		}
	case FtIn:
		ft, okFt := parseOptional(c.feet)
		in, okIn := parseOptional(c.inches)
		if okFt && okIn {
			if h := units.FeetInchesToCm(ft, in); h > 0 {
				c.heightCmVal = units.Round2(h)
			}
		}
	}
}

type Button struct {
	Unit   string
	Active bool
}

// View is the render snapshot of the signup measurement block.
type View struct {
	WeightButtons []Button
	HeightButtons []Button

	WeightUnit   WeightUnit
	WeightInput  string
	ShowCmInput  bool
	ShowFtInput  bool
	HeightCm     string
	Feet, Inches string

	// Hidden canonical fields submitted with the form.
	WeightKgField string
	HeightCmField string

	BMIText  string
	Category string
	Color    string
}

func (c *Calculator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		WeightButtons: []Button{{Unit: string(Kg), Active: c.weightUnit == Kg}, {Unit: string(Lb), Active: c.weightUnit == Lb}},
		HeightButtons: []Button{{Unit: string(Cm), Active: c.heightUnit == Cm}, {Unit: string(FtIn), Active: c.heightUnit == FtIn}},
		WeightUnit:    c.weightUnit,
		WeightInput:   c.weight,
		ShowCmInput:   c.heightUnit == Cm,
		ShowFtInput:   c.heightUnit == FtIn,
		HeightCm:      c.heightCm,
		Feet:          c.feet,
		Inches:        c.inches,
		BMIText:       Placeholder,
	}
	if c.weightKg > 0 {
		v.WeightKgField = fmt.Sprintf("%.2f", c.weightKg)
	}
	if c.heightCmVal > 0 {
		v.HeightCmField = fmt.Sprintf("%.2f", c.heightCmVal)
	}

	value, err := bmi.Calculate(c.weightKg, c.heightCmVal)
	if err == nil {
		band := bmi.Classify(value)
		v.BMIText = fmt.Sprintf("%.1f", value)
		v.Category = band.Label
		v.Color = band.Color
	}
	return v
}

// Canonical returns the rounded canonical values and whether both are set.
func (c *Calculator) Canonical() (weightKg, heightCm float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weightKg, c.heightCmVal, c.weightKg > 0 && c.heightCmVal > 0
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseOptional treats an empty field as zero.
func parseOptional(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
