package units

import (
	"math"
	"testing"
)

func TestPoundRoundTrip(t *testing.T) {
	kg := Round2(LbToKg(154))
	back := KgToLb(kg)
	if math.Abs(back-154) >= 0.1 {
		t.Fatalf("round trip drifted: 154 lb -> %v kg -> %v lb", kg, back)
	}
}

func TestFeetInchesToCm(t *testing.T) {
	got := FeetInchesToCm(5, 9)
	if math.Abs(got-175.26) > 1e-9 {
		t.Fatalf("expected 175.26, got %v", got)
	}
}

func TestCmToFeetInches(t *testing.T) {
	feet, inches := CmToFeetInches(175.26)
	if feet != 5 || math.Abs(inches-9) > 1e-6 {
		t.Fatalf("expected 5ft 9in, got %dft %.4fin", feet, inches)
	}
}
