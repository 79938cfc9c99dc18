package auth

import (
	"time"

	"nutriscan/internal/bmi"
)

// User is the domain entity, including the health profile used for
// personalised assessments.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string

	Age                *int
	HeightCm           *float64
	WeightKg           *float64
	DietaryPreferences string
	HealthIssues       string
	Goals              string

	CreatedAt time.Time
}

// BMI is computed from the stored height and weight, rounded to 2 decimals.
func (u *User) BMI() (float64, bool) {
	if u.HeightCm == nil || u.WeightKg == nil {
		return 0, false
	}
	v, err := bmi.Calculate(*u.WeightKg, *u.HeightCm)
	if err != nil {
		return 0, false
	}
	return bmi.Round(v, 2), true
}
