package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordMismatch   = errors.New("the two password fields didn't match")
	ErrWeakPassword       = errors.New("password must contain at least 8 characters")
	ErrInvalidEmail       = errors.New("enter a valid email address")
)

// RegisterInput mirrors the signup form after the unit calculator has filled
// the canonical weight_kg and height_cm fields.
type RegisterInput struct {
	Name               string
	Email              string
	Password           string
	PasswordConfirm    string
	Age                *int
	HeightCm           *float64
	WeightKg           *float64
	DietaryPreferences string
	HealthIssues       string
	Goals              string
}

type Service struct {
	repo UserRepository
}

func NewService(repo UserRepository) *Service {
	return &Service{repo: repo}
}

// REGISTER
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(
		[]byte(in.Password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:               strings.TrimSpace(in.Name),
		Email:              strings.ToLower(email),
		Password:           string(hashedPassword),
		Age:                in.Age,
		HeightCm:           in.HeightCm,
		WeightKg:           in.WeightKg,
		DietaryPreferences: in.DietaryPreferences,
		HealthIssues:       in.HealthIssues,
		Goals:              in.Goals,
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// LOGIN
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword(
		[]byte(user.Password),
		[]byte(password),
	)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
