package forms

import (
	"context"
	"net/mail"
	"strings"
	"unicode"

	"budgetbuddy/internal/models"
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 4
)

// AuthAPI is the part of the backend client used by the auth screens.
type AuthAPI interface {
	Login(ctx context.Context, creds models.Credentials) (models.Tokens, error)
	Register(ctx context.Context, reg models.Registration) error
	ForgotPassword(ctx context.Context, email string) (string, error)
}

type LoginForm struct {
	Username string
	Password string
}

func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return invalid("username", "Username is required")
	}
	if f.Password == "" {
		return invalid("password", "Password is required")
	}
	return nil
}

type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate reports the first failing rule, in the order the user sees them.
func (f RegisterForm) Validate() error {
	if f.Password != f.ConfirmPassword {
		return invalid("confirm_password", "Passwords do not match")
	}
	if len(f.Password) < MinPasswordLength {
		return invalid("password", "Password must be at least 8 characters")
	}
	if len(strings.TrimSpace(f.Username)) < MinUsernameLength {
		return invalid("username", "Username must be at least 4 characters")
	}
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	return nil
}

// PasswordStrength scores 0..4: length, upper case, digit, symbol.
func PasswordStrength(password string) int {
	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}
	score := 0
	for _, ok := range []bool{len(password) >= MinPasswordLength, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return score
}

type ForgotPasswordForm struct {
	Email string
}

func (f ForgotPasswordForm) Validate() error {
	return validateEmail(f.Email)
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "Enter a valid email address")
	}
	return nil
}

// Auth submits the unauthenticated forms. Each form has its own guard.
type Auth struct {
	api      AuthAPI
	login    Guard
	register Guard
	forgot   Guard
}

func NewAuth(a AuthAPI) *Auth {
	return &Auth{api: a}
}

// Login validates and signs in; on success the client has stored the session.
func (a *Auth) Login(ctx context.Context, f LoginForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := a.login.Begin(); err != nil {
		return err
	}
	defer a.login.End()

	_, err := a.api.Login(ctx, models.Credentials{Username: strings.TrimSpace(f.Username), Password: f.Password})
	return err
}

func (a *Auth) Register(ctx context.Context, f RegisterForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := a.register.Begin(); err != nil {
		return err
	}
	defer a.register.End()

	return a.api.Register(ctx, models.Registration{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	})
}

// ForgotPassword returns the backend's confirmation message.
func (a *Auth) ForgotPassword(ctx context.Context, f ForgotPasswordForm) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	if err := a.forgot.Begin(); err != nil {
		return "", err
	}
	defer a.forgot.End()

	return a.api.ForgotPassword(ctx, strings.TrimSpace(f.Email))
}
