/**
 * @description
 * This file contains admin account management: signup with a restricted email
 * domain, login with bcrypt verification, and HS256 session token issuance.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Session token signing.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10
	tokenTTL   = 7 * 24 * time.Hour
)

var (
	// ErrFieldsRequired is returned when a signup or login payload is missing
	// required fields.
	ErrFieldsRequired = errors.New("all fields are required")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooShort is returned for passwords under six characters.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrInvalidCredentials is returned on unknown email or wrong password.
	// It is deliberately indistinguishable between the two cases.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// EmailDomainError reports a signup/login email outside the allowed domain.
type EmailDomainError struct {
	Domain string
}

func (e *EmailDomainError) Error() string {
	return "email must be at " + e.Domain
}

// AuthService handles admin accounts and session tokens.
type AuthService struct {
	repo        store.Repository
	jwtSecret   []byte
	emailDomain string
	emailRegexp *regexp.Regexp
}

// NewAuthService creates an AuthService restricted to the given email domain.
func NewAuthService(repo store.Repository, jwtSecret, emailDomain string) *AuthService {
	return &AuthService{
		repo:        repo,
		jwtSecret:   []byte(jwtSecret),
		emailDomain: emailDomain,
		emailRegexp: regexp.MustCompile(`(?i)^[^@\s]+@` + regexp.QuoteMeta(emailDomain) + `$`),
	}
}

// Signup creates a new admin account and returns it with a session token.
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Admin, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, "", ErrFieldsRequired
	}
	if !s.emailRegexp.MatchString(email) {
		return nil, "", &EmailDomainError{Domain: s.emailDomain}
	}
	if req.Password != req.ConfirmPassword {
		return nil, "", ErrPasswordMismatch
	}
	if len(req.Password) < 6 {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	admin := &domain.Admin{Email: email, PasswordHash: string(hash)}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, "", err
	}

	token, err := s.signToken(admin)
	if err != nil {
		return nil, "", err
	}
	return admin, token, nil
}

// Login verifies credentials and returns the admin with a session token.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.Admin, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", ErrFieldsRequired
	}
	if !s.emailRegexp.MatchString(email) {
		return nil, "", &EmailDomainError{Domain: s.emailDomain}
	}

	admin, err := s.repo.FindAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.signToken(admin)
	if err != nil {
		return nil, "", err
	}
	return admin, token, nil
}

func (s *AuthService) signToken(admin *domain.Admin) (string, error) {
	claims := jwt.MapClaims{
		"id":    admin.ID.String(),
		"email": admin.Email,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
