package service

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/sauverpro/Safe-Vend-Backend/internal/config"
	"github.com/sauverpro/Safe-Vend-Backend/internal/utils"
)

// AuthService authenticates the fleet operator account configured via
// environment and issues JWTs for the mutating catalog endpoints.
type AuthService struct {
	admin config.AdminConfig
}

// NewAuthService constructs an AuthService.
func NewAuthService(admin config.AdminConfig) *AuthService {
	return &AuthService{admin: admin}
}

// Login verifies operator credentials and returns a signed token.
func (s *AuthService) Login(email, password string) (string, error) {
	if s.admin.Email == "" || s.admin.PasswordHash == "" {
		log.Warn().Msg("operator account not configured, rejecting login")
		return "", utils.ErrInvalidCredentials
	}
	if email != s.admin.Email {
		return "", utils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("password verification failed")
		return "", utils.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(email)
	if err != nil {
		return "", err
	}
	log.Info().Str("email", email).Msg("operator login successful")
	return token, nil
}
