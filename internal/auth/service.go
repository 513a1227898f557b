package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned when a bearer token is missing or malformed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAdmin is returned when a valid token lacks the admin role.
	ErrNotAdmin = errors.New("admin role required")
)

// Service decides who may act as an administrator. A client proves it either
// with the static admin key or with a signed token carrying the admin role.
type Service struct {
	adminKey  string
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service. An empty adminKey disables
// static key logins.
func NewService(adminKey string, jwtConfig *JWTConfig) *Service {
	return &Service{
		adminKey:  adminKey,
		jwtConfig: jwtConfig,
	}
}

// IsAdminKey reports whether key grants the admin role.
func (s *Service) IsAdminKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if s.adminKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) == 1 {
		return true
	}
	_, err := s.Authorize(key)
	return err == nil
}

// Authorize validates a token and requires the admin role.
func (s *Service) Authorize(token string) (*Claims, error) {
	if s.jwtConfig == nil || len(s.jwtConfig.Secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// IssueAdminToken signs an admin token for subject.
func (s *Service) IssueAdminToken(subject string, ttl time.Duration) (string, error) {
	if s.jwtConfig == nil || len(s.jwtConfig.Secret) == 0 {
		return "", fmt.Errorf("issue token: jwt secret is not configured")
	}
	token, err := GenerateToken(s.jwtConfig, subject, RoleAdmin, ttl)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
