// Package jwt issues and validates bearer access tokens carrying a user id.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const issuer = "notesync"

// ErrInvalidToken indicates a token that is malformed, expired or signed with another key
var ErrInvalidToken = errors.New("invalid token")

// Claims представляет JWT claims access token
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service provides JWT token generation and validation
type Service struct {
	clock          clockwork.Clock
	secret         []byte
	accessTokenTTL time.Duration
}

// Opt configures the service
type Opt func(*Service)

// WithClock sets the clock used for issue and expiry times
func WithClock(c clockwork.Clock) Opt {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService creates a new JWT service.
// secret should be a cryptographically secure random string
func NewService(secret string, accessTokenTTL time.Duration, opts ...Opt) *Service {
	s := &Service{
		secret:         []byte(secret),
		accessTokenTTL: accessTokenTTL,
		clock:          clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken creates a signed HS256 token for userID and returns it
// with its lifetime in seconds
func (s *Service) GenerateAccessToken(userID string) (string, int64, error) {
	if userID == "" {
		return "", 0, fmt.Errorf("empty user id: %w", ErrInvalidToken)
	}

	now := s.clock.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int64(s.accessTokenTTL.Seconds()), nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
