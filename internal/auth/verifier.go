package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// UserClaims is the payload of access tokens issued by the identity service.
// The registered subject claim holds the user id.
type UserClaims struct {
	Username      string `json:"username"`
	Role          string `json:"role"`
	SchoolSubject string `json:"subject,omitempty"`
	jwt.RegisteredClaims
}

func (c *UserClaims) Caller() *models.Caller {
	return &models.Caller{
		ID:       c.RegisteredClaims.Subject,
		Username: c.Username,
		Subject:  c.SchoolSubject,
		Role:     models.Role(c.Role),
	}
}

type VerifierService struct {
	key *rsa.PublicKey
}

func NewVerifier(key *rsa.PublicKey) *VerifierService {
	return &VerifierService{key: key}
}

// NewVerifierFromFile reads a PEM encoded RSA public key.
func NewVerifierFromFile(path string) (*VerifierService, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read public key: %w", err)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("can't parse public key: %w", err)
	}
	return NewVerifier(key), nil
}

func (v *VerifierService) GetUserClaims(token string) (*UserClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*UserClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
