package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kojileo/datebank/pkg/config"
)

var (
	ErrMissingEmail       = errors.New("identity token carries no email")
	ErrUnverifiedEmail    = errors.New("identity provider has not verified the email")
	ErrNotConfigured      = errors.New("identity configuration not provided")
	ErrInvalidIdentityJWT = errors.New("invalid identity token")
)

// IdentityClaims are the claims the identity provider vouches for.
type IdentityClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil signs and verifies identity tokens.
type JWTUtil struct {
	config *config.IdentityConfig
}

func NewJWTUtil(config *config.IdentityConfig) *JWTUtil {
	return &JWTUtil{config: config}
}

// GenerateToken issues an identity token for the given profile.
func (j *JWTUtil) GenerateToken(email, name, picture string) (string, error) {
	if j.config == nil {
		return "", ErrNotConfigured
	}

	verified := true
	now := time.Now()
	claims := IdentityClaims{
		Email:         email,
		EmailVerified: &verified,
		Name:          name,
		Picture:       picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    j.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(j.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken verifies the signature, expiry and issuer and returns the claims.
func (j *JWTUtil) ValidateToken(tokenString string) (*IdentityClaims, error) {
	if j.config == nil {
		return nil, ErrNotConfigured
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&IdentityClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidIdentityJWT
	}
	if j.config.Issuer != "" && !claims.VerifyIssuer(j.config.Issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIdentityJWT, claims.Issuer)
	}
	if claims.Email == "" {
		return nil, ErrMissingEmail
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	return claims, nil
}
