// Package auth validates the access tokens the external authentication
// provider issues. The token's subject is the payer address; signature
// verification is the extent of the core's trust decision.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
)

// Claims are the JWT claims facepay access tokens carry. Address is the
// already-verified payer address assigned by the authentication provider.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// TokenService validates (and, for tests and tooling, issues) HS256 access
// tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs a token binding the address for the given lifetime.
func (s *TokenService) Issue(addr domain.Address, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: addr.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate checks the signature and expiry and returns the bound address.
func (s *TokenService) Validate(tokenString string) (domain.Address, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	addr, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token carries no address")
	}
	return addr, nil
}
