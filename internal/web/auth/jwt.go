package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer marks every token izruna mints, so a token signed for
// a different conduit-lang service sharing the same secret space
// can't be mistaken for an admin credential here.
const tokenIssuer = "izruna"

// AuthService mints and validates the bearer tokens izruna's
// /admin/login endpoint issues, guarding the rule-reload and
// exception-override routes.
type AuthService struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewAuthService creates an AuthService bound to izruna.yml's
// auth.jwt_secret and auth.token_ttl_seconds.
func NewAuthService(secretKey string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
	}
}

// GenerateToken mints a signed admin session token carrying the
// operator's id, email, and role set (currently just "admin").
func (s *AuthService) GenerateToken(userID, email string, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"roles":   roles,
		"iss":     tokenIssuer,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken verifies the token's signature, expiry, and issuer,
// returning its claims for middleware.Auth to extract the user id and
// roles from.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
