package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every reason a bearer token is refused
var ErrInvalidToken = errors.New("token is invalid or expired")

// TokenManager issues and verifies the HMAC signed access tokens handed out at login
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager signing with HS256
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token carrying the principal id, email and role
func (m *TokenManager) Issue(p Principal) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("cannot generate token: no subject id available")
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return "", fmt.Errorf("cannot generate token: %w", err)
	}

	now := m.now()
	claims := jwt.MapClaims{
		"uid":   p.ID,
		"email": p.Email,
		"role":  string(p.Role),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
}

// Parse verifies the signature and time claims and returns the principal.
// Every failure wraps ErrInvalidToken.
func (m *TokenManager) Parse(tokenString string) (Principal, error) {
	claims, err := m.parseAndValidate(tokenString)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid, ok := claims["uid"].(string)
	if !ok || !models.IsID(uid) {
		return Principal{}, fmt.Errorf("%w: token missing required 'uid' claim", ErrInvalidToken)
	}

	// role is strictly required, no defaults
	roleClaim, _ := claims["role"].(string)
	role, err := ParseRole(roleClaim)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := claims["email"].(string)
	return Principal{ID: uid, Email: email, Role: role}, nil
}

func (m *TokenManager) parseAndValidate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method to prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v. Expected HMAC", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	now := m.now()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("token missing exp claim")
	}
	if exp.Before(now) {
		return nil, fmt.Errorf("token has expired")
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		return nil, fmt.Errorf("invalid nbf claim: %w", err)
	}
	if nbf != nil && nbf.After(now) {
		return nil, fmt.Errorf("token not yet valid")
	}

	// prevents using tokens issued in the future
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil && iat.After(now) {
		return nil, fmt.Errorf("token issued in the future")
	}

	return claims, nil
}
