package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token validation
var (
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrNoUserInContext  = errors.New("no user in context")
)

// Claims holds the validated identity claims from a token
type Claims struct {
	UserID string
	Email  string
	Roles  []string
}

type tokenClaims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig configures token validation
type JWTConfig struct {
	SigningMethod string
	SecretKey     string
	Issuer        string
	Audience      []string
}

// JWTValidator validates bearer tokens
type JWTValidator struct {
	cfg JWTConfig
}

// NewJWTValidator creates a token validator
func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = "HS256"
	}
	return &JWTValidator{cfg: cfg}, nil
}

// ValidateToken parses and validates a token, returning its claims
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.cfg.SigningMethod}),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(v.cfg.SecretKey), nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}

// JWTGeneratorConfig configures token generation
type JWTGeneratorConfig struct {
	SigningMethod string
	SecretKey     string
	Issuer        string
	Audience      []string
	ExpiryTime    time.Duration
}

// JWTGenerator issues signed tokens
type JWTGenerator struct {
	cfg JWTGeneratorConfig
}

// NewJWTGenerator creates a token generator
func NewJWTGenerator(cfg JWTGeneratorConfig) (*JWTGenerator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}
	if cfg.ExpiryTime <= 0 {
		cfg.ExpiryTime = 24 * time.Hour
	}
	return &JWTGenerator{cfg: cfg}, nil
}

// GenerateToken issues a token for a user
func (g *JWTGenerator) GenerateToken(userID, email string, roles []string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    g.cfg.Issuer,
			Audience:  g.cfg.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.cfg.ExpiryTime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.cfg.SecretKey))
}

// UserContext carries the authenticated caller through a request
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type userContextKey struct{}

// SetUserInContext stores the user context in a request context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext retrieves the user context, if any
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
