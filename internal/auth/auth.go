// Package auth issues and verifies the HS256 bearer tokens that guard the HR endpoints.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Maahivarma/Exam-portal/internal/errors"
)

const (
	RoleHR = "hr"

	claimsKey = "auth.claims"
)

type Config struct {
	Secret string
	Issuer string
	// TTL is the lifetime of minted tokens.
	TTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Issuer: "exam-portal",
		TTL:    12 * time.Hour,
	}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func New(c Config) (*Authenticator, error) {
	if c.Secret == "" {
		return nil, fmt.Errorf("auth: secret is required")
	}

	return &Authenticator{
		secret: []byte(c.Secret),
		issuer: c.Issuer,
		ttl:    c.TTL,
		now:    time.Now,
	}, nil
}

// Mint signs a token for subject with the given role.
func (a *Authenticator) Mint(subject, role string) (string, error) {
	now := a.now()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies a token, with or without its "Bearer " prefix.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer"))
	if token == "" {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid token"), errors.WithCause(err))
	}

	if claims.Subject == "" {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("token has no subject"))
	}

	return &claims, nil
}

// RequireRole rejects requests without a valid bearer token with 401, and tokens of another role with 403.
func (a *Authenticator) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.Parse(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, errors.Convert(err))
			return
		}

		if claims.Role != role {
			abort(c, errors.New(errors.CodePermissionDenied, errors.WithMessagef("%s role required", role)))
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// FromContext returns the claims stored by RequireRole.
func FromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func abort(c *gin.Context, e *errors.Error) {
	_ = c.Error(e)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
