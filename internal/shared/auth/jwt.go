package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tdm-diagnostic/internal/shared/server/respond"
)

const (
	adminIssuer  = "tdm-diagnostic-admin"
	adminSubject = "adminSubject"
	defaultTTL   = 24 * time.Hour
	bearerPrefix = "bearer "
	roleAdmin    = "admin"
)

var (
	errMissingSecret = errors.New("admin token secret not configured")
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents the identity contained in an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier signs and checks HS256 admin bearer tokens.
type Verifier struct {
	Secret []byte
	Now    func() time.Time
}

// NewVerifier returns a verifier for secret, or an error when it is empty.
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	return &Verifier{Secret: []byte(secret)}, nil
}

// Sign issues an admin token for subject. A non-positive ttl means 24h.
func (v *Verifier) Sign(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := v.now()
	claims := Claims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    adminIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

// Verify checks signature, issuer, expiry and role.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != roleAdmin || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		claims, err := v.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token", nil)
			return
		}
		c.Set(adminSubject, claims.Subject)
		c.Next()
	}
}

// SubjectFromContext returns the admin subject stored by RequireAdmin.
func SubjectFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(adminSubject)
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
