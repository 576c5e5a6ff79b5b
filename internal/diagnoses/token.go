package diagnoses

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "tdm-diagnostic"

// linkClaims are carried by the questionnaire link token.
type linkClaims struct {
	Lead string `json:"lead"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies questionnaire link tokens with HS256.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokenIssuer returns an issuer for the given secret and link validity.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl}, nil
}

// Issue signs a token for a diagnosis and returns it with its expiry.
func (t *TokenIssuer) Issue(diagnosisID, leadID string) (string, time.Time, error) {
	if diagnosisID == "" || leadID == "" {
		return "", time.Time{}, errors.New("diagnosisID and leadID are required")
	}
	now := t.now()
	expires := now.Add(t.TTL)
	claims := linkClaims{
		Lead: leadID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   diagnosisID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature and expiry and returns the diagnosis and lead ids.
func (t *TokenIssuer) Verify(token string) (string, string, error) {
	var claims linkClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Lead == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Lead, nil
}

// ValidDays is the link validity rounded down to whole days.
func (t *TokenIssuer) ValidDays() int {
	return int(t.TTL / (24 * time.Hour))
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}
