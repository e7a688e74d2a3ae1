// Package auth issues and verifies the service's own access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an access token
type Claims struct {
	AccountID uint            `json:"id"`
	Role      models.UserRole `json:"role"`
	BranchID  *uint           `json:"branch_id,omitempty"`
	StudentID string          `json:"student_id,omitempty"`
	Email     string          `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims to an access principal
func (c *Claims) Principal() access.Principal {
	return access.Principal{
		ID:        c.AccountID,
		Role:      c.Role,
		BranchID:  c.BranchID,
		StudentID: c.StudentID,
		Email:     c.Email,
	}
}

// TokenManager signs and parses HS256 tokens
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the account and returns it with its expiry
func (m *TokenManager) Issue(account *models.Account) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		AccountID: account.ID,
		Role:      account.Role,
		BranchID:  account.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if account.StudentID != nil {
		claims.StudentID = *account.StudentID
	}
	if account.Email != nil {
		claims.Email = *account.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, issuer and expiry
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if !claims.Role.IsValid() || claims.AccountID == 0 {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	return claims, nil
}
