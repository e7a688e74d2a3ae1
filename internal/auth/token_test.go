package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/Talent-1/cbt-service/internal/models"
)

func studentAccount() *models.Account {
	branchID := uint(3)
	studentID := "CGS/AB/25/007"
	return &models.Account{
		ID:        42,
		FullName:  "Ada Obi",
		Role:      models.RoleStudent,
		BranchID:  &branchID,
		StudentID: &studentID,
	}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	manager := NewTokenManager("secret", "cbt-service", time.Hour)

	token, expiresAt, err := manager.Issue(studentAccount())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	claims, err := manager.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	principal := claims.Principal()
	if principal.ID != 42 || principal.Role != models.RoleStudent {
		t.Errorf("principal = %+v", principal)
	}
	if principal.BranchID == nil || *principal.BranchID != 3 {
		t.Errorf("BranchID = %v, want 3", principal.BranchID)
	}
	if principal.StudentID != "CGS/AB/25/007" {
		t.Errorf("StudentID = %q", principal.StudentID)
	}
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", "cbt-service", time.Hour).Issue(studentAccount())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := NewTokenManager("two", "cbt-service", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	manager := NewTokenManager("secret", "cbt-service", time.Minute)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := manager.Issue(studentAccount())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := manager.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RejectsIssuerMismatch(t *testing.T) {
	token, _, err := NewTokenManager("secret", "other", time.Hour).Issue(studentAccount())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := NewTokenManager("secret", "cbt-service", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
	}
}
