package auth

import (
	"testing"

	"github.com/google/uuid"
)

const testSecret = "unit-test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()
	branchID := uuid.New()

	token, err := GenerateToken(testSecret, userID, branchID, "Grace Njeri", "FRONT_DESK")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user_id: got %v, want %v", claims.UserID, userID)
	}
	if claims.BranchID != branchID {
		t.Errorf("branch_id: got %v, want %v", claims.BranchID, branchID)
	}
	if claims.Name != "Grace Njeri" {
		t.Errorf("name: got %s, want Grace Njeri", claims.Name)
	}
	if claims.Role != "FRONT_DESK" {
		t.Errorf("role: got %s, want FRONT_DESK", claims.Role)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), uuid.New(), "Grace Njeri", "FRONT_DESK")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateToken("a-different-secret", token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not.a.jwt"); err == nil {
		t.Fatal("expected validation to fail for garbage input")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateRefreshToken(testSecret, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := ValidateRefreshToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != userID {
		t.Errorf("subject: got %v, want %v", got, userID)
	}
}

func TestValidateRefreshToken_RejectsAccessToken(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), uuid.New(), "Grace Njeri", "FRONT_DESK")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateRefreshToken(testSecret, token); err == nil {
		t.Fatal("expected access token to be rejected as refresh token")
	}
}
