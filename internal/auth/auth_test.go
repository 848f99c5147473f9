package auth_test

import (
	"testing"

	"streamvault/internal/auth"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !auth.CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("CheckPassword() = false for correct password")
	}
	if auth.CheckPassword(hash, "wrong password") {
		t.Fatal("CheckPassword() = true for wrong password")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := auth.ValidatePassword("short"); err != auth.ErrWeakPassword {
		t.Fatalf("ValidatePassword(short) error = %v, want ErrWeakPassword", err)
	}
	if err := auth.ValidatePassword("longenough"); err != nil {
		t.Fatalf("ValidatePassword(longenough) error = %v, want nil", err)
	}
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", 0)

	token, err := issuer.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("Verify() claims = %+v, want UserID=42 Username=alice", claims)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issued := auth.NewTokenIssuer("secret-a", 0)
	verified := auth.NewTokenIssuer("secret-b", 0)

	token, err := issued.Issue(1, "bob")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := verified.Verify(token); err == nil {
		t.Fatal("Verify() succeeded with mismatched secret, want error")
	}
}

func TestHashTokenIsDeterministicAndDistinct(t *testing.T) {
	a := auth.HashToken("token-a")
	b := auth.HashToken("token-a")
	c := auth.HashToken("token-b")

	if a != b {
		t.Fatal("HashToken() not deterministic for identical input")
	}
	if a == c {
		t.Fatal("HashToken() collided for distinct input")
	}
}
