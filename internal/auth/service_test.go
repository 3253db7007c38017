package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestService(t *testing.T, secret string) *AuthService {
	t.Helper()
	svc, err := NewAuthService([]byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestIssueAndValidateSession(t *testing.T) {
	svc := newTestService(t, "0123456789abcdef-secret")

	token, err := svc.IssueSession(42, "Ana")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Name != "Ana" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := newTestService(t, "issuer-secret-0123456789")
	verifier := newTestService(t, "another-secret-0123456789")

	token, err := issuer.IssueSession(1, "Ana")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, "0123456789abcdef-secret")
	claims := SessionClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestValidateTokenRejectsAlgNone(t *testing.T) {
	svc := newTestService(t, "0123456789abcdef-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected alg none to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.Contains(hash, "s3cret!") {
		t.Fatal("hash contains raw password")
	}
	if !CheckPasswordHash("s3cret!", hash) {
		t.Fatal("expected password to match")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("expected mismatch")
	}
}
