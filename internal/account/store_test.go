package account

import (
	"context"
	"errors"
	"testing"

	"realestate/internal/auth"
	"realestate/internal/database"
	"realestate/internal/testutil"
	"realestate/internal/validation"
)

func register(t *testing.T, s *Store, email string) *database.User {
	t.Helper()
	user, err := s.Register(context.Background(), RegisterInput{
		Name:           "Ana",
		Email:          email,
		Password:       "secret1",
		RepeatPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterStoresHashAndConfirmToken(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "Ana@Example.com ")

	if user.Email != "ana@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if user.PasswordHash == "secret1" || !s.VerifyPassword(user, "secret1") {
		t.Fatal("password must be stored hashed and verifiable")
	}
	if user.Confirmed {
		t.Fatal("new accounts start unconfirmed")
	}
	if user.Token == nil || *user.Token == "" || user.TokenPurpose != database.TokenConfirm {
		t.Fatalf("expected a confirm token, got %v %q", user.Token, user.TokenPurpose)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	register(t, s, "ana@example.com")

	_, err := s.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ANA@example.com", Password: "secret1", RepeatPassword: "secret1",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterRejectsEmailOfDeletedAccount(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewStore(db)
	user := register(t, s, "ana@example.com")
	if err := db.Delete(&database.User{}, user.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := s.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@example.com", Password: "secret1", RepeatPassword: "secret1",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	register(t, s, "ana@example.com")

	// Same e-mail, as if a concurrent sign-up passed the existence check first.
	err := s.insert(context.Background(), &database.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidationListsEveryField(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	_, err := s.Register(context.Background(), RegisterInput{
		Email: "not-an-email", Password: "123", RepeatPassword: "456",
	})
	verrs, ok := validation.As(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, field := range []string{"name", "email", "password", "repeat_password"} {
		if !verrs.Has(field) {
			t.Errorf("expected error for %s, got %+v", field, verrs.Fields)
		}
	}
}

func TestConfirmConsumesTokenOnce(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "ana@example.com")
	token := *user.Token

	confirmed, err := s.Confirm(context.Background(), token)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed.Confirmed || confirmed.Token != nil || confirmed.TokenPurpose != database.TokenNone {
		t.Fatalf("expected confirmed user with cleared token, got %+v", confirmed)
	}

	if _, err := s.Confirm(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second use must fail, got %v", err)
	}
}

func TestTokensOnlyWorkForTheirPurpose(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "ana@example.com")

	if _, err := s.ResetPassword(context.Background(), *user.Token, "newsecret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("confirm token must not reset a password, got %v", err)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "ana@example.com")
	if _, err := s.Confirm(context.Background(), *user.Token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	first, err := s.IssueResetToken(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}
	second, err := s.IssueResetToken(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("issue reset again: %v", err)
	}
	if *first.Token == *second.Token {
		t.Fatal("expected a fresh token")
	}
	if _, err := s.CheckToken(context.Background(), *first.Token, database.TokenReset); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("overwritten token must be dead, got %v", err)
	}
	if _, err := s.CheckToken(context.Background(), *second.Token, database.TokenReset); err != nil {
		t.Fatalf("check token: %v", err)
	}

	updated, err := s.ResetPassword(context.Background(), *second.Token, "brandnew")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if updated.Token != nil {
		t.Fatal("token must be cleared")
	}
	if _, err := s.Authenticate(context.Background(), "ana@example.com", "brandnew"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := s.ResetPassword(context.Background(), *second.Token, "again123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reset token is single-use, got %v", err)
	}
}

func TestResetPasswordValidatesLength(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	_, err := s.ResetPassword(context.Background(), "whatever", "123")
	if _, ok := validation.As(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "ana@example.com")

	if _, err := s.Authenticate(context.Background(), "nobody@example.com", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.Authenticate(context.Background(), "ana@example.com", "secret1"); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if _, err := s.Confirm(context.Background(), *user.Token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.Authenticate(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := s.Authenticate(context.Background(), "ana@example.com", "secret1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestPublicIdentity(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	user := register(t, s, "ana@example.com")

	id, err := s.PublicIdentity(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("public identity: %v", err)
	}
	if id.ID != user.ID || id.Name != "Ana" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if _, err := s.PublicIdentity(context.Background(), 999); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected auth.ErrUserNotFound, got %v", err)
	}
}
