package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeUsers map[uint]string

func (f fakeUsers) PublicIdentity(_ context.Context, id uint) (Identity, error) {
	name, ok := f[id]
	if !ok {
		return Anonymous, ErrUserNotFound
	}
	return Identity{ID: id, Name: name}, nil
}

func TestResolveWithoutTokenIsAnonymous(t *testing.T) {
	r := NewResolver(newTestService(t, "0123456789abcdef-secret"), fakeUsers{}, nil)

	id, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !id.IsAnonymous() {
		t.Fatalf("expected anonymous, got %+v", id)
	}
}

func TestResolveWrongSignatureIsInvalidSession(t *testing.T) {
	forger := newTestService(t, "attacker-secret-0123456789")
	token, err := forger.IssueSession(1, "Ana")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := NewResolver(newTestService(t, "0123456789abcdef-secret"), fakeUsers{1: "Ana"}, nil)
	if _, err := r.Resolve(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestResolveGarbageIsInvalidSession(t *testing.T) {
	r := NewResolver(newTestService(t, "0123456789abcdef-secret"), fakeUsers{}, nil)
	if _, err := r.Resolve(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestResolveValidToken(t *testing.T) {
	svc := newTestService(t, "0123456789abcdef-secret")
	token, err := svc.IssueSession(5, "stale name")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := NewResolver(svc, fakeUsers{5: "Marta"}, nil)
	id, err := r.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.ID != 5 || id.Name != "Marta" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestResolveDeletedUserIsInvalidSession(t *testing.T) {
	svc := newTestService(t, "0123456789abcdef-secret")
	token, _ := svc.IssueSession(9, "gone")

	r := NewResolver(svc, fakeUsers{}, nil)
	if _, err := r.Resolve(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestResolveRevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	revocations := NewRedisRevocations(client)

	svc := newTestService(t, "0123456789abcdef-secret")
	token, _ := svc.IssueSession(5, "Marta")
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	r := NewResolver(svc, fakeUsers{5: "Marta"}, revocations)
	if _, err := r.Resolve(context.Background(), token); err != nil {
		t.Fatalf("expected valid before revocation, got %v", err)
	}

	if err := revocations.Revoke(context.Background(), claims.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := r.Resolve(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after revocation, got %v", err)
	}
}
