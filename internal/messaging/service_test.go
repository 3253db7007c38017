package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"realestate/internal/testutil"
	"realestate/internal/validation"
)

func TestPostBodyLengthBoundaries(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com")
	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	l := testutil.CreateListing(t, db, owner.ID, "Flat", true, "a.png")
	svc := NewService(db, nil, nil)

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "9 chars", body: strings.Repeat("a", 9), ok: false},
		{name: "10 chars", body: strings.Repeat("a", 10), ok: true},
		{name: "250 chars", body: strings.Repeat("a", 250), ok: true},
		{name: "251 chars", body: strings.Repeat("a", 251), ok: false},
		{name: "padding is trimmed", body: "   " + strings.Repeat("a", 9) + "   ", ok: false},
		{name: "counts characters not bytes", body: strings.Repeat("ñ", 250), ok: true},
		{name: "empty", body: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := svc.Post(context.Background(), l.ID, author.ID, tt.body)
			if tt.ok {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if msg.Body != strings.TrimSpace(tt.body) {
					t.Fatalf("body not stored trimmed: %q", msg.Body)
				}
				return
			}
			verrs, ok := validation.As(err)
			if !ok || !verrs.Has("message") {
				t.Fatalf("expected message validation error, got %v", err)
			}
		})
	}
}

func TestPostToMissingListing(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	svc := NewService(db, nil, nil)

	if _, err := svc.Post(context.Background(), 42, author.ID, "Is this still available?"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListForIsOwnerOnly(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com")
	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	l := testutil.CreateListing(t, db, owner.ID, "Flat", true, "a.png")
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	for _, body := range []string{"First question here", "Second question here"} {
		if _, err := svc.Post(ctx, l.ID, author.ID, body); err != nil {
			t.Fatalf("post: %v", err)
		}
	}

	if _, err := svc.ListFor(ctx, l.ID, author.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListFor(ctx, l.ID+1, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	views, err := svc.ListFor(ctx, l.ID, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 || views[0].Body != "First question here" {
		t.Fatalf("unexpected views %+v", views)
	}
	if views[0].Author != (Author{ID: author.ID, Name: "Author"}) {
		t.Fatalf("unexpected author %+v", views[0].Author)
	}
	raw, _ := json.Marshal(views[0])
	if strings.Contains(string(raw), "password") || strings.Contains(string(raw), "email") {
		t.Fatalf("author profile leaks private data: %s", raw)
	}
}

func TestPostPublishesOwnerEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com")
	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	l := testutil.CreateListing(t, db, owner.ID, "Flat", true, "a.png")
	svc := NewService(db, rdb, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := rdb.Subscribe(ctx, OwnerChannel(owner.ID))
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := svc.Post(ctx, l.ID, author.ID, "Can I visit on Sunday?"); err != nil {
		t.Fatalf("post: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ListingID != l.ID || ev.Message.Author.Name != "Author" || ev.Message.Body != "Can I visit on Sunday?" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
