package listing

import (
	"context"
	"errors"
	"testing"

	"realestate/internal/database"
	"realestate/internal/testutil"
)

func TestSearchQueryUsesOrSemantics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateListing(t, f.db, f.owner.ID, "Penthouse downtown", true, "a.png")
	testutil.CreateListing(t, f.db, f.owner.ID, "Penthouse draft", false, "")
	testutil.CreateListing(t, f.db, f.owner.ID, "100% cozy", true, "b.png")

	got, err := f.svc.Search(ctx, "penthouse")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Penthouse downtown" {
		t.Fatalf("expected the published penthouse only, got %+v", got)
	}

	got, err = f.svc.Search(ctx, "PARK")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("description match expected for both published listings, got %d", len(got))
	}

	got, _ = f.svc.Search(ctx, "100%")
	if len(got) != 1 {
		t.Fatalf("wildcards must be matched literally, got %d", len(got))
	}

	got, _ = f.svc.Search(ctx, " ")
	if len(got) != 0 {
		t.Fatalf("blank term must match nothing, got %d", len(got))
	}
}

func TestListOwnedPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		testutil.CreateListing(t, f.db, f.owner.ID, title, false, "")
	}
	testutil.CreateListing(t, f.db, f.other.ID, "not mine", false, "")
	first := testutil.CreateListing(t, f.db, f.owner.ID, "four", false, "")
	if err := f.db.Omit("Author").Create(&database.Message{Body: "hello there friend", ListingID: first.ID, AuthorID: f.other.ID}).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	page, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || page.Pages != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Title != "four" || page.Items[0].MessageCount != 1 {
		t.Fatalf("newest first with message count expected, got %+v", page.Items[0])
	}
	if page.Items[0].Category.Name == "" {
		t.Fatal("category must be loaded")
	}

	second, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 2, Size: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Items) != 2 || second.Items[1].Title != "one" {
		t.Fatalf("unexpected second page %+v", second.Items)
	}

	if _, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 3, Size: 2}); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 0, Size: 2}); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestListOwnedEmptyOwnerHasOnlyFirstPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("expected an empty first page, got %+v", page)
	}
	if _, err := f.svc.ListOwned(ctx, f.owner.ID, Page{Number: 2, Size: 2}); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestPublicReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateListing(t, f.db, f.owner.ID, "old", true, "a.png")
	testutil.CreateListing(t, f.db, f.owner.ID, "draft", false, "")
	testutil.CreateListing(t, f.db, f.owner.ID, "new", true, "b.png")

	all, err := f.svc.PublishedAll(ctx)
	if err != nil {
		t.Fatalf("published: %v", err)
	}
	if len(all) != 2 || all[0].Price.Name == "" || all[0].Category.Name == "" {
		t.Fatalf("unexpected published set %+v", all)
	}

	latest, err := f.svc.LatestByCategory(ctx, 1, 1)
	if err != nil || len(latest) != 1 || latest[0].Title != "new" {
		t.Fatalf("unexpected latest %+v, err=%v", latest, err)
	}

	byCat, err := f.svc.ByCategory(ctx, 2)
	if err != nil || len(byCat) != 0 {
		t.Fatalf("category 2 is empty, got %+v, err=%v", byCat, err)
	}

	if _, err := f.svc.Category(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	names, err := f.svc.ImageNames(ctx)
	if err != nil {
		t.Fatalf("image names: %v", err)
	}
	if _, ok := names["a.png"]; !ok || len(names) != 2 {
		t.Fatalf("unexpected names %v", names)
	}
}
