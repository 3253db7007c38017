package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"realestate/internal/testutil"
)

func TestPublicListingHidesDrafts(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("Ana", "ana@example.com")
	draft := testutil.CreateListing(t, s.db, owner.ID, "Draft", false, "")
	live := testutil.CreateListing(t, s.db, owner.ID, "Live", true, "live.jpg")

	expectRedirect(t, s.get(fmt.Sprintf("/listing/%d", draft.ID), nil), "/404")
	expectRedirect(t, s.get(fmt.Sprintf("/listing/%d", draft.ID), s.session(s.user("Eve", "eve@example.com"))), "/404")
	expectRedirect(t, s.get("/listing/424242", nil), "/404")
	expectRedirect(t, s.get("/listing/abc", nil), "/404")

	w := s.get(fmt.Sprintf("/listing/%d", draft.ID), s.session(owner))
	if w.Code != http.StatusOK || decode(t, w)["seller"] != true {
		t.Fatalf("owner should see the draft as seller: %d %s", w.Code, w.Body.String())
	}

	w = s.get(fmt.Sprintf("/listing/%d", live.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["seller"] != false || body["authenticated"] != false {
		t.Fatalf("anonymous flags wrong: %v", body)
	}
	view, _ := body["listing"].(map[string]any)
	if view["image_url"] != "/uploads/live.jpg" {
		t.Fatalf("image_url = %v", view["image_url"])
	}
	if owner, _ := view["owner"].(map[string]any); owner["name"] != "Ana" {
		t.Fatalf("owner = %v", view["owner"])
	}
}

func TestPostMessageRules(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("Ana", "ana@example.com")
	buyer := s.session(s.user("Bo", "bo@example.com"))
	live := testutil.CreateListing(t, s.db, owner.ID, "Live", true, "live.jpg")
	draft := testutil.CreateListing(t, s.db, owner.ID, "Draft", false, "")

	expectRedirect(t, s.form(http.MethodPost, fmt.Sprintf("/listing/%d", live.ID), url.Values{"message": {"Hello there, friend"}}, nil), "/auth/login")

	w := s.form(http.MethodPost, fmt.Sprintf("/listing/%d", live.ID), url.Values{"message": {"too short"}}, buyer)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short message status = %d", w.Code)
	}
	body := decode(t, w)
	if !errorFields(t, body)["message"] {
		t.Fatalf("errors = %v", body["errors"])
	}
	if _, ok := body["listing"]; !ok {
		t.Fatal("listing should be re-rendered with the error")
	}

	expectRedirect(t, s.form(http.MethodPost, fmt.Sprintf("/listing/%d", draft.ID), url.Values{"message": {"Hello there, friend"}}, buyer), "/404")
}

func TestHomeCategoryAndSearch(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("Ana", "ana@example.com")
	for i := 0; i < 4; i++ {
		testutil.CreateListing(t, s.db, owner.ID, fmt.Sprintf("Garden house %d", i), true, "g.jpg")
	}
	testutil.CreateListing(t, s.db, owner.ID, "Hidden garden", false, "")

	w := s.get("/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("home status = %d", w.Code)
	}
	sections, _ := decode(t, w)["sections"].([]any)
	if len(sections) == 0 {
		t.Fatal("home should list a section per category")
	}
	first, _ := sections[0].(map[string]any)
	if items, _ := first["listings"].([]any); len(items) != 3 {
		t.Fatalf("home shows %d listings for the first category, want 3", len(items))
	}

	w = s.get("/categories/1", nil)
	if items, _ := decode(t, w)["listings"].([]any); w.Code != http.StatusOK || len(items) != 4 {
		t.Fatalf("category page: %d, %d items", w.Code, len(items))
	}
	expectRedirect(t, s.get("/categories/999", nil), "/404")

	w = s.form(http.MethodPost, "/search", url.Values{"term": {"GARDEN"}}, nil)
	if items, _ := decode(t, w)["listings"].([]any); w.Code != http.StatusOK || len(items) != 4 {
		t.Fatalf("search: %d, %d items", w.Code, len(items))
	}
	expectRedirect(t, s.form(http.MethodPost, "/search", url.Values{"term": {"   "}}, nil), "/")
}

func TestPublishedListingsAPI(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("Ana", "ana@example.com")
	testutil.CreateListing(t, s.db, owner.ID, "Live", true, "live.jpg")
	testutil.CreateListing(t, s.db, owner.ID, "Draft", false, "")

	w := s.get("/api/listings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0]["title"] != "Live" {
		t.Fatalf("items = %v", items)
	}
	if cat, _ := items[0]["category"].(map[string]any); cat["id"] != float64(1) {
		t.Fatalf("category not included: %v", items[0]["category"])
	}
}

func TestPublishedListingsFilter(t *testing.T) {
	s := newTestServer(t)
	owner := s.user("Ana", "ana@example.com")
	house := testutil.CreateListing(t, s.db, owner.ID, "House", true, "h.jpg")
	flat := testutil.CreateListing(t, s.db, owner.ID, "Flat", true, "f.jpg")
	s.db.Model(&flat).Updates(map[string]any{"category_id": 2, "price_id": 3})

	count := func(query string) int {
		w := s.get("/api/listings"+query, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", query, w.Code)
		}
		var items []map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return len(items)
	}

	if n := count(""); n != 2 {
		t.Fatalf("unfiltered = %d", n)
	}
	if n := count("?category=1"); n != 1 {
		t.Fatalf("category 1 = %d", n)
	}
	if n := count("?category=2&price=1"); n != 0 {
		t.Fatalf("category 2, price 1 = %d", n)
	}
	if n := count(fmt.Sprintf("?price=%d", house.PriceID)); n != 1 {
		t.Fatalf("price 1 = %d", n)
	}
	if w := s.get("/api/listings?category=abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if w := s.get("/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w := s.get("/metrics", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if w := s.get("/nowhere", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
}
