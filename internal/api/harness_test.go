package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"realestate/internal/account"
	"realestate/internal/auth"
	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/listing"
	"realestate/internal/messaging"
	"realestate/internal/notify"
	"realestate/internal/storage"
	"realestate/internal/testutil"
)

const testCookie = "_token"

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []notify.Recipient
	resets        []notify.Recipient
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, r notify.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, r)
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, r notify.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, r)
}

type testServer struct {
	t        *testing.T
	db       *gorm.DB
	fs       afero.Fs
	router   *gin.Engine
	sessions *auth.AuthService
	notifier *fakeNotifier
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fs := afero.NewMemMapFs()
	images, err := storage.NewDiskStore(fs, "/data/uploads", "/uploads")
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	sessions, err := auth.NewAuthService([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &fakeNotifier{}

	cfg := &config.Config{API: config.APIConfig{
		CookieName:            testCookie,
		PageSize:              2,
		LoginRateLimitPerHour: 20,
		LoginLockThreshold:    3,
		LoginLockTTL:          time.Minute,
	}}

	router := NewRouter(Dependencies{
		Config:   cfg,
		Redis:    rdb,
		Sessions: sessions,
		Accounts: account.NewStore(db),
		Listings: listing.NewService(db, images, nil, 1<<20, logger),
		Messages: messaging.NewService(db, rdb, logger),
		Images:   images,
		Notifier: notifier,
		Logger:   logger,
	})

	return &testServer{t: t, db: db, fs: fs, router: router, sessions: sessions, notifier: notifier, redis: mr}
}

// user inserts a confirmed user whose password is "secret-password".
func (s *testServer) user(name, email string) database.User {
	s.t.Helper()
	hash, err := auth.HashPassword("secret-password")
	if err != nil {
		s.t.Fatalf("hash: %v", err)
	}
	u := database.User{Name: name, Email: email, PasswordHash: hash, Confirmed: true}
	if err := s.db.Create(&u).Error; err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	return u
}

func (s *testServer) session(u database.User) *http.Cookie {
	s.t.Helper()
	token, err := s.sessions.IssueSession(u.ID, u.Name)
	if err != nil {
		s.t.Fatalf("issue session: %v", err)
	}
	return &http.Cookie{Name: testCookie, Value: token}
}

func (s *testServer) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (s *testServer) form(method, path string, values url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, cookie)
}

func (s *testServer) upload(path, field, filename string, content []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		s.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		s.t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		s.t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.do(req, cookie)
}

func validListingForm() url.Values {
	return url.Values{
		"title":       {"Sunny flat"},
		"description": {"Two bedrooms close to the metro"},
		"category":    {"1"},
		"price":       {"1"},
		"rooms":       {"2"},
		"parking":     {"1"},
		"bathrooms":   {"1"},
		"street":      {"Reforma 222"},
		"lat":         {"19.4326"},
		"lng":         {"-99.1332"},
	}
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func errorFields(t *testing.T, body map[string]any) map[string]bool {
	t.Helper()
	list, ok := body["errors"].([]any)
	if !ok {
		t.Fatalf("errors missing in %v", body)
	}
	fields := map[string]bool{}
	for _, item := range list {
		entry, _ := item.(map[string]any)
		if name, ok := entry["field"].(string); ok {
			fields[name] = true
		}
	}
	return fields
}
