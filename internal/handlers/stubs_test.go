package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shortreel/backend/internal/auth"
	"github.com/shortreel/backend/internal/middleware"
	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

// testContext returns a context that is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// memUserStore mimics the Postgres user store, including the hashing hook.
type memUserStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	createErr error
	findErr   error
	updateErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (s *memUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &repositories.ConflictError{Field: "email"}
		}
		if existing.Username == user.Username {
			return &repositories.ConflictError{Field: "username"}
		}
	}
	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		user.Password = string(hashed)
	}
	user.ID = fmt.Sprintf("user-%d", len(s.users)+1)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *memUserStore) find(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return models.User{}, s.findErr
	}
	for _, user := range s.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s *memUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.ID == id })
}

func (s *memUserStore) UpdateProfilePicture(_ context.Context, id, picture string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return models.User{}, s.updateErr
	}
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.ProfilePicture = picture
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return user, nil
}

func (s *memUserStore) FindOrCreateByEmail(ctx context.Context, profile models.ExternalProfile) (models.User, bool, error) {
	if user, err := s.FindByEmail(ctx, profile.Email); err == nil {
		return user, false, nil
	}
	user := models.User{
		Username:       repositories.UsernameBase(profile.Name, profile.Email),
		Email:          profile.Email,
		ProfilePicture: profile.Picture,
	}
	if err := s.Create(ctx, &user); err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func (s *memUserStore) get(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

type memVideoStore struct {
	mu            sync.Mutex
	videos        []models.Video
	listErr       error
	createErr     error
	lastOpts      repositories.ListOptions
	invalidations int
}

func (s *memVideoStore) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations++
	return nil
}

func (s *memVideoStore) Create(_ context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	video.ID = fmt.Sprintf("video-%d", len(s.videos)+1)
	video.CreatedAt = time.Now().UTC().Add(time.Duration(len(s.videos)) * time.Second)
	video.UpdatedAt = video.CreatedAt
	s.videos = append(s.videos, *video)
	return nil
}

func (s *memVideoStore) List(_ context.Context, opts repositories.ListOptions) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOpts = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Video, len(s.videos))
	copy(out, s.videos)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type testEnv struct {
	users    *memUserStore
	videos   *memVideoStore
	sessions *auth.Manager
	deps     Dependencies
}

const testSessionSecret = "test-secret-test-secret-test-secret"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newMemUserStore()
	videos := &memVideoStore{}
	sessions, err := auth.NewManager([]byte(testSessionSecret), time.Hour, users)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &testEnv{
		users:    users,
		videos:   videos,
		sessions: sessions,
		deps: Dependencies{
			Logger:                  slog.New(slog.NewTextHandler(io.Discard, nil)),
			Users:                   users,
			Videos:                  videos,
			Feed:                    videos,
			Authenticator:           auth.NewAuthorizer(users),
			Sessions:                sessions,
			FeedIncludeOwnerPicture: true,
		},
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	NewRouter(e.deps).ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username, email, password string) {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	if rec := e.do(t, http.MethodPost, "/api/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := e.do(t, http.MethodPost, "/api/auth/login", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("expected session cookie in response, got %v", rec.Result().Cookies())
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error
}
