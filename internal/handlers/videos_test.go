package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/shortreel/backend/internal/models"
	"github.com/shortreel/backend/internal/repositories"
)

const validVideoBody = `{"title":"Sunset","description":"Beach clip","videoUrl":"https://ik.example.com/v.mp4","thumbnailUrl":"https://ik.example.com/v.jpg"}`

func TestCreateVideoRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/videos", validVideoBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(env.videos.videos) != 0 {
		t.Fatal("nothing may be stored without a session")
	}
}

func TestCreateVideoAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	rec := env.do(t, http.MethodPost, "/api/videos", validVideoBody, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var video models.Video
	decodeBody(t, rec, &video)
	if video.ID == "" || video.Title != "Sunset" || video.Description != "Beach clip" {
		t.Fatalf("unexpected video %+v", video)
	}
	if video.VideoURL != "https://ik.example.com/v.mp4" || video.ThumbnailURL != "https://ik.example.com/v.jpg" {
		t.Fatalf("unexpected urls %+v", video)
	}
	if !video.Controls {
		t.Fatal("expected controls to default to true")
	}
	want := models.Transformation{Height: 1920, Width: 1080, Quality: 100}
	if video.Transformation != want {
		t.Fatalf("expected default transformation got %+v", video.Transformation)
	}
	if video.UserID == "" {
		t.Fatal("expected owner to be recorded")
	}
}

func TestCreateVideoKeepsExplicitOptions(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	body := `{"title":"t","description":"d","videoUrl":"v","thumbnailUrl":"th","controls":false,"transformation":{"quality":60}}`
	rec := env.do(t, http.MethodPost, "/api/videos", body, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var video models.Video
	decodeBody(t, rec, &video)
	if video.Controls {
		t.Fatal("explicit controls=false must be kept")
	}
	if video.Transformation.Quality != 60 || video.Transformation.Width != 1080 {
		t.Fatalf("unexpected transformation %+v", video.Transformation)
	}
}

func TestCreateVideoValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"all missing", `{}`, []string{"title", "description", "videoUrl", "thumbnailUrl"}},
		{"blank title", `{"title":" ","description":"d","videoUrl":"v","thumbnailUrl":"th"}`, []string{"title"}},
		{"quality out of range", `{"title":"t","description":"d","videoUrl":"v","thumbnailUrl":"th","transformation":{"quality":101}}`, []string{"transformation.quality"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/videos", tt.body, cookie)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			var body ValidationError
			decodeBody(t, rec, &body)
			if !reflect.DeepEqual(body.Fields, tt.wantFields) {
				t.Fatalf("expected fields %v got %v", tt.wantFields, body.Fields)
			}
		})
	}
}

func TestCreateVideoStoreFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"store validation", &repositories.ValidationError{Fields: []string{"title"}}, http.StatusBadRequest},
		{"owner vanished", repositories.ErrNotFound, http.StatusNotFound},
		{"store down", errors.New("insert failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.videos.createErr = tt.err
			rec := env.do(t, http.MethodPost, "/api/videos", validVideoBody, cookie)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestListVideosEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/videos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty array got %q", got)
	}
	if rec.Header().Get(FeedDegradedHeader) != "" {
		t.Fatal("healthy empty feed must not be flagged degraded")
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada", "ada@example.com", "s3cret!")
	cookie := env.login(t, "ada@example.com", "s3cret!")

	for _, title := range []string{"first", "second"} {
		body := `{"title":"` + title + `","description":"d","videoUrl":"v","thumbnailUrl":"th"}`
		if rec := env.do(t, http.MethodPost, "/api/videos", body, cookie); rec.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/videos", "")
	var feed []models.Video
	decodeBody(t, rec, &feed)
	if len(feed) != 2 || feed[0].Title != "second" || feed[1].Title != "first" {
		t.Fatalf("unexpected feed order %+v", feed)
	}
	if !env.videos.lastOpts.IncludeOwner || !env.videos.lastOpts.IncludeOwnerPicture {
		t.Fatalf("expected owner projection got %+v", env.videos.lastOpts)
	}
}

func TestListVideosDegradesOnStoreError(t *testing.T) {
	env := newTestEnv(t)
	env.videos.listErr = errors.New("db down")

	rec := env.do(t, http.MethodGet, "/api/videos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty array got %q", got)
	}
	if rec.Header().Get(FeedDegradedHeader) != "true" {
		t.Fatal("expected degraded header")
	}
}
