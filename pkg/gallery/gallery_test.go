package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/shared"
	"github.com/antibyte/calcvault/pkg/store"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fixture struct {
	db    *store.DB
	svc   *Service
	alice *store.User
	bob   *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "gallery.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, svc: NewService(db, db)}
	f.alice = &store.User{Username: "alice"}
	f.bob = &store.User{Username: "bob"}
	for _, u := range []*store.User{f.alice, f.bob} {
		if err := db.CreateUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestUploadListOpenDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	first, err := f.svc.Upload(ctx, f.alice.UID, testPNG(t, 4, 3))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if first.Width != 4 || first.Height != 3 || first.MIME != "image/png" {
		t.Errorf("Unexpected metadata %+v", first)
	}
	if !strings.HasPrefix(first.ObjectKey, "hidden/"+f.alice.UID+"/img_") || !strings.HasSuffix(first.ObjectKey, ".png") {
		t.Errorf("Unexpected object key %s", first.ObjectKey)
	}

	second, err := f.svc.Upload(ctx, f.alice.UID, testPNG(t, 2, 2))
	if err != nil {
		t.Fatal(err)
	}

	images, err := f.svc.List(ctx, f.alice.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 2 || images[0].ID != second.ID {
		t.Fatalf("Expected newest first, got %+v", images)
	}

	_, content, err := f.svc.Open(ctx, f.alice.UID, first.ID)
	if err != nil || len(content) == 0 {
		t.Fatalf("Open failed: %v", err)
	}

	if err := f.svc.Delete(ctx, f.alice.UID, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.GetObject(ctx, first.ObjectKey); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Object should be deleted with its metadata, got %v", err)
	}
	if _, _, err := f.svc.Open(ctx, f.alice.UID, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestImagesAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	img, err := f.svc.Upload(ctx, f.alice.UID, testPNG(t, 1, 1))
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.svc.Open(ctx, f.bob.UID, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Bob must not open Alice's image, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.bob.UID, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Bob must not delete Alice's image, got %v", err)
	}
	images, _ := f.svc.List(ctx, f.bob.UID)
	if len(images) != 0 {
		t.Errorf("Bob should see no images, got %d", len(images))
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Upload(ctx, f.alice.UID, []byte("just some text")); !errors.Is(err, ErrNotAnImage) {
		t.Errorf("Expected ErrNotAnImage, got %v", err)
	}
	if _, err := f.svc.Upload(ctx, f.alice.UID, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
	// PNG signature with a broken header
	broken := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	if _, err := f.svc.Upload(ctx, f.alice.UID, broken); !errors.Is(err, ErrNotAnImage) {
		t.Errorf("Expected ErrNotAnImage for broken PNG, got %v", err)
	}
}

func TestUploadSameMillisecondGetsDistinctKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	a, err := f.svc.Upload(ctx, f.alice.UID, testPNG(t, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.Upload(ctx, f.alice.UID, testPNG(t, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if a.ObjectKey == b.ObjectKey {
		t.Errorf("Uploads must not share object key %s", a.ObjectKey)
	}
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)
	mux := http.NewServeMux()
	NewHandlers(f.svc).Register(mux)

	token, _, err := auth.GenerateUserToken("sess", f.alice.UID, "alice")
	if err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("image", "photo.png")
	part.Write(testPNG(t, 5, 5))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/gallery", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Upload: expected 201, got %d %s", rr.Code, rr.Body.String())
	}

	var created struct {
		shared.APIResponse
		Data ImageView `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Data.ID == "" || !strings.HasPrefix(created.Data.URL, imagePath+"?id=") {
		t.Fatalf("Unexpected upload response %+v", created.Data)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/gallery", bytes.NewReader(testPNG(t, 1, 1)))
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Errorf("Raw upload: expected 201, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/gallery", strings.NewReader("not an image"))
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Text upload: expected 415, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var listed struct {
		Data []ImageView `json:"data"`
	}
	json.NewDecoder(rr.Body).Decode(&listed)
	if len(listed.Data) != 2 {
		t.Errorf("Expected 2 images, got %d", len(listed.Data))
	}

	req = httptest.NewRequest(http.MethodGet, created.Data.URL, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Content: got %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}

	bobToken, _, _ := auth.GenerateUserToken("sess-b", f.bob.UID, "bob")
	req = httptest.NewRequest(http.MethodDelete, created.Data.URL, nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Foreign delete: expected 404, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, created.Data.URL, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Delete: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Without token: expected 401, got %d", rr.Code)
	}
}
