package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *User {
	t.Helper()
	u := &User{Username: username, PasswordHash: "hash", DisplayName: username}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "alice")
	if u.UID == "" {
		t.Fatal("CreateUser should assign a uid")
	}

	got, err := db.GetUser(ctx, u.UID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "alice" || got.Anonymous {
		t.Errorf("Unexpected user %+v", got)
	}
	if !got.LastLogin.IsZero() {
		t.Error("New user should not have a last login")
	}

	byName, err := db.GetUserByUsername(ctx, "alice")
	if err != nil || byName.UID != u.UID {
		t.Errorf("GetUserByUsername: %v %+v", err, byName)
	}

	if _, err := db.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	db := openTestDB(t)
	createTestUser(t, db, "alice")

	err := db.CreateUser(context.Background(), &User{Username: "alice"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestAnonymousUsersShareEmptyUsername(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.CreateUser(ctx, &User{Anonymous: true}); err != nil {
			t.Fatalf("Anonymous user %d: %v", i, err)
		}
	}
	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}

func TestTouchLogin(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "bob")

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.TouchLogin(ctx, u.UID, at); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetUser(ctx, u.UID)
	if !got.LastLogin.Equal(at) {
		t.Errorf("Expected last login %v, got %v", at, got.LastLogin)
	}
	if err := db.TouchLogin(ctx, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPasscodes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "carol")

	if _, err := db.GetPasscode(ctx, u.UID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound before setting, got %v", err)
	}
	if err := db.SetPasscode(ctx, u.UID, "2468"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPasscode(ctx, u.UID, "13579"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetPasscode(ctx, u.UID)
	if err != nil || got != "13579" {
		t.Errorf("Expected replaced passcode, got %q %v", got, err)
	}
	if err := db.ClearPasscode(ctx, u.UID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetPasscode(ctx, u.UID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clearing, got %v", err)
	}
}

func TestImagesNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		img := &Image{ID: id, UID: alice.UID, ObjectKey: "k" + id, MIME: "image/png", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.InsertImage(ctx, img); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InsertImage(ctx, &Image{ID: "z", UID: bob.UID, ObjectKey: "kz", MIME: "image/png", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}

	images, err := db.ListImages(ctx, alice.UID)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(images))
	}
	if images[0].ID != "c" || images[2].ID != "a" {
		t.Errorf("Expected newest first, got %s..%s", images[0].ID, images[2].ID)
	}

	n, _ := db.CountImages(ctx, bob.UID)
	if n != 1 {
		t.Errorf("Expected 1 image for bob, got %d", n)
	}

	if err := db.DeleteImage(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetImage(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted image to be gone, got %v", err)
	}

	empty, err := db.ListImages(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil list, got %v %v", empty, err)
	}
}

func TestObjects(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	obj := &Object{Key: "hidden/u/img_1.png", ContentType: "image/png", Content: []byte{1, 2, 3}}
	if err := db.PutObject(ctx, obj); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetObject(ctx, obj.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Content) != 3 || got.ContentType != "image/png" {
		t.Errorf("Unexpected object %+v", got)
	}
	if err := db.DeleteObject(ctx, obj.Key); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteObject(ctx, obj.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
