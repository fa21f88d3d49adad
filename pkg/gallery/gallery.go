// Package gallery stores the pictures of the hidden area: the image bytes
// in an object store and a metadata document per image, both scoped to the
// owning user.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/store"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for missing images and for images owned by
	// another user.
	ErrNotFound = errors.New("image not found")

	// ErrNotAnImage is returned for uploads that are not JPEG, PNG or GIF.
	ErrNotAnImage = errors.New("upload is not a supported image")

	// ErrEmpty is returned for empty uploads.
	ErrEmpty = errors.New("upload is empty")

	// ErrTooLarge is returned for uploads above the configured size limit.
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrQuotaExceeded is returned when the user already stores the
	// configured maximum number of images.
	ErrQuotaExceeded = errors.New("image quota exceeded")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// ObjectStore holds image bytes by key.
type ObjectStore interface {
	PutObject(ctx context.Context, obj *store.Object) error
	GetObject(ctx context.Context, key string) (*store.Object, error)
	DeleteObject(ctx context.Context, key string) error
}

// MetaStore holds one metadata document per image.
type MetaStore interface {
	InsertImage(ctx context.Context, img *store.Image) error
	ListImages(ctx context.Context, uid string) ([]store.Image, error)
	CountImages(ctx context.Context, uid string) (int, error)
	GetImage(ctx context.Context, id string) (*store.Image, error)
	DeleteImage(ctx context.Context, id string) error
}

// Service implements upload, listing, retrieval and deletion.
type Service struct {
	objects ObjectStore
	meta    MetaStore
	now     func() time.Time
}

// NewService returns a gallery over the given stores.
func NewService(objects ObjectStore, meta MetaStore) *Service {
	return &Service{objects: objects, meta: meta, now: time.Now}
}

// MaxImageSize returns the configured upload limit in bytes.
func MaxImageSize() int64 {
	return int64(configuration.GetInt("Gallery", "max_image_size_kb", 10240)) * 1024
}

// Upload stores content as a new image of uid.
func (s *Service) Upload(ctx context.Context, uid string, content []byte) (*store.Image, error) {
	if len(content) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(content)) > MaxImageSize() {
		return nil, ErrTooLarge
	}

	mime := http.DetectContentType(content)
	ext, ok := extensions[mime]
	if !ok {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	if limit := configuration.GetInt("Gallery", "max_images_per_user", 500); limit > 0 {
		n, err := s.meta.CountImages(ctx, uid)
		if err != nil {
			return nil, err
		}
		if n >= limit {
			return nil, ErrQuotaExceeded
		}
	}

	now := s.now().UTC()
	key, err := s.freeKey(ctx, uid, now, ext)
	if err != nil {
		return nil, err
	}

	if err := s.objects.PutObject(ctx, &store.Object{Key: key, ContentType: mime, Content: content, CreatedAt: now}); err != nil {
		return nil, err
	}

	img := &store.Image{
		ID:        uuid.New().String(),
		UID:       uid,
		ObjectKey: key,
		Width:     cfg.Width,
		Height:    cfg.Height,
		MIME:      mime,
		Size:      int64(len(content)),
		CreatedAt: now,
	}
	if err := s.meta.InsertImage(ctx, img); err != nil {
		// Keine verwaisten Objekte zurücklassen
		if delErr := s.objects.DeleteObject(ctx, key); delErr != nil {
			logger.GalleryError("Failed to remove object %s after metadata error: %v", key, delErr)
		}
		return nil, err
	}

	logger.GalleryInfo("Stored image %s for user %s (%dx%d, %d bytes)", img.ID, uid, img.Width, img.Height, img.Size)
	return img, nil
}

// freeKey builds hidden/<uid>/img_<millis><ext>, moving forward one
// millisecond while the key is taken.
func (s *Service) freeKey(ctx context.Context, uid string, at time.Time, ext string) (string, error) {
	ms := at.UnixMilli()
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("hidden/%s/img_%d%s", uid, ms+int64(i), ext)
		_, err := s.objects.GetObject(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return key, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free object key for user %s", uid)
}

// List returns the images of uid, newest first.
func (s *Service) List(ctx context.Context, uid string) ([]store.Image, error) {
	return s.meta.ListImages(ctx, uid)
}

// Get returns the metadata of one image owned by uid.
func (s *Service) Get(ctx context.Context, uid, id string) (*store.Image, error) {
	img, err := s.meta.GetImage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if img.UID != uid {
		logger.SecurityWarn("User %s requested image %s of another user", uid, id)
		return nil, ErrNotFound
	}
	return img, nil
}

// Open returns metadata and content of one image owned by uid.
func (s *Service) Open(ctx context.Context, uid, id string) (*store.Image, []byte, error) {
	img, err := s.Get(ctx, uid, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.objects.GetObject(ctx, img.ObjectKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return img, obj.Content, nil
}

// Delete removes metadata and content of one image owned by uid.
func (s *Service) Delete(ctx context.Context, uid, id string) error {
	img, err := s.Get(ctx, uid, id)
	if err != nil {
		return err
	}
	if err := s.meta.DeleteImage(ctx, id); err != nil {
		return err
	}
	if err := s.objects.DeleteObject(ctx, img.ObjectKey); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	logger.GalleryInfo("Deleted image %s of user %s", id, uid)
	return nil
}
