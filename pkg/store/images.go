package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Image is the metadata document of one stored picture.
type Image struct {
	ID        string
	UID       string
	ObjectKey string
	Width     int
	Height    int
	MIME      string
	Size      int64
	CreatedAt time.Time
}

// Object is the stored content of one picture.
type Object struct {
	Key         string
	ContentType string
	Content     []byte
	CreatedAt   time.Time
}

const imageColumns = `id, uid, object_key, width, height, mime, size, created_at`

// InsertImage stores image metadata.
func (db *DB) InsertImage(ctx context.Context, img *Image) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO gallery_meta (`+imageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.UID, img.ObjectKey, img.Width, img.Height, img.MIME, img.Size, toMillis(img.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert image metadata: %w", err)
	}
	return nil
}

// ListImages returns the images of uid, newest first.
func (db *DB) ListImages(ctx context.Context, uid string) ([]Image, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM gallery_meta WHERE uid = ? ORDER BY created_at DESC, id`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// CountImages returns how many images uid owns.
func (db *DB) CountImages(ctx context.Context, uid string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM gallery_meta WHERE uid = ?`, uid).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

// GetImage loads image metadata by id.
func (db *DB) GetImage(ctx context.Context, id string) (*Image, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM gallery_meta WHERE id = ?`, id)
	return scanImage(row)
}

// DeleteImage removes image metadata by id.
func (db *DB) DeleteImage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM gallery_meta WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image metadata: %w", err)
	}
	return expectOne(res)
}

func scanImage(row rowScanner) (*Image, error) {
	var (
		img     Image
		created int64
	)
	err := row.Scan(&img.ID, &img.UID, &img.ObjectKey, &img.Width, &img.Height, &img.MIME, &img.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image metadata: %w", err)
	}
	img.CreatedAt = fromMillis(created)
	return &img, nil
}

// PutObject stores content under key, replacing an existing object.
func (db *DB) PutObject(ctx context.Context, obj *Object) error {
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO gallery_objects (object_key, content_type, content, created_at) VALUES (?, ?, ?, ?)`,
		obj.Key, obj.ContentType, obj.Content, toMillis(obj.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

// GetObject loads the object stored under key.
func (db *DB) GetObject(ctx context.Context, key string) (*Object, error) {
	var (
		obj     Object
		created int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT object_key, content_type, content, created_at FROM gallery_objects WHERE object_key = ?`, key).
		Scan(&obj.Key, &obj.ContentType, &obj.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	obj.CreatedAt = fromMillis(created)
	return &obj, nil
}

// DeleteObject removes the object stored under key.
func (db *DB) DeleteObject(ctx context.Context, key string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM gallery_objects WHERE object_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return expectOne(res)
}
