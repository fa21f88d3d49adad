package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// rotatingFile is an append-only file that is shifted to path.1, path.2, ...
// once it grows past limit bytes. At most keep old files are retained.
type rotatingFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	keep  int
	f     *os.File
	size  int64
}

func openRotatingFile(path string, limit int64, keep int) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	r := &rotatingFile{path: path, limit: limit, keep: keep, f: f}
	if st, err := f.Stat(); err == nil {
		r.size = st.Size()
	}
	return r, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, os.ErrClosed
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	if err != nil {
		return n, err
	}
	// Sofort auf Platte, damit ein Absturz den letzten Eintrag nicht verliert
	r.f.Sync()

	if r.limit > 0 && r.size > r.limit {
		if err := r.rotate(); err != nil {
			return n, fmt.Errorf("rotate %s: %w", r.path, err)
		}
	}
	return n, nil
}

// rotate expects r.mu to be held.
func (r *rotatingFile) rotate() error {
	if r.f != nil {
		r.f.Close()
		r.f = nil
	}

	if r.keep > 0 {
		os.Remove(r.backup(r.keep))
		for i := r.keep - 1; i >= 1; i-- {
			os.Rename(r.backup(i), r.backup(i+1))
		}
		os.Rename(r.path, r.backup(1))
	} else {
		os.Remove(r.path)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	r.f = f
	r.size = 0
	return nil
}

func (r *rotatingFile) backup(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
