// Package blob stores uploaded files such as deposit proofs and returns the
// URL they are served from.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is the "store blob, return URL" capability.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader, folder string) (string, error)
	Delete(ctx context.Context, url string) (bool, error)
}

// LocalStore writes under Dir and serves from BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
	MaxSize int64
}

var ErrTooLarge = errors.New("file too large")

func NewLocalStore(dir, baseURL string, maxSize int64) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxSize: maxSize}
}

var _ Store = (*LocalStore)(nil)

func cleanSegment(s string) string {
	s = filepath.Base(filepath.Clean("/" + s))
	if s == "/" || s == "." {
		return ""
	}
	return s
}

// Upload stores r under folder with a random prefix and returns its URL.
func (s *LocalStore) Upload(ctx context.Context, name string, r io.Reader, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder = cleanSegment(folder)
	base := cleanSegment(name)
	if folder == "" || base == "" {
		return "", fmt.Errorf("invalid blob name %q in folder %q", name, folder)
	}
	dir := filepath.Join(s.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stored := uuid.NewString()[:8] + "_" + base
	f, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return "", err
	}
	src := r
	if s.MaxSize > 0 {
		src = io.LimitReader(r, s.MaxSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.MaxSize > 0 && n > s.MaxSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dir, stored))
		return "", err
	}
	return s.BaseURL + "/" + path.Join(folder, stored), nil
}

// Delete removes the file behind url. It reports false when url is not
// one of ours or the file is already gone.
func (s *LocalStore) Delete(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rel, ok := strings.CutPrefix(url, s.BaseURL+"/")
	if !ok {
		return false, nil
	}
	folder, name, ok := strings.Cut(rel, "/")
	if !ok || cleanSegment(folder) != folder || cleanSegment(name) != name {
		return false, nil
	}
	err := os.Remove(filepath.Join(s.Dir, folder, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
