// Package objstore downloads attachment blobs referenced by bucket urls.
package objstore

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("object not found")

// Store copies the object at url into the local file dst.
type Store interface {
	Download(ctx context.Context, url, dst string) error
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrap(err, "parse bucket url")
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("not an s3 url: %s", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", errors.Errorf("missing object key: %s", raw)
	}
	return u.Host, key, nil
}

// Router sends s3:// urls to the S3 store and everything else to the local store.
type Router struct {
	S3    Store
	Local Store
}

func (r *Router) Download(ctx context.Context, raw, dst string) error {
	if strings.HasPrefix(raw, "s3://") {
		if r.S3 == nil {
			return errors.Errorf("no s3 store configured for %s", raw)
		}
		return r.S3.Download(ctx, raw, dst)
	}
	if r.Local == nil {
		return errors.Errorf("no local store configured for %s", raw)
	}
	return r.Local.Download(ctx, raw, dst)
}

func writeFile(dst string, src io.Reader) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "create scratch file")
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write scratch file")
	}
	return f.Close()
}

// LocalStore serves file:// urls and keys relative to Root.
type LocalStore struct {
	Root string
}

func (s *LocalStore) resolve(raw string) (string, error) {
	p := raw
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", errors.Wrap(err, "parse file url")
		}
		p = u.Path
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	clean := filepath.Clean("/" + p)
	return filepath.Join(s.Root, clean), nil
}

func (s *LocalStore) Download(ctx context.Context, raw, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(raw)
	if err != nil {
		return err
	}
	src, err := os.Open(p)
	if os.IsNotExist(err) {
		return errors.Wrap(ErrNotFound, raw)
	}
	if err != nil {
		return errors.Wrap(err, "open object")
	}
	defer src.Close()
	return writeFile(dst, src)
}

type timeoutStore struct {
	Store
	timeout time.Duration
}

// WithTimeout bounds every download of s by d. A non-positive d returns s unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{Store: s, timeout: d}
}

func (s *timeoutStore) Download(ctx context.Context, raw, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Store.Download(ctx, raw, dst)
}
