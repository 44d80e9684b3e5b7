// Package storagesvc stores lesson media.
package storagesvc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	storage_go "github.com/supabase-community/storage-go"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
)

type supabaseStore struct {
	client *storage_go.Client
	bucket string
}

var _ lesson.MediaStore = (*supabaseStore)(nil)

// NewSupabaseStore returns a store on the Supabase Storage API of the configured project.
func NewSupabaseStore(conf *core.Config) *supabaseStore {
	url := strings.TrimRight(conf.Storage.SupabaseURL, "/") + "/storage/v1"
	return &supabaseStore{
		client: storage_go.NewClient(url, conf.Storage.SupabaseKey, nil),
		bucket: conf.Storage.Bucket,
	}
}

// Upload stores r under key and returns its public URL.
// The storage client does not take a context; ctx is only checked before the upload.
func (s *supabaseStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	opts := storage_go.FileOptions{ContentType: &contentType}
	if _, err := s.client.UploadFile(s.bucket, key, r, opts); err != nil {
		return "", errors.Wrapf(err, "uploading %q", key)
	}
	return s.client.GetPublicUrl(s.bucket, key).SignedURL, nil
}

// memoryStore keeps uploads in memory; used in debug mode and tests.
type memoryStore struct {
	mu      sync.RWMutex
	baseURL string
	files   map[string][]byte
}

var _ lesson.MediaStore = (*memoryStore)(nil)

func NewMemoryStore(baseURL string) *memoryStore {
	return &memoryStore{baseURL: strings.TrimRight(baseURL, "/"), files: make(map[string][]byte)}
}

func (s *memoryStore) Upload(ctx context.Context, key, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(err, "reading %q", key)
	}
	s.mu.Lock()
	s.files[key] = b
	s.mu.Unlock()
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// File returns the content uploaded under key.
func (s *memoryStore) File(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.files[key]
	return b, ok
}
