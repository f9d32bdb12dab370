package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage is an in-memory ObjectStorage used in tests. It derives
// URLs the same way the S3 gateway does, so URL assertions carry over.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(baseURL, bucket string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// SetNow overrides the clock used for key generation, for deterministic
// keys in tests.
func (s *MemoryStorage) SetNow(now func() time.Time) {
	s.now = now
}

// UploadFile stores data under a generated timestamped key. A colliding
// key overwrites the previous object, matching PutObject semantics.
func (s *MemoryStorage) UploadFile(_ context.Context, data []byte, contentType, originalName, folder string) (string, error) {
	key := objectKey(folder, originalName, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = memoryObject{data: buf, contentType: contentType}
	return key, nil
}

// DeleteFile removes the object under key; missing keys are a no-op.
func (s *MemoryStorage) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// GetFile returns a copy of the object's bytes.
func (s *MemoryStorage) GetFile(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, &Error{Op: "get", Key: key, Err: ErrObjectNotFound}
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

// ListFiles returns all keys under folder.
func (s *MemoryStorage) ListFiles(_ context.Context, folder string) ([]string, error) {
	prefix := strings.TrimLeft(folder, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// FileURL derives the public URL for key.
func (s *MemoryStorage) FileURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}

// Len reports the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
