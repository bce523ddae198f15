// Package storage persists uploaded media (avatars, cover images, video files)
// and hands back the public location of each object.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ObjectKey builds a collision-free key under prefix that keeps the extension
// of the uploaded file name.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ext)
}

// MemoryStorage keeps objects in process memory. It backs the memory storage
// mode and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryStorage) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("memory storage: empty key")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("memory storage read %s: %w", key, err)
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{contentType: contentType, data: buf.Bytes()}
	m.mu.Unlock()

	return m.baseURL + "/" + key, nil
}

func (m *MemoryStorage) Delete(_ context.Context, location string) error {
	key := strings.TrimPrefix(location, m.baseURL+"/")
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object's bytes by location.
func (m *MemoryStorage) Get(location string) ([]byte, bool) {
	key := strings.TrimPrefix(location, m.baseURL+"/")
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
