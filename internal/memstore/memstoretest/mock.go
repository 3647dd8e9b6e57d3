// Package memstoretest provides an in-memory FileStore double for tests.
package memstoretest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yengalvez/a-movies/internal/memstore"
)

// ErrNotFound indicates the requested file does not exist in the mock.
var ErrNotFound = errors.New("memstoretest: file not found")

// MockStore is an in-memory memstore.FileStore that records every call and
// can be told to fail individual operations.
type MockStore struct {
	mu sync.Mutex

	UploadErr  error
	AttachErr  error
	ListErr    error
	ContentErr map[string]error

	files    map[string]string
	attached []string
	deleted  []string
	nextID   int

	UploadCalls int
	AttachCalls int
	ListCalls   int
	DeleteCalls int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		files:      make(map[string]string),
		ContentErr: make(map[string]error),
	}
}

var _ memstore.FileStore = (*MockStore)(nil)

// Upload implements memstore.FileStore.
func (m *MockStore) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UploadCalls++
	if m.UploadErr != nil {
		return "", m.UploadErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.nextID++
	id := fmt.Sprintf("file-%d", m.nextID)
	m.files[id] = string(data)
	return id, nil
}

// Attach implements memstore.FileStore.
func (m *MockStore) Attach(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AttachCalls++
	if m.AttachErr != nil {
		return m.AttachErr
	}
	if _, ok := m.files[fileID]; !ok {
		return ErrNotFound
	}
	m.attached = append(m.attached, fileID)
	return nil
}

// List implements memstore.FileStore.
func (m *MockStore) List(_ context.Context, limit int) ([]memstore.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var files []memstore.File
	for _, id := range m.attached {
		if len(files) >= limit {
			break
		}
		files = append(files, memstore.File{ID: id})
	}
	return files, nil
}

// Content implements memstore.FileStore.
func (m *MockStore) Content(_ context.Context, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ContentErr[fileID]; err != nil {
		return "", err
	}
	content, ok := m.files[fileID]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

// Delete implements memstore.FileStore.
func (m *MockStore) Delete(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	if _, ok := m.files[fileID]; !ok {
		return ErrNotFound
	}
	delete(m.files, fileID)
	m.deleted = append(m.deleted, fileID)
	return nil
}

// Seed attaches a pre-built file with the given content and returns its ID.
func (m *MockStore) Seed(content string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("file-%d", m.nextID)
	m.files[id] = content
	m.attached = append(m.attached, id)
	return id
}

// FileContent returns the stored content of a file, or "" if absent.
func (m *MockStore) FileContent(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[id]
}

// Attached returns the IDs attached to the collection, in order.
func (m *MockStore) Attached() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.attached...)
}

// Deleted returns the IDs deleted from the store, in order.
func (m *MockStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
