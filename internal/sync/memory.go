package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// MemoryRemote is an in-process Remote used by tests.
type MemoryRemote struct {
	mu     sync.Mutex
	files  map[string]*memoryFile
	nextID int

	// Injected failures.
	FindErr, DownloadErr, UploadErr error
	// Uploads counts successful uploads.
	Uploads int
}

type memoryFile struct {
	meta RemoteFile
	data []byte
}

// NewMemoryRemote returns an empty remote.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{files: make(map[string]*memoryFile)}
}

// Put stores a file as if another device uploaded it.
func (m *MemoryRemote) Put(name string, data []byte, modified time.Time) *RemoteFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(name, "", data, modified)
}

// Content returns the stored bytes of name.
func (m *MemoryRemote) Content(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.meta.Name == name {
			return bytes.Clone(f.data), true
		}
	}
	return nil, false
}

func (m *MemoryRemote) Find(_ context.Context, name string) (*RemoteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, f := range m.files {
		if f.meta.Name == name {
			meta := f.meta
			return &meta, nil
		}
	}
	return nil, nil
}

func (m *MemoryRemote) Download(_ context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	f, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("remote file %s not found", id)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(f.data))), nil
}

func (m *MemoryRemote) Upload(_ context.Context, name, id string, content io.Reader) (*RemoteFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	m.Uploads++
	return m.put(name, id, data, time.Now()), nil
}

func (m *MemoryRemote) put(name, id string, data []byte, modified time.Time) *RemoteFile {
	if id == "" {
		m.nextID++
		id = "file-" + strconv.Itoa(m.nextID)
	}
	f := &memoryFile{
		meta: RemoteFile{ID: id, Name: name, ModifiedTime: modified, Size: int64(len(data))},
		data: bytes.Clone(data),
	}
	m.files[id] = f
	meta := f.meta
	return &meta
}
