package sshkit

import (
	"io"
	"os"
	"path"
	"time"
)

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return 0644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// mockSFTPFile implements SFTPFile backed by a byte slice.
type mockSFTPFile struct {
	content    []byte
	readOffset int
	onWrite    func([]byte)
	closed     bool
}

func (f *mockSFTPFile) Read(p []byte) (int, error) {
	if f.readOffset >= len(f.content) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.readOffset:])
	f.readOffset += n
	return n, nil
}

func (f *mockSFTPFile) Write(p []byte) (int, error) {
	f.content = append(f.content, p...)
	if f.onWrite != nil {
		f.onWrite(f.content)
	}
	return len(p), nil
}

func (f *mockSFTPFile) Close() error {
	f.closed = true
	return nil
}

// mockSFTPClient implements SFTPClientInterface in memory.
type mockSFTPClient struct {
	files  map[string][]byte
	dirs   map[string]bool
	mkdirs []string
	errors map[string]error
	closed bool
}

var _ SFTPClientInterface = (*mockSFTPClient)(nil)

func newMockSFTPClient() *mockSFTPClient {
	return &mockSFTPClient{
		files:  make(map[string][]byte),
		dirs:   make(map[string]bool),
		errors: make(map[string]error),
	}
}

// setError arranges for a method to fail.
func (m *mockSFTPClient) setError(method string, err error) {
	m.errors[method] = err
}

func (m *mockSFTPClient) Stat(p string) (os.FileInfo, error) {
	if err := m.errors["Stat"]; err != nil {
		return nil, err
	}
	if m.dirs[p] {
		return &mockFileInfo{name: path.Base(p), isDir: true}, nil
	}
	if content, ok := m.files[p]; ok {
		return &mockFileInfo{name: path.Base(p), size: int64(len(content))}, nil
	}
	return nil, os.ErrNotExist
}

func (m *mockSFTPClient) Mkdir(p string) error {
	if err := m.errors["Mkdir"]; err != nil {
		return err
	}
	m.mkdirs = append(m.mkdirs, p)
	m.dirs[p] = true
	return nil
}

func (m *mockSFTPClient) Create(p string) (SFTPFile, error) {
	if err := m.errors["Create"]; err != nil {
		return nil, err
	}
	m.files[p] = nil
	return &mockSFTPFile{onWrite: func(content []byte) {
		m.files[p] = content
	}}, nil
}

func (m *mockSFTPClient) Close() error {
	m.closed = true
	return m.errors["Close"]
}
