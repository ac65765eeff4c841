package savegame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrInvalidPath indicates a path that is empty or would escape the store
// root.
var ErrInvalidPath = errors.New("invalid path: escapes storage root")

// cleanKey normalizes a slash-separated store path. Prefixes may be empty;
// object paths may not.
func cleanKey(p string, prefix bool) (string, error) {
	if p == "" {
		if prefix {
			return "", nil
		}
		return "", ErrInvalidPath
	}
	cleaned := strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	switch {
	case cleaned == "." || cleaned == "":
		if prefix {
			return "", nil
		}
		return "", ErrInvalidPath
	case cleaned == "..", strings.HasPrefix(cleaned, "../"):
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// -----------------------------------------------------------------------------
// Filesystem Store
// -----------------------------------------------------------------------------

// fsStore implements Store on a local directory.
type fsStore struct {
	root string
}

// NewFS returns a Store rooted at dir, which must exist.
//
// Put writes to a temporary file and links it into place, so readers
// never observe a partially written export.
func NewFS(dir string) (Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("savegame: %s is not a directory", dir)
	}
	return &fsStore{root: abs}, nil
}

func (f *fsStore) resolve(p string, prefix bool) (string, error) {
	key, err := cleanKey(p, prefix)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) && !prefix {
		return "", ErrInvalidPath
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}

func (f *fsStore) Put(_ context.Context, p string, r io.Reader) error {
	full, err := f.resolve(p, false)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Link fails if the target exists, which makes Put write-once.
	if err := os.Link(tmp.Name(), full); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrPathExists
		}
		return err
	}
	return nil
}

func (f *fsStore) Get(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := f.resolve(p, false)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func (f *fsStore) Exists(_ context.Context, p string) (bool, error) {
	full, err := f.resolve(p, false)
	if err != nil {
		return false, err
	}
	switch _, err := os.Stat(full); {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// List returns the sorted slash-separated paths of all files whose path
// starts with prefix.
func (f *fsStore) List(_ context.Context, prefix string) ([]string, error) {
	key, err := cleanKey(prefix, true)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(f.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		rel, err := filepath.Rel(f.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, key) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

func (f *fsStore) Delete(_ context.Context, p string) error {
	full, err := f.resolve(p, false)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Memory Store
// -----------------------------------------------------------------------------

// memoryStore implements Store with an in-memory map.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory Store. It is safe for concurrent
// use.
func NewMemory() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, p string, r io.Reader) error {
	key, err := cleanKey(p, false)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return ErrPathExists
	}
	m.data[key] = data
	return nil
}

func (m *memoryStore) Get(_ context.Context, p string) (io.ReadCloser, error) {
	key, err := cleanKey(p, false)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Exists(_ context.Context, p string) (bool, error) {
	key, err := cleanKey(p, false)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.data[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	key, err := cleanKey(prefix, true)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for p := range m.data {
		if strings.HasPrefix(p, key) {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (m *memoryStore) Delete(_ context.Context, p string) error {
	key, err := cleanKey(p, false)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
