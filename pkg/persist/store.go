package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore keeps one file per session in a directory.
type FileStore struct {
	Dir   string
	Codec Codec
}

// NewFileStore creates dir if needed. A nil codec means JSON.
func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	if codec == nil {
		codec = JSON
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create store: %w", err)
	}
	return &FileStore{Dir: dir, Codec: codec}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("persist: invalid session name %q", name)
	}
	return filepath.Join(s.Dir, name+s.Codec.Ext()), nil
}

// Save writes the session, replacing any previous one atomically.
func (s *FileStore) Save(name string, sess Session) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := s.Codec.Marshal(sess)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// Load reads a session.
func (s *FileStore) Load(name string) (Session, error) {
	path, err := s.path(name)
	if err != nil {
		return Session{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Session{}, fmt.Errorf("persist: read %s: %w", name, err)
	}
	return s.Codec.Unmarshal(data)
}

// Delete removes a session.
func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("persist: delete %s: %w", name, err)
	}
	return nil
}

// List returns the stored session names, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("persist: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != s.Codec.Ext() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), s.Codec.Ext()))
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile decodes a session file, choosing the codec by extension.
func ReadFile(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("persist: read %s: %w", path, err)
	}
	return CodecForPath(path).Unmarshal(data)
}

// SaveFile encodes a session to path, choosing the codec by extension.
func SaveFile(path string, sess Session) error {
	data, err := CodecForPath(path).Marshal(sess)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteFile writes data through a temporary file and a rename, so readers
// never see a partial session.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	return nil
}
