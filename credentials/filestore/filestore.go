package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-storefront-client/credentials"
	"github.com/rs/zerolog/log"
)

var _ credentials.Store = (*FileStore)(nil)

// FileStore persists the credential as a JSON object in a single file, so
// that a later process can rehydrate the session. The file is re-read on
// every Get; nothing is cached.
type FileStore struct {
	path string
	lock sync.Mutex
}

func New(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore.New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore.New] create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(key credentials.Key) (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("credential file unreadable")
		return "", false
	}
	v, ok := values[string(key)]
	return v, ok
}

func (f *FileStore) Set(key credentials.Key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every login.
		log.Warn().Err(err).Str("path", f.path).Msg("replacing unreadable credential file")
		values = map[string]string{}
	}
	values[string(key)] = value
	return f.write(values)
}

func (f *FileStore) Remove(key credentials.Key) {
	f.update(func(values map[string]string) {
		delete(values, string(key))
	})
}

func (f *FileStore) ClearAll() {
	f.update(func(values map[string]string) {
		for _, k := range credentials.Keys {
			delete(values, string(k))
		}
	})
}

func (f *FileStore) update(fn func(map[string]string)) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		values = map[string]string{}
	}
	fn(values)
	if err := f.write(values); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("failed to update credential file")
	}
}

func (f *FileStore) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return values, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
