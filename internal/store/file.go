package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const dataFile = "storage.json"

// File is a KV persisted as one JSON object on disk. Every operation reads
// the file fresh, so separate processes sharing the file see each other's
// writes; writes replace the file atomically.
type File struct {
	mu   sync.Mutex
	path string

	// last is the content seen by this process, used to diff reloads.
	last map[string]json.RawMessage
	subs listeners
}

// DefaultPath returns ~/.config/screenshot-pro/storage.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "screenshot-pro", dataFile)
}

// OpenFile opens (without creating) the store at path. A missing file reads
// as empty and is created by the first write.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	values, err := f.read()
	if err != nil {
		return nil, err
	}
	f.last = values
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) read() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageFailure, f.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStorageFailure, f.path, err)
	}
	return values, nil
}

func (f *File) write(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorageFailure, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrStorageFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStorageFailure, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStorageFailure, f.path, err)
	}
	return nil
}

// Get implements KV.
func (f *File) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	f.mu.Lock()
	values, err := f.read()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set implements KV.
func (f *File) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	return f.update(func(current map[string]json.RawMessage) {
		for k, v := range encoded {
			current[k] = v
		}
	})
}

// Remove implements KV.
func (f *File) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return f.update(func(current map[string]json.RawMessage) {
		for _, k := range keys {
			delete(current, k)
		}
	})
}

func (f *File) update(mutate func(map[string]json.RawMessage)) error {
	f.mu.Lock()
	current, err := f.read()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	before := f.last
	mutate(current)
	if err := f.write(current); err != nil {
		f.mu.Unlock()
		return err
	}
	f.last = current
	f.mu.Unlock()

	f.subs.emit(diff(before, current))
	return nil
}

// Reload re-reads the file and publishes whatever changed since this process
// last looked. The watcher calls it when another process writes the file.
func (f *File) Reload() error {
	f.mu.Lock()
	current, err := f.read()
	if err != nil {
		f.mu.Unlock()
		return err
	}
	before := f.last
	f.last = current
	f.mu.Unlock()

	f.subs.emit(diff(before, current))
	return nil
}

// OnChanged implements Observable.
func (f *File) OnChanged(fn ChangeFunc) func() {
	return f.subs.add(fn)
}
