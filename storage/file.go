package storage

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

const (
	defaultFileName = "session.json"
	filePerm        = 0o600
	dirPerm         = 0o700
)

type fileRecord struct {
	Token  string                     `json:"api_token,omitempty"`
	User   json.RawMessage            `json:"user,omitempty"`
	States map[string]json.RawMessage `json:"stores,omitempty"`
}

func (r fileRecord) empty() bool {
	return r.Token == "" && len(r.User) == 0 && len(r.States) == 0
}

// File stores the session record as JSON in a single file.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a [File] store writing dir/session.json. The directory is created
// on first write.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, defaultFileName)}
}

// Path returns the record location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Save(_ context.Context, token string) error {
	return f.update(func(r *fileRecord) { r.Token = token })
}

func (f *File) Get(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.read()
	if err != nil {
		return "", false, err
	}
	return r.Token, r.Token != "", nil
}

func (f *File) Destroy(context.Context) error {
	return f.update(func(r *fileRecord) { r.Token = "" })
}

func (f *File) SaveUser(_ context.Context, record []byte) error {
	if !json.Valid(record) {
		return errors.New("user record is not valid json")
	}
	return f.update(func(r *fileRecord) { r.User = append(json.RawMessage(nil), record...) })
}

func (f *File) LoadUser(context.Context) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.read()
	if err != nil {
		return nil, false, err
	}
	if len(r.User) == 0 {
		return nil, false, nil
	}
	return []byte(r.User), true, nil
}

func (f *File) DestroyUser(context.Context) error {
	return f.update(func(r *fileRecord) { r.User = nil })
}

func (f *File) SaveState(_ context.Context, name string, record []byte) error {
	if !json.Valid(record) {
		return fmt.Errorf("store %q record is not valid json", name)
	}
	return f.update(func(r *fileRecord) {
		if r.States == nil {
			r.States = make(map[string]json.RawMessage)
		}
		r.States[name] = append(json.RawMessage(nil), record...)
	})
}

func (f *File) LoadState(_ context.Context, name string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := r.States[name]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *File) DestroyState(_ context.Context, name string) error {
	return f.update(func(r *fileRecord) { delete(r.States, name) })
}

func (f *File) update(mutate func(*fileRecord)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := f.read()
	if err != nil {
		return err
	}
	mutate(&r)

	if r.empty() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	return f.write(r)
}

func (f *File) read() (fileRecord, error) {
	var r fileRecord
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return r, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return fileRecord{}, fmt.Errorf("%w: corrupt session file: %v", ErrUnavailable, err)
	}
	return r, nil
}

func (f *File) write(r fileRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
