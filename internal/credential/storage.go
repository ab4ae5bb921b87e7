package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filippo.io/age"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/log"
)

// Storage is persistent string key-value storage.
//
// Implementations must be safe for concurrent use. Get reports ok=false for
// a missing key; Remove of a missing key is not an error. Apply writes set
// and deletes remove as a single update.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
	Apply(ctx context.Context, set map[string]string, remove []string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements Storage.
func (m *MemoryStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Apply implements Storage.
func (m *MemoryStorage) Apply(_ context.Context, set map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range remove {
		delete(m.values, key)
	}
	for key, value := range set {
		m.values[key] = value
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// FileName is the name of the storage file inside the state directory.
const FileName = "credentials.json"

// FileStorage persists all keys as one JSON object in a 0600 file.
// With a passphrase the file is sealed with age (scrypt recipient).
//
// The decrypted content is cached and reused while the file's size and
// modification time are unchanged: a sealed file is decrypted once per
// change. A file that cannot be
// decrypted or parsed fails reads, but the next write replaces it.
type FileStorage struct {
	path       string
	passphrase string
	workFactor int
	logger     *log.Logger

	mu       sync.Mutex
	cache    map[string]string
	cacheMod time.Time
	cacheLen int64
	decrypts int
}

// FileOption configures a FileStorage.
type FileOption func(*FileStorage)

// WithPassphrase encrypts the file at rest with an age scrypt passphrase.
func WithPassphrase(passphrase string) FileOption {
	return func(f *FileStorage) {
		f.passphrase = passphrase
	}
}

// WithWorkFactor overrides the scrypt work factor (log2 of N).
func WithWorkFactor(logN int) FileOption {
	return func(f *FileStorage) {
		f.workFactor = logN
	}
}

// WithLogger sets the logger that reports a replaced unreadable file.
func WithLogger(logger *log.Logger) FileOption {
	return func(f *FileStorage) {
		f.logger = logger
	}
}

// NewFileStorage creates a storage backed by dir/credentials.json.
// The directory is created on first write.
func NewFileStorage(dir string, opts ...FileOption) *FileStorage {
	f := &FileStorage{path: filepath.Join(dir, FileName)}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = log.OrDefault(f.logger).WithComponent("credential")
	return f
}

// Path returns the backing file path.
func (f *FileStorage) Path() string {
	return f.path
}

// Encrypted reports whether the file is sealed with a passphrase.
func (f *FileStorage) Encrypted() bool {
	return f.passphrase != ""
}

// Get implements Storage.
func (f *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, _, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Storage.
func (f *FileStorage) Set(ctx context.Context, key, value string) error {
	return f.Apply(ctx, map[string]string{key: value}, nil)
}

// Remove implements Storage.
func (f *FileStorage) Remove(ctx context.Context, keys ...string) error {
	return f.Apply(ctx, nil, keys)
}

// Apply implements Storage. An unreadable file is treated as empty and
// replaced; when nothing is left to keep it is deleted.
func (f *FileStorage) Apply(ctx context.Context, set map[string]string, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, corrupt, err := f.load()
	if corrupt {
		f.logger.WithError(err).WarnContext(ctx, "credential file is unreadable; replacing it")
		values, err = make(map[string]string), nil
	}
	if err != nil {
		return err
	}

	changed := corrupt
	for _, key := range remove {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}
	for key, value := range set {
		if current, ok := values[key]; !ok || current != value {
			values[key] = value
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if len(values) == 0 {
		f.cache = nil
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "remove credential file", err)
		}
		return nil
	}
	return f.write(values)
}

// load returns a private copy of the stored values. corrupt reports that
// the file exists but could not be decrypted or parsed.
func (f *FileStorage) load() (values map[string]string, corrupt bool, err error) {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		f.cache = nil
		return make(map[string]string), false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStorageRead, errors.KindUnknown, "stat credential file", err)
	}
	if f.cache != nil && info.ModTime().Equal(f.cacheMod) && info.Size() == f.cacheLen {
		return maps.Clone(f.cache), false, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStorageRead, errors.KindUnknown, "read credential file", err)
	}
	values = make(map[string]string)
	if len(bytes.TrimSpace(data)) > 0 {
		plain, err := f.open(data)
		if err != nil {
			return nil, true, errors.Wrap(errors.ErrCodeStorageRead, errors.KindUnknown, "decrypt credential file", err)
		}
		if err := json.Unmarshal(plain, &values); err != nil {
			return nil, true, errors.Wrap(errors.ErrCodeStorageRead, errors.KindUnknown, "parse credential file", err)
		}
		if values == nil {
			values = make(map[string]string)
		}
	}

	f.remember(values, info)
	return maps.Clone(values), false, nil
}

func (f *FileStorage) remember(values map[string]string, info os.FileInfo) {
	f.cache = values
	f.cacheMod = info.ModTime()
	f.cacheLen = info.Size()
}

func (f *FileStorage) write(values map[string]string) error {
	plain, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "encode credential file", err)
	}

	data, err := f.seal(plain)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "encrypt credential file", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "create state directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "write credential file", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "chmod credential file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "close credential file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, errors.KindUnknown, "replace credential file", err)
	}

	f.cache = nil
	if info, err := os.Stat(f.path); err == nil {
		f.remember(maps.Clone(values), info)
	}
	return nil
}

func (f *FileStorage) seal(plain []byte) ([]byte, error) {
	if f.passphrase == "" {
		return plain, nil
	}

	recipient, err := age.NewScryptRecipient(f.passphrase)
	if err != nil {
		return nil, err
	}
	if f.workFactor > 0 {
		recipient.SetWorkFactor(f.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *FileStorage) open(data []byte) ([]byte, error) {
	if f.passphrase == "" {
		if !json.Valid(data) && bytes.HasPrefix(data, []byte("age-encryption.org/")) {
			return nil, fmt.Errorf("file is encrypted but no passphrase is configured")
		}
		return data, nil
	}

	f.decrypts++
	identity, err := age.NewScryptIdentity(f.passphrase)
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
