package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/guilded-university/tokenvault/internal/tokenerr"
)

// DefaultPath is the token file used when none is configured.
const DefaultPath = ".token"

const (
	filePerm = 0600
	dirPerm  = 0700
)

// FileOption configures how a token file is written and read.
type FileOption func(*fileOptions)

type fileOptions struct {
	createDirs        bool
	strictPermissions bool
}

// WithCreateDirs creates missing parent directories with 0700 permissions
// before writing. Without it a missing directory is a write failure.
func WithCreateDirs() FileOption {
	return func(o *fileOptions) {
		o.createDirs = true
	}
}

// WithStrictPermissions refuses to read token files whose mode is not 0600.
func WithStrictPermissions() FileOption {
	return func(o *fileOptions) {
		o.strictPermissions = true
	}
}

func newFileOptions(opts []FileOption) fileOptions {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Save encrypts token with codec and replaces the file at path with the blob.
func Save(ctx context.Context, codec Codec, token, path string, opts ...FileOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blob, err := codec.Encrypt(token)
	if err != nil {
		return tokenerr.Wrap(tokenerr.KindEncryptionFailed, err, "")
	}

	if err := writeFile(ctx, path, blob, newFileOptions(opts)); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return tokenerr.Wrap(tokenerr.KindWriteFailed, err, "")
	}

	return nil
}

// Load reads the blob at path and decrypts it with codec.
func Load(ctx context.Context, codec Codec, path string, opts ...FileOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	blob, err := readFile(path, newFileOptions(opts))
	if err != nil {
		return "", tokenerr.Wrap(tokenerr.KindReadFailed, err, "")
	}
	defer clear(blob)

	token, err := codec.Decrypt(blob)
	if err != nil {
		return "", tokenerr.Wrap(tokenerr.KindDecryptionFailed, err, "")
	}

	return token, nil
}

// writeFile atomically replaces path using temp file + rename for crash safety.
func writeFile(ctx context.Context, path string, data []byte, o fileOptions) error {
	path, err := resolveLink(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if o.createDirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return err
		}
	}

	// Create secure temp file in same directory for atomic rename
	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths; a no-op once renamed
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	// CreateTemp already uses 0600, chmod guards against an unusual umask
	if err := tempFile.Chmod(filePerm); err != nil {
		return err
	}
	if _, err := tempFile.Write(data); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return os.Rename(tempName, path)
}

// resolveLink follows a symlinked token path so the rename replaces the link
// target and leaves the link in place. A dangling link resolves to the path it names.
func resolveLink(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return path, nil
	}

	target, err := filepath.EvalSymlinks(path)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	target, err = os.Readlink(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}

func readFile(path string, o fileOptions) ([]byte, error) {
	if o.strictPermissions {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Mode().Perm() != filePerm {
			return nil, fmt.Errorf("insecure permissions on %s: %04o (expected %04o)", path, info.Mode().Perm(), filePerm)
		}
	}

	return os.ReadFile(path)
}

// FileStore is a TokenStore bound to a single token file.
type FileStore struct {
	filePath string
	codec    Codec
	opts     []FileOption
}

// Compile-time check to ensure FileStore implements TokenStore
var _ TokenStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path. No I/O is performed.
func NewFileStore(filePath string, codec Codec, opts ...FileOption) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if codec == nil {
		return nil, fmt.Errorf("missing codec")
	}

	return &FileStore{
		filePath: filePath,
		codec:    codec,
		opts:     opts,
	}, nil
}

// Path returns the token file path.
func (f *FileStore) Path() string {
	return f.filePath
}

// Read loads and decrypts the token file.
func (f *FileStore) Read(ctx context.Context) (string, error) {
	return Load(ctx, f.codec, f.filePath, f.opts...)
}

// Write encrypts the token and replaces the token file.
func (f *FileStore) Write(ctx context.Context, token string) error {
	return Save(ctx, f.codec, token, f.filePath, f.opts...)
}
