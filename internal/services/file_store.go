package services

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	errUnsafePath  = errors.New("unsafe file path")
	errTooLarge    = errors.New("file too large")
	errNoUploadDir = errors.New("uploads are not configured")
)

// FileStore keeps uploaded attachments under Dir with server-chosen names.
type FileStore struct {
	Dir string
	Max int64
}

// Save streams r into a new file and returns its stored name and size.
// Anything above Max bytes is rejected and removed.
func (f *FileStore) Save(r io.Reader) (string, int64, error) {
	if f.Dir == "" {
		return "", 0, errNoUploadDir
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", 0, err
	}
	name := uuid.NewString()
	full := filepath.Join(f.Dir, name)
	out, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(out, io.LimitReader(r, f.Max+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > f.Max {
		err = errTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, err
	}
	return name, n, nil
}

// Path resolves a stored name, refusing anything that could escape Dir.
func (f *FileStore) Path(name string) (string, error) {
	lower := strings.ToLower(name)
	// block encoded traversal attempts as well as raw .. or null bytes
	if name == "" || strings.Contains(lower, "..") || strings.Contains(lower, "%2e") ||
		strings.ContainsAny(name, "/\\\x00") {
		return "", errUnsafePath
	}
	clean := filepath.Clean(name)
	if clean == "." || filepath.IsAbs(clean) {
		return "", errUnsafePath
	}
	return filepath.Join(f.Dir, clean), nil
}

func (f *FileStore) Remove(name string) {
	if p, err := f.Path(name); err == nil {
		_ = os.Remove(p)
	}
}
