// Package storage keeps uploaded media files. Objects are addressed by a
// flat name; the public URL of an object is URLPrefix followed by its name.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the server-relative path under which objects are served
const URLPrefix = "/uploads/"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidName    = errors.New("invalid object name")
)

// Object is an opened stored file. Body is an io.ReadSeeker for backends
// that support random access.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Storage is a flat blob store for uploaded media
type Storage interface {
	// Put stores body under name and returns the number of bytes written.
	// size may be -1 when unknown.
	Put(ctx context.Context, name string, body io.Reader, size int64, contentType string) (int64, error)
	// Open returns ErrObjectNotFound when name does not exist
	Open(ctx context.Context, name string) (*Object, error)
	// Delete succeeds when name does not exist
	Delete(ctx context.Context, name string) error
	// List returns every stored object
	List(ctx context.Context) ([]ObjectInfo, error)
	Health(ctx context.Context) error
}

// NewObjectName returns a fresh random name keeping the extension of the
// uploaded filename.
func NewObjectName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(filename)))
}

// URL returns the public path of an object
func URL(name string) string {
	return URLPrefix + name
}

// NameFromURL extracts the object name from a public path
func NameFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, URLPrefix)
	if ValidateName(name) != nil {
		return "", false
	}
	return name, true
}

// ValidateName rejects anything that is not a single path element
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}
