// Package storage keeps uploaded gallery files, either on the local disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotExist is returned by Open when the named file is absent.
var ErrNotExist = errors.New("storage: file does not exist")

// Object describes a stored file as returned by List.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is an opened stored file. Callers must close Body.
type File struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Store is the file side of the gallery. Names are flat: no directories.
type Store interface {
	// Save copies r into name, replacing any existing file, and returns the number of bytes written.
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	// Open returns ErrNotExist for unknown names.
	Open(ctx context.Context, name string) (*File, error)
	// Remove deletes name. A missing file is not an error.
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]Object, error)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("storage: invalid file name %q", name)
	}
	return nil
}
