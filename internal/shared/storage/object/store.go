package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a storage key has no object behind it.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// Localizer resolves a storage key to a path on the local filesystem, downloading
// the object first when the backing store is remote. PDF tooling needs real files.
type Localizer interface {
	LocalPath(ctx context.Context, storageKey string) (string, error)
}

// Store is an ObjectStore whose objects can be materialized as local files.
type Store interface {
	ObjectStore
	Localizer
}
