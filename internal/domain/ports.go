package domain

import (
	"context"
	"io"
)

// ObjectStore reads objects from a local or remote location.
// Implemented by storage.Router.
type ObjectStore interface {
	// Open returns a reader over the object at location.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Exists reports whether location names an existing object or prefix.
	Exists(ctx context.Context, location string) (bool, error)
}

// DatasetOpener eagerly opens the dataset an entry points to and returns
// its attributes. Implemented by dataset.Registry.
type DatasetOpener interface {
	Open(ctx context.Context, entry *Entry) (*Dataset, error)
}
