package legacy

import (
	"context"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// MaxDocumentSize bounds how much of an input is read while checking
// whether it is a legacy catalog document.
const MaxDocumentSize = 32 << 20

// Opener loads legacy catalog documents from any location the object store
// can read.
type Opener struct {
	store domain.ObjectStore
}

// NewOpener creates an Opener reading through store.
func NewOpener(store domain.ObjectStore) *Opener {
	return &Opener{store: store}
}

// Open reads and parses the legacy catalog at location.
func (o *Opener) Open(ctx context.Context, location string) (*Document, error) {
	data, err := storage.ReadAll(ctx, o.store, location, MaxDocumentSize)
	if err != nil {
		return nil, err
	}
	return Parse(data, location)
}
