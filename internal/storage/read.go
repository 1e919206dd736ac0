package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// ErrTooLarge is returned by ReadAll when the object exceeds the size limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// ReadAll reads at most limit bytes of the object at location.
// A non-positive limit reads the whole object.
func ReadAll(ctx context.Context, store domain.ObjectStore, location string, limit int64) ([]byte, error) {
	rc, err := store.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: %w (%d bytes)", location, ErrTooLarge, limit)
	}
	return data, nil
}
