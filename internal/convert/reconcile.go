package convert

import (
	"context"
	"errors"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// MergeMetadata returns a copy of harvested with explicit merged over it
// key by key.
func MergeMetadata(harvested, explicit map[string]any) map[string]any {
	out := domain.CloneMap(harvested)
	if out == nil {
		out = map[string]any{}
	}
	for k, v := range domain.CloneMap(explicit) {
		out[k] = v
	}
	return out
}

// reconcile sets e's metadata from the opened dataset's attributes, then
// merges explicit over it. Opening is best effort: on failure the entry
// keeps only the explicit metadata.
func (r *run) reconcile(ctx context.Context, e *domain.Entry, explicit map[string]any) {
	expanded := *e
	expanded.Locations = make([]string, len(e.Locations))
	for i, l := range e.Locations {
		expanded.Locations[i] = r.b.Expand(l)
	}

	var harvested map[string]any
	ds, err := r.datasets.Open(ctx, &expanded)
	switch {
	case err == nil:
		harvested = ds.Attrs
		r.logger.Debug("harvested dataset attributes", "entry", e.Name,
			"attributes", len(ds.Attrs), "variables", len(ds.Variables), "bytes", ds.SizeBytes)
	case errors.Is(err, domain.ErrUnsupportedBackend):
		r.logger.Info("metadata not harvested: backend unsupported", "entry", e.Name, "error", err)
	default:
		r.logger.Warn("metadata not harvested: could not read dataset", "entry", e.Name, "error", err)
	}
	e.Metadata = MergeMetadata(harvested, explicit)
}
