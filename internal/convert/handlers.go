package convert

import (
	"context"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// arrayRequest describes one chunked or gridded entry to add.
type arrayRequest struct {
	Name           string
	Kind           domain.BackendKind
	Locations      []string
	StorageOptions domain.StorageOptions
	Metadata       map[string]any
	Parameters     map[string]any
}

// addArrayStore adds a chunked-array or gridded-file entry, overwriting any
// entry of the same name. For chunked entries, reference-index locations
// add their tabular entries first; a list mixing reference-index and
// direct locations is rejected before anything is added.
func (r *run) addArrayStore(ctx context.Context, req arrayRequest) error {
	log := r.logger.With("entry", req.Name)

	refs := 0
	for _, l := range req.Locations {
		if IsReference(l) {
			refs++
		}
	}
	if req.Kind == domain.BackendChunkedArray && refs > 0 && refs != len(req.Locations) {
		return domain.ErrValidation("entry %q: mixed reference and non-reference locations", req.Name)
	}

	if req.Kind == domain.BackendGriddedFile {
		log.Info("adding gridded-file entry", "locations", len(req.Locations))
	} else {
		log.Info("adding chunked-array entry", "locations", len(req.Locations))
	}

	so := req.StorageOptions.Clone()
	if req.Kind == domain.BackendChunkedArray && refs > 0 {
		so = ReferenceStorageOptions(so)
		if err := r.addReferenceIndex(req.Name, req.Locations); err != nil {
			return err
		}
	}

	if len(req.Parameters) > 0 {
		log.Info("parameterized entries are not supported, binding ignored", "parameters", len(req.Parameters))
	}

	e := &domain.Entry{
		Name:       req.Name,
		Kind:       req.Kind,
		Locations:  append([]string(nil), req.Locations...),
		Options:    domain.OpenOptions{Chunks: r.chunks},
		Parameters: domain.CloneMap(req.Parameters),
	}
	if len(so) > 0 {
		e.StorageOptions = so
	}
	if req.Kind == domain.BackendChunkedArray {
		for _, l := range req.Locations {
			if strings.Contains(l, "::") {
				e.Options.ZarrFormat = 2
				break
			}
		}
	}

	r.reconcile(ctx, e, req.Metadata)
	return r.add(e)
}

// add stores e and records it for the run report.
func (r *run) add(e *domain.Entry) error {
	replaced, err := r.b.AddEntry(e)
	if err != nil {
		return err
	}
	if replaced {
		r.logger.Debug("replaced existing entry", "entry", e.Name)
	}
	r.added = append(r.added, e.Name)
	return nil
}
