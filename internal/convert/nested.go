package convert

import (
	"context"
	"errors"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// MigratedPath derives the location of the converted sub-catalog:
// "main.yaml" becomes "main2.yaml", any other name gets "2" inserted
// before its extension.
func MigratedPath(p string) string {
	if out := strings.ReplaceAll(p, "main.yaml", "main2.yaml"); out != p {
		return out
	}
	dot := strings.LastIndex(p, ".")
	if dot <= strings.LastIndex(p, "/") {
		return p + "2"
	}
	return p[:dot] + "2" + p[dot:]
}

// addNested adds a nested-catalog entry for key of the legacy catalog at
// location, pointing at the sub-catalog's migrated path. Every failure is
// logged and leaves the catalog unchanged.
func (r *run) addNested(ctx context.Context, location, key string) {
	log := r.logger.With("entry", key)

	doc, err := r.docs.Open(ctx, location)
	if err != nil {
		log.Warn("could not open legacy catalog for nested entry", "catalog", location, "error", err)
		return
	}
	src, err := doc.Describe(key)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			log.Info("nested catalog entry not found, skipped", "catalog", location)
		} else {
			log.Warn("could not describe nested catalog entry", "error", err)
		}
		return
	}

	from := src.Path()
	if from == "" {
		log.Warn("nested catalog entry has no path, skipped")
		return
	}
	to := MigratedPath(from)

	md := domain.CloneMap(src.Metadata)
	if md == nil {
		md = map[string]any{}
	}
	delete(md, "plots")

	if err := r.add(&domain.Entry{
		Name:      key,
		Kind:      domain.BackendNestedCatalog,
		Locations: []string{to},
		Metadata:  md,
	}); err != nil {
		log.Warn("could not add nested catalog entry", "error", err)
		return
	}
	log.Info("nested catalog path changed; the target catalog has to be created separately",
		"from", from, "to", to)
}
