package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/legacy"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// DirectoryVariable names the parameter holding the directory of the
// legacy catalog being converted.
const DirectoryVariable = "CATALOG_DIR"

// ClassifyDriver maps a legacy driver name to the backend kind that
// replaces it.
func ClassifyDriver(driver string) domain.BackendKind {
	switch {
	case driver == legacy.DriverNestedCatalog:
		return domain.BackendNestedCatalog
	case strings.Contains(driver, legacy.DriverNetCDF):
		return domain.BackendGriddedFile
	default:
		return domain.BackendChunkedArray
	}
}

// convertLegacy walks a legacy document: directory variable, parameters,
// then sources in declared order. Only a ValidationError aborts the walk.
func (r *run) convertLegacy(ctx context.Context, doc *legacy.Document) error {
	log := r.logger.With("input", doc.Location)
	log.Info("converting legacy catalog", "sources", len(doc.Sources), "parameters", len(doc.Parameters))

	doc.Normalize()

	dir, err := storage.Dir(doc.Location)
	if err != nil {
		return err
	}
	if err := r.b.AddDirectoryVariable(DirectoryVariable, dir); err != nil {
		return fmt.Errorf("register %s: %w", DirectoryVariable, err)
	}

	r.addParameters(doc)

	for _, inv := range doc.Invalid {
		log.Warn("skipping malformed declaration", "kind", inv.Kind, "name", inv.Name, "error", inv.Err)
	}

	for i := range doc.Sources {
		src := &doc.Sources[i]
		log.Debug("processing legacy source", "entry", src.Name, "driver", src.Driver)

		kind := ClassifyDriver(src.Driver)
		if kind == domain.BackendNestedCatalog {
			r.addNested(ctx, doc.Location, src.Name)
			continue
		}

		locations := src.URLPaths()
		if len(locations) == 0 {
			log.Debug("source has no urlpath, skipped", "entry", src.Name)
			continue
		}
		err := r.addArrayStore(ctx, arrayRequest{
			Name:           src.Name,
			Kind:           kind,
			Locations:      locations,
			StorageOptions: src.StorageOptions(),
			Metadata:       src.Metadata,
			Parameters:     src.Parameters,
		})
		if err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}
	}
	return nil
}

// addParameters declares the document's string parameters. Other types
// and invalid declarations are logged and skipped.
func (r *run) addParameters(doc *legacy.Document) {
	for _, decl := range doc.Parameters {
		if decl.Type != "str" {
			r.logger.Info("only string parameters are supported, skipped",
				"parameter", decl.Name, "type", decl.Type)
			continue
		}
		p := domain.Parameter{
			Name:        decl.Name,
			Kind:        domain.ParameterSimple,
			Description: decl.Description,
		}
		if decl.Default != nil {
			p.Default = fmt.Sprint(decl.Default)
		}
		if len(decl.Allowed) > 0 {
			p.Kind = domain.ParameterOptions
			for _, a := range decl.Allowed {
				p.Allowed = append(p.Allowed, fmt.Sprint(a))
			}
		}
		if _, err := r.b.AddParameter(p); err != nil {
			r.logger.Warn("invalid parameter declaration, skipped", "parameter", decl.Name, "error", err)
			continue
		}
		r.logger.Debug("declared parameter", "parameter", p.Name, "kind", p.Kind)
	}
}
