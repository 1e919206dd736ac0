package convert

import (
	"fmt"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// ParquetEngine is the reader engine of tabular reference entries.
const ParquetEngine = "fastparquet"

// ReferenceStorageOptions derives the storage options of a
// reference-indexed store: lazy and non-consolidated, asynchronous remote
// access for HTTP-family protocols, and local-file access when no remote
// protocol is declared. so is modified and returned.
func ReferenceStorageOptions(so domain.StorageOptions) domain.StorageOptions {
	if so == nil {
		so = domain.StorageOptions{}
	}
	so["lazy"] = true
	so["consolidated"] = false
	rp, _ := so["remote_protocol"].(string)
	rp, _, _ = strings.Cut(rp, ":")
	switch {
	case rp == "":
		so["remote_protocol"] = "file"
	case strings.HasPrefix(rp, "http"):
		so["remote_options"] = map[string]any{"asynchronous": true}
	}
	return so
}

// TabularPath strips the reference-index prefix off loc, leaving the
// location of the index itself.
func TabularPath(loc string) string {
	if _, target, ok := domain.SplitReference(loc); ok {
		return target
	}
	return loc
}

// AuxiliaryName names the tabular entry of the index'th reference location.
func AuxiliaryName(base string, index int) string {
	return fmt.Sprintf("%s_parquet_%d", base, index)
}

// addReferenceIndex adds one tabular entry per reference location, named
// after base and the zero-based location index.
func (r *run) addReferenceIndex(base string, locations []string) error {
	r.logger.Info("adding reference index entries", "entry", base, "count", len(locations))
	for i, loc := range locations {
		e := &domain.Entry{
			Name:      AuxiliaryName(base, i),
			Kind:      domain.BackendTabularReference,
			Locations: []string{TabularPath(loc)},
			Options:   domain.OpenOptions{Engine: ParquetEngine},
			Metadata:  map[string]any{},
		}
		if err := r.add(e); err != nil {
			return err
		}
		r.logger.Debug("added tabular reference entry", "entry", e.Name, "location", e.Locations[0])
	}
	return nil
}
