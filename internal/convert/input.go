package convert

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// InputKind is the shape of a raw input string.
type InputKind string

// Input kinds.
const (
	InputReference InputKind = "reference"
	InputPath      InputKind = "path"
	InputInvalid   InputKind = "invalid"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// storeMarkers are looked up when a remote location does not exist as an
// object or prefix of its own, as with array stores served over HTTP.
var storeMarkers = []string{".zmetadata", "zarr.json", ".zattrs", ".zgroup"}

// IsReference reports whether s is a reference-index URI.
func IsReference(s string) bool {
	return domain.IsReference(s)
}

// ParseInputName splits an optional "name=" prefix off s. The split only
// happens when s contains exactly one "=" and the left side is an
// identifier; otherwise name is empty and path is s.
func ParseInputName(s string) (name, path string) {
	if strings.Count(s, "=") != 1 {
		return "", s
	}
	lhs, rhs, _ := strings.Cut(s, "=")
	if !nameRe.MatchString(lhs) {
		return "", s
	}
	return lhs, rhs
}

// EntryName returns the explicit name of an input, or the final path
// segment of its location without extension.
func EntryName(s string) string {
	name, path := ParseInputName(s)
	if name != "" {
		return name
	}
	if _, target, ok := domain.SplitReference(path); ok {
		path = target
	}
	return storage.Stem(path)
}

// Classify reports whether s is a reference-index URI, an existing path on
// the filesystem or an object store, or neither. A non-nil error means the
// existence check itself failed; the kind is then InputInvalid.
func Classify(ctx context.Context, store domain.ObjectStore, s string) (InputKind, error) {
	if IsReference(s) {
		return InputReference, nil
	}
	if s == "" {
		return InputInvalid, nil
	}
	ok, err := store.Exists(ctx, s)
	if err != nil {
		return InputInvalid, fmt.Errorf("check %s: %w", s, err)
	}
	if ok {
		return InputPath, nil
	}
	if storage.IsRemote(s) {
		for _, m := range storeMarkers {
			if ok, err := store.Exists(ctx, storage.Join(s, m)); err == nil && ok {
				return InputPath, nil
			}
		}
	}
	return InputInvalid, nil
}
