package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

// MaxMetadataSize caps the size of a store metadata document.
const MaxMetadataSize = 64 << 20

// ZarrAdapter reads attributes and array metadata of chunked array stores
// and of reference indices describing one.
type ZarrAdapter struct {
	store domain.ObjectStore
}

// NewZarrAdapter creates a ZarrAdapter reading through store.
func NewZarrAdapter(store domain.ObjectStore) *ZarrAdapter {
	return &ZarrAdapter{store: store}
}

// Open reads the metadata of the entry's first location.
func (a *ZarrAdapter) Open(ctx context.Context, e *domain.Entry) (*domain.Dataset, error) {
	if e.Kind != domain.BackendChunkedArray {
		return nil, fmt.Errorf("%w: zarr adapter cannot open %s entries", domain.ErrUnsupportedBackend, e.Kind)
	}
	loc := e.Locations[0]
	if format, target, ok := domain.SplitReference(loc); ok {
		return a.openReference(ctx, format, target)
	}
	return a.openStore(ctx, loc)
}

func (a *ZarrAdapter) openStore(ctx context.Context, loc string) (*domain.Dataset, error) {
	b, err := a.read(ctx, storage.Join(loc, ".zmetadata"))
	if err == nil {
		return parseConsolidated(b)
	}
	if !isNotFound(err) {
		return nil, err
	}

	b, err = a.read(ctx, storage.Join(loc, "zarr.json"))
	if err == nil {
		return parseZarrV3(b)
	}
	if !isNotFound(err) {
		return nil, err
	}

	b, err = a.read(ctx, storage.Join(loc, ".zattrs"))
	if err == nil {
		var attrs map[string]any
		if err := decodeMetadata(b, &attrs); err != nil {
			return nil, fmt.Errorf("parse .zattrs: %w", err)
		}
		return &domain.Dataset{Attrs: attrs}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return nil, domain.ErrNotFound("no zarr metadata under %s", loc)
}

func (a *ZarrAdapter) openReference(ctx context.Context, format, target string) (*domain.Dataset, error) {
	switch {
	case format == "json" || (format == "" && strings.HasSuffix(target, ".json")):
		b, err := a.read(ctx, target)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := decodeMetadata(b, &doc); err != nil {
			return nil, fmt.Errorf("parse reference index %s: %w", target, err)
		}
		refs, ok := doc["refs"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("reference index %s has no refs", target)
		}
		return datasetFromKeys(refs)
	case format == "parquet" || format == "":
		b, err := a.read(ctx, storage.Join(target, ".zmetadata"))
		if err != nil {
			return nil, err
		}
		return parseConsolidated(b)
	default:
		return nil, fmt.Errorf("%w: reference index format %q", domain.ErrUnsupportedBackend, format)
	}
}

func (a *ZarrAdapter) read(ctx context.Context, loc string) ([]byte, error) {
	return storage.ReadAll(ctx, a.store, loc, MaxMetadataSize)
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}

// parseConsolidated reads a consolidated v2 metadata document, as written
// by zarr stores and parquet reference indices alike.
func parseConsolidated(b []byte) (*domain.Dataset, error) {
	var doc map[string]any
	if err := decodeMetadata(b, &doc); err != nil {
		return nil, fmt.Errorf("parse .zmetadata: %w", err)
	}
	md, ok := doc["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse .zmetadata: no metadata section")
	}
	return datasetFromKeys(md)
}

// datasetFromKeys builds a dataset from a flat key space of v2 metadata
// documents. Values are either decoded objects or JSON strings.
func datasetFromKeys(keys map[string]any) (*domain.Dataset, error) {
	ds := &domain.Dataset{Attrs: map[string]any{}}
	if raw, ok := keys[".zattrs"]; ok {
		attrs, err := asObject(raw)
		if err != nil {
			return nil, fmt.Errorf("parse .zattrs: %w", err)
		}
		ds.Attrs = attrs
	}
	for k, raw := range keys {
		name, ok := strings.CutSuffix(k, "/.zarray")
		if !ok {
			continue
		}
		arr, err := asObject(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", k, err)
		}
		ds.Variables = append(ds.Variables, name)
		ds.SizeBytes += elements(arr["shape"]) * itemSizeV2(arr["dtype"])
	}
	sort.Strings(ds.Variables)
	return ds, nil
}

func parseZarrV3(b []byte) (*domain.Dataset, error) {
	type node struct {
		NodeType   string         `json:"node_type"`
		Shape      []any          `json:"shape"`
		DataType   any            `json:"data_type"`
		Attributes map[string]any `json:"attributes"`
	}
	var doc struct {
		node
		Consolidated *struct {
			Metadata map[string]node `json:"metadata"`
		} `json:"consolidated_metadata"`
	}
	b, quoted := quoteNonFinite(b)
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse zarr.json: %w", err)
	}
	if quoted {
		restoreNonFinite(doc.Attributes)
	}
	ds := &domain.Dataset{Attrs: doc.Attributes}
	if ds.Attrs == nil {
		ds.Attrs = map[string]any{}
	}
	if doc.NodeType == "array" {
		ds.SizeBytes = elements(doc.Shape) * itemSizeV3(doc.DataType)
		return ds, nil
	}
	if doc.Consolidated != nil {
		for name, n := range doc.Consolidated.Metadata {
			if n.NodeType != "array" {
				continue
			}
			ds.Variables = append(ds.Variables, name)
			ds.SizeBytes += elements(n.Shape) * itemSizeV3(n.DataType)
		}
	}
	sort.Strings(ds.Variables)
	return ds, nil
}

func asObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		var m map[string]any
		if err := decodeMetadata([]byte(t), &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unexpected metadata value %T", v)
	}
}
