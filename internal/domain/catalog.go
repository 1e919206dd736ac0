package domain

import "fmt"

// BackendKind identifies how an entry's locations are opened.
type BackendKind string

// Backend kinds. BackendOpaque marks entries preserved verbatim from an
// existing catalog whose reader is not produced by the converter.
const (
	BackendChunkedArray     BackendKind = "chunked-array"
	BackendGriddedFile      BackendKind = "gridded-file"
	BackendTabularReference BackendKind = "tabular-reference"
	BackendNestedCatalog    BackendKind = "nested-catalog"
	BackendOpaque           BackendKind = "opaque"
)

// DefaultChunks is the chunking strategy used when none is configured.
const DefaultChunks = "auto"

// StorageOptions controls how a location is opened (remote protocol,
// laziness, consolidation, remote options).
type StorageOptions map[string]any

// Clone returns a copy of the options. Nested mappings are copied as well.
func (o StorageOptions) Clone() StorageOptions {
	if o == nil {
		return StorageOptions{}
	}
	out := make(StorageOptions, len(o))
	for k, v := range o {
		if m, ok := v.(map[string]any); ok {
			v = CloneMap(m)
		}
		out[k] = v
	}
	return out
}

// OpenOptions holds backend-specific reader options.
type OpenOptions struct {
	Chunks     string // chunked and gridded entries
	ZarrFormat int    // 0 when unset; 2 for reference-indexed stores
	Engine     string // tabular entries
}

// Entry is the unit of catalog content: a named, typed pointer to one or
// more data locations plus open-options and metadata.
type Entry struct {
	Name           string
	Kind           BackendKind
	Locations      []string
	Options        OpenOptions
	StorageOptions StorageOptions
	Metadata       map[string]any

	// Parameters is the entry's parameter binding as declared in the legacy
	// catalog. It is recorded but never expanded.
	Parameters map[string]any

	// Opaque is set for BackendOpaque entries only.
	Opaque *OpaqueReader
}

// OpaqueReader keeps the serialized form of an entry the converter does not
// produce itself, so that appending to a catalog never drops it.
type OpaqueReader struct {
	Reader         string
	OutputInstance string
	Datatype       string
	Kwargs         map[string]any
	DataKwargs     map[string]any
	UserParameters map[string]any
}

// Validate checks the descriptor invariants.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return ErrValidation("entry name is required")
	}
	switch e.Kind {
	case BackendChunkedArray, BackendGriddedFile, BackendTabularReference, BackendNestedCatalog:
	case BackendOpaque:
		if e.Opaque == nil {
			return ErrValidation("entry %q: opaque entry without reader", e.Name)
		}
		return nil
	default:
		return ErrValidation("entry %q: unknown backend kind %q", e.Name, e.Kind)
	}
	if len(e.Locations) == 0 {
		return ErrValidation("entry %q: at least one location is required", e.Name)
	}
	return nil
}

// ParameterKind distinguishes free-form from enumerated parameters.
type ParameterKind string

// Parameter kinds.
const (
	ParameterSimple  ParameterKind = "simple"
	ParameterOptions ParameterKind = "options"
)

// Parameter is a catalog-level user parameter. Only string-typed parameters
// are supported.
type Parameter struct {
	Name        string
	Kind        ParameterKind
	Default     string
	Allowed     []string // ParameterOptions only
	Description string
}

// Validate checks that the parameter is well-formed.
func (p *Parameter) Validate() error {
	if p.Name == "" {
		return ErrValidation("parameter name is required")
	}
	if p.Kind == ParameterOptions {
		if len(p.Allowed) == 0 {
			return ErrValidation("parameter %q: options parameter without allowed values", p.Name)
		}
		for _, a := range p.Allowed {
			if a == p.Default {
				return nil
			}
		}
		return ErrValidation("parameter %q: default %q is not an allowed value", p.Name, p.Default)
	}
	return nil
}

// Dataset is what the dataset access layer reports for an opened entry.
type Dataset struct {
	Attrs     map[string]any
	Variables []string
	SizeBytes int64
}

// CloneMap returns a deep copy of a nested string-keyed mapping.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// String implements fmt.Stringer for log output.
func (e *Entry) String() string {
	return fmt.Sprintf("%s(%s, %d location(s))", e.Name, e.Kind, len(e.Locations))
}
