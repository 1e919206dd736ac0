// Package legacy reads Intake v1 style catalog documents: a flat `sources`
// mapping of driver/args/metadata entries plus typed global parameters
// declared under `metadata.parameters`.
package legacy

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// ErrNotCatalog is returned by Parse when the document is not a mapping
// with a `sources` key.
var ErrNotCatalog = errors.New("not a legacy catalog document")

// Driver names with special handling.
const (
	DriverNestedCatalog = "yaml_file_cat"
	DriverNetCDF        = "netcdf"
)

// Document is a parsed legacy catalog. Parameters and Sources keep the
// order in which they are declared.
type Document struct {
	Location    string
	Description string
	Metadata    map[string]any
	Parameters  []ParameterDecl
	Sources     []Source

	// Invalid lists declarations that could not be decoded.
	Invalid []InvalidDecl
}

// ParameterDecl is a global parameter declaration.
type ParameterDecl struct {
	Name        string
	Type        string
	Default     any
	Allowed     []any
	Description string
}

// Source is one entry of the `sources` mapping.
type Source struct {
	Name        string
	Driver      string
	Description string
	Args        map[string]any
	Metadata    map[string]any
	Parameters  map[string]any
}

// InvalidDecl records a source or parameter that failed to decode.
type InvalidDecl struct {
	Kind string // "source" or "parameter"
	Name string
	Err  error
}

type rawDocument struct {
	Description string    `yaml:"description"`
	Metadata    yaml.Node `yaml:"metadata"`
	Sources     yaml.Node `yaml:"sources"`
}

type rawSource struct {
	Driver      string         `yaml:"driver"`
	Description string         `yaml:"description"`
	Args        map[string]any `yaml:"args"`
	Metadata    map[string]any `yaml:"metadata"`
	Parameters  map[string]any `yaml:"parameters"`
}

type rawParameter struct {
	Type        string `yaml:"type"`
	Default     any    `yaml:"default"`
	Allowed     []any  `yaml:"allowed"`
	Description string `yaml:"description"`
}

// Parse decodes a legacy catalog document. It returns ErrNotCatalog when
// data is valid YAML but not a catalog, and a parse error when data is not
// YAML at all.
func Parse(data []byte, location string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	top := mappingRoot(&root)
	if top == nil || lookup(top, "sources") == nil {
		return nil, fmt.Errorf("%s: %w", location, ErrNotCatalog)
	}

	var raw rawDocument
	if err := top.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}

	doc := &Document{
		Location:    location,
		Description: raw.Description,
	}

	if raw.Metadata.Kind == yaml.MappingNode {
		if err := raw.Metadata.Decode(&doc.Metadata); err != nil {
			return nil, fmt.Errorf("parse %s metadata: %w", location, err)
		}
		if params := lookup(&raw.Metadata, "parameters"); params != nil && params.Kind == yaml.MappingNode {
			doc.decodeParameters(params)
		}
		delete(doc.Metadata, "parameters")
	}

	switch raw.Sources.Kind {
	case yaml.MappingNode:
		doc.decodeSources(&raw.Sources)
	case 0, yaml.ScalarNode:
		// `sources:` with no value declares an empty catalog.
		if raw.Sources.Kind == yaml.ScalarNode && raw.Sources.Tag != "!!null" {
			return nil, fmt.Errorf("%s: sources must be a mapping", location)
		}
	default:
		return nil, fmt.Errorf("%s: sources must be a mapping", location)
	}
	return doc, nil
}

func (d *Document) decodeParameters(node *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var p rawParameter
		if err := node.Content[i+1].Decode(&p); err != nil {
			d.Invalid = append(d.Invalid, InvalidDecl{Kind: "parameter", Name: name, Err: err})
			continue
		}
		d.Parameters = append(d.Parameters, ParameterDecl{
			Name:        name,
			Type:        p.Type,
			Default:     p.Default,
			Allowed:     p.Allowed,
			Description: p.Description,
		})
	}
}

func (d *Document) decodeSources(node *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var s rawSource
		if err := node.Content[i+1].Decode(&s); err != nil {
			d.Invalid = append(d.Invalid, InvalidDecl{Kind: "source", Name: name, Err: err})
			continue
		}
		d.Sources = append(d.Sources, Source{
			Name:        name,
			Driver:      s.Driver,
			Description: s.Description,
			Args:        s.Args,
			Metadata:    s.Metadata,
			Parameters:  s.Parameters,
		})
	}
}

// Normalize applies NormalizeBraces to every name, string field and mapping
// of the document in place.
func (d *Document) Normalize() {
	d.Description = normalizeString(d.Description)
	d.Metadata = NormalizeMap(d.Metadata)
	for i := range d.Parameters {
		p := &d.Parameters[i]
		p.Name = normalizeString(p.Name)
		p.Description = normalizeString(p.Description)
		p.Default = NormalizeBraces(p.Default)
		if p.Allowed != nil {
			p.Allowed = NormalizeBraces(p.Allowed).([]any)
		}
	}
	for i := range d.Sources {
		d.Sources[i].normalize()
	}
}

func (s *Source) normalize() {
	s.Name = normalizeString(s.Name)
	s.Driver = normalizeString(s.Driver)
	s.Description = normalizeString(s.Description)
	s.Args = NormalizeMap(s.Args)
	s.Metadata = NormalizeMap(s.Metadata)
	s.Parameters = NormalizeMap(s.Parameters)
}

// Describe returns a copy of the named source with braces normalized.
func (d *Document) Describe(name string) (*Source, error) {
	for i := range d.Sources {
		if d.Sources[i].Name == name {
			s := d.Sources[i].clone()
			s.normalize()
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound("source %q not found in %s", name, d.Location)
}

func (s Source) clone() Source {
	s.Args = domain.CloneMap(s.Args)
	s.Metadata = domain.CloneMap(s.Metadata)
	s.Parameters = domain.CloneMap(s.Parameters)
	return s
}

// URLPaths returns args.urlpath as a list. A scalar urlpath yields one
// element; a missing or empty urlpath yields nil.
func (s *Source) URLPaths() []string {
	return stringList(s.Args["urlpath"])
}

// Path returns args.path, used by nested catalog sources.
func (s *Source) Path() string {
	v, _ := s.Args["path"].(string)
	return v
}

// StorageOptions returns a copy of args.storage_options, or nil.
func (s *Source) StorageOptions() domain.StorageOptions {
	m, ok := s.Args["storage_options"].(map[string]any)
	if !ok {
		return nil
	}
	return domain.StorageOptions(m).Clone()
}

// IsNetCDF reports whether the driver names a netCDF reader.
func (s *Source) IsNetCDF() bool {
	return strings.Contains(s.Driver, DriverNetCDF)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}

func mappingRoot(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

// lookup returns the value node for key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
