// Package catalog holds the output catalog: an ordered set of entry
// descriptors and user parameters, the builder handlers accumulate into,
// and the Intake v2 document codec used to load and persist it.
package catalog

import (
	"regexp"
	"strings"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// FormatVersion is the catalog document version written by Encode.
const FormatVersion = 2

// Catalog is an ordered mapping of entry name to descriptor plus declared
// user parameters. Entry and parameter names are unique.
type Catalog struct {
	Version  int
	Metadata map[string]any

	entries    []*domain.Entry
	entryIndex map[string]int
	params     []domain.Parameter
	paramIndex map[string]int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		Version:    FormatVersion,
		Metadata:   map[string]any{},
		entryIndex: map[string]int{},
		paramIndex: map[string]int{},
	}
}

// Entries returns the entries in insertion order.
func (c *Catalog) Entries() []*domain.Entry {
	return c.entries
}

// Entry returns the named entry.
func (c *Catalog) Entry(name string) (*domain.Entry, bool) {
	i, ok := c.entryIndex[name]
	if !ok {
		return nil, false
	}
	return c.entries[i], true
}

// Names returns entry names in insertion order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}

// Parameters returns the declared parameters in declaration order.
func (c *Catalog) Parameters() []domain.Parameter {
	return c.params
}

// Parameter returns the named parameter.
func (c *Catalog) Parameter(name string) (domain.Parameter, bool) {
	i, ok := c.paramIndex[name]
	if !ok {
		return domain.Parameter{}, false
	}
	return c.params[i], true
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Clone returns a copy of the catalog that can be mutated independently.
// Entry descriptors are shared; the builder replaces rather than mutates them.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Version:    c.Version,
		Metadata:   domain.CloneMap(c.Metadata),
		entries:    append([]*domain.Entry(nil), c.entries...),
		entryIndex: make(map[string]int, len(c.entryIndex)),
		params:     append([]domain.Parameter(nil), c.params...),
		paramIndex: make(map[string]int, len(c.paramIndex)),
	}
	for k, v := range c.entryIndex {
		out.entryIndex[k] = v
	}
	for k, v := range c.paramIndex {
		out.paramIndex[k] = v
	}
	return out
}

// putEntry inserts or replaces an entry. A replaced entry keeps its position.
func (c *Catalog) putEntry(e *domain.Entry) (replaced bool) {
	if i, ok := c.entryIndex[e.Name]; ok {
		c.entries[i] = e
		return true
	}
	c.entryIndex[e.Name] = len(c.entries)
	c.entries = append(c.entries, e)
	return false
}

func (c *Catalog) putParameter(p domain.Parameter) (replaced bool) {
	if i, ok := c.paramIndex[p.Name]; ok {
		c.params[i] = p
		return true
	}
	c.paramIndex[p.Name] = len(c.params)
	c.params = append(c.params, p)
	return false
}

// Builder accumulates entries and parameters into a catalog. On a name
// collision the last write wins and the entry keeps its original position.
type Builder struct {
	cat *Catalog
}

// NewBuilder returns a builder adding to cat, or to a new catalog when cat is nil.
func NewBuilder(cat *Catalog) *Builder {
	if cat == nil {
		cat = New()
	}
	return &Builder{cat: cat}
}

// Catalog returns the catalog being built.
func (b *Builder) Catalog() *Catalog {
	return b.cat
}

// Snapshot returns a copy of the current state for Restore.
func (b *Builder) Snapshot() *Catalog {
	return b.cat.Clone()
}

// Restore discards everything added since snap was taken.
func (b *Builder) Restore(snap *Catalog) {
	b.cat = snap
}

// AddEntry validates e and stores it under e.Name, replacing any entry of
// the same name. It reports whether an entry was replaced.
func (b *Builder) AddEntry(e *domain.Entry) (bool, error) {
	if e == nil {
		return false, domain.ErrValidation("entry is nil")
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	return b.cat.putEntry(e), nil
}

// AddParameter validates and declares a parameter. A later declaration of
// the same name replaces the earlier one.
func (b *Builder) AddParameter(p domain.Parameter) (bool, error) {
	if p.Kind == "" {
		p.Kind = domain.ParameterSimple
	}
	if err := p.Validate(); err != nil {
		return false, err
	}
	p.Allowed = append([]string(nil), p.Allowed...)
	return b.cat.putParameter(p), nil
}

// AddDirectoryVariable declares a simple parameter whose default is a
// resolved directory, for use as "{name}" in templated locations.
func (b *Builder) AddDirectoryVariable(name, dir string) error {
	_, err := b.AddParameter(domain.Parameter{
		Name:        name,
		Kind:        domain.ParameterSimple,
		Default:     dir,
		Description: "directory of the source catalog",
	})
	return err
}

var placeholderRe = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}`)

// Expand is shorthand for b.Catalog().Expand(s).
func (b *Builder) Expand(s string) string {
	return b.cat.Expand(s)
}

// Expand substitutes "{NAME}" placeholders with the defaults of declared
// parameters. Unknown placeholders are left as they are. A default ending
// in "/" absorbs a "/" that directly follows the placeholder.
func (c *Catalog) Expand(s string) string {
	var out strings.Builder
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(s, -1) {
		p, ok := c.Parameter(s[m[2]:m[3]])
		if !ok {
			continue
		}
		out.WriteString(s[last:m[0]])
		out.WriteString(p.Default)
		last = m[1]
		if strings.HasSuffix(p.Default, "/") && strings.HasPrefix(s[last:], "/") {
			last++
		}
	}
	out.WriteString(s[last:])
	return out.String()
}
