package catalog

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"

	"go.yaml.in/yaml/v4"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// Reader, output and datatype identifiers of the Intake v2 document model.
const (
	ReaderXArray  = "intake.readers.readers:XArrayDatasetReader"
	ReaderParquet = "intake.readers.readers:PandasParquet"
	ReaderCatalog = "intake.readers.readers:YAMLCatalogReader"

	OutputDataset   = "xarray:Dataset"
	OutputDataFrame = "pandas:DataFrame"
	OutputCatalog   = "intake.readers.entry:Catalog"

	DatatypeZarr    = "intake.readers.datatypes:Zarr"
	DatatypeHDF5    = "intake.readers.datatypes:HDF5"
	DatatypeParquet = "intake.readers.datatypes:Parquet"
	DatatypeYAML    = "intake.readers.datatypes:YAMLFile"

	ParamSimple  = "intake.readers.user_parameters:SimpleUserParameter"
	ParamOptions = "intake.readers.user_parameters:OptionsUserParameter"
)

type readerSpec struct {
	reader   string
	output   string
	datatype string
	multi    bool // url is written as a list
}

var readerSpecs = map[domain.BackendKind]readerSpec{
	domain.BackendChunkedArray:     {ReaderXArray, OutputDataset, DatatypeZarr, true},
	domain.BackendGriddedFile:      {ReaderXArray, OutputDataset, DatatypeHDF5, true},
	domain.BackendTabularReference: {ReaderParquet, OutputDataFrame, DatatypeParquet, false},
	domain.BackendNestedCatalog:    {ReaderCatalog, OutputCatalog, DatatypeYAML, false},
}

// kindOf maps a serialized reader/datatype pair back to a backend kind.
func kindOf(reader, datatype string) (domain.BackendKind, bool) {
	for kind, spec := range readerSpecs {
		if spec.reader == reader && spec.datatype == datatype {
			return kind, true
		}
	}
	return "", false
}

var dataRefRe = regexp.MustCompile(`^\{data\(([0-9A-Za-z_]+)\)\}$`)

// Encode serializes the catalog as an Intake v2 YAML document. Keys of the
// top-level sections follow catalog order; the output is deterministic.
func Encode(c *Catalog) ([]byte, error) {
	root := mapping()
	addScalar(root, "version", fmt.Sprint(FormatVersion), "!!int")

	md, err := valueNode(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode catalog metadata: %w", err)
	}
	addNode(root, "metadata", md)

	params := mapping()
	for _, p := range c.params {
		addNode(params, p.Name, parameterNode(p))
	}
	addNode(root, "user_parameters", params)

	aliases, data, entries := mapping(), mapping(), mapping()
	for _, e := range c.entries {
		dataTok, dataNode, entryNode, err := entryNodes(e)
		if err != nil {
			return nil, fmt.Errorf("encode entry %q: %w", e.Name, err)
		}
		if dataNode != nil && yGet(data, dataTok) == nil {
			addNode(data, dataTok, dataNode)
		}
		entryTok := token("entry", e.Name, nodeDigest(entryNode))
		addNode(entries, entryTok, entryNode)
		addScalar(aliases, e.Name, entryTok, "!!str")
	}
	addNode(root, "aliases", aliases)
	addNode(root, "data", data)
	addNode(root, "entries", entries)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

func parameterNode(p domain.Parameter) *yaml.Node {
	n := mapping()
	cls := ParamSimple
	if p.Kind == domain.ParameterOptions {
		cls = ParamOptions
	}
	addScalar(n, "cls", cls, "!!str")
	addScalar(n, "default", p.Default, "!!str")
	addScalar(n, "description", p.Description, "!!str")
	addScalar(n, "dtype", "str", "!!str")
	if p.Kind == domain.ParameterOptions {
		opts := &yaml.Node{Kind: yaml.SequenceNode}
		for _, a := range p.Allowed {
			opts.Content = append(opts.Content, scalar(a, "!!str"))
		}
		addNode(n, "options", opts)
	}
	return n
}

// entryNodes builds the data and entry nodes of e. The data node is nil for
// opaque entries that carry no data reference.
func entryNodes(e *domain.Entry) (string, *yaml.Node, *yaml.Node, error) {
	if e.Kind == domain.BackendOpaque {
		return opaqueNodes(e)
	}
	spec, ok := readerSpecs[e.Kind]
	if !ok {
		return "", nil, nil, domain.ErrValidation("unknown backend kind %q", e.Kind)
	}

	dataKwargs := mapping()
	if len(e.StorageOptions) > 0 {
		so, err := valueNode(map[string]any(e.StorageOptions))
		if err != nil {
			return "", nil, nil, err
		}
		addNode(dataKwargs, "storage_options", so)
	}
	if spec.multi {
		urls := &yaml.Node{Kind: yaml.SequenceNode}
		for _, l := range e.Locations {
			urls.Content = append(urls.Content, scalar(l, "!!str"))
		}
		addNode(dataKwargs, "url", urls)
	} else {
		addScalar(dataKwargs, "url", e.Locations[0], "!!str")
	}
	dataNode := mapping()
	addScalar(dataNode, "datatype", spec.datatype, "!!str")
	addNode(dataNode, "kwargs", dataKwargs)
	addNode(dataNode, "metadata", mapping())
	addNode(dataNode, "user_parameters", mapping())
	dataTok := token("data", spec.datatype, nodeDigest(dataNode))

	kwargs := mapping()
	switch e.Kind {
	case domain.BackendChunkedArray, domain.BackendGriddedFile:
		chunks := e.Options.Chunks
		if chunks == "" {
			chunks = domain.DefaultChunks
		}
		addScalar(kwargs, "chunks", chunks, "!!str")
		addScalar(kwargs, "data", dataRef(dataTok), "!!str")
		if e.Options.ZarrFormat != 0 {
			addScalar(kwargs, "zarr_format", fmt.Sprint(e.Options.ZarrFormat), "!!int")
		}
	case domain.BackendTabularReference:
		addScalar(kwargs, "data", dataRef(dataTok), "!!str")
		if e.Options.Engine != "" {
			addScalar(kwargs, "engine", e.Options.Engine, "!!str")
		}
	default:
		addScalar(kwargs, "data", dataRef(dataTok), "!!str")
	}

	md, err := valueNode(e.Metadata)
	if err != nil {
		return "", nil, nil, err
	}
	entryNode := mapping()
	addNode(entryNode, "kwargs", kwargs)
	addNode(entryNode, "metadata", md)
	addScalar(entryNode, "output_instance", spec.output, "!!str")
	addScalar(entryNode, "reader", spec.reader, "!!str")
	addNode(entryNode, "user_parameters", mapping())
	return dataTok, dataNode, entryNode, nil
}

func opaqueNodes(e *domain.Entry) (string, *yaml.Node, *yaml.Node, error) {
	o := e.Opaque
	var dataTok string
	var dataNode *yaml.Node
	if o.Datatype != "" {
		dk, err := valueNode(o.DataKwargs)
		if err != nil {
			return "", nil, nil, err
		}
		dataNode = mapping()
		addScalar(dataNode, "datatype", o.Datatype, "!!str")
		addNode(dataNode, "kwargs", dk)
		addNode(dataNode, "metadata", mapping())
		addNode(dataNode, "user_parameters", mapping())
		dataTok = token("data", o.Datatype, nodeDigest(dataNode))
	}

	kw := domain.CloneMap(o.Kwargs)
	if kw == nil {
		kw = map[string]any{}
	}
	if dataNode != nil {
		kw["data"] = dataRef(dataTok)
	}
	kwargs, err := valueNode(kw)
	if err != nil {
		return "", nil, nil, err
	}
	md, err := valueNode(e.Metadata)
	if err != nil {
		return "", nil, nil, err
	}
	up, err := valueNode(o.UserParameters)
	if err != nil {
		return "", nil, nil, err
	}
	entryNode := mapping()
	addNode(entryNode, "kwargs", kwargs)
	addNode(entryNode, "metadata", md)
	if o.OutputInstance != "" {
		addScalar(entryNode, "output_instance", o.OutputInstance, "!!str")
	}
	addScalar(entryNode, "reader", o.Reader, "!!str")
	addNode(entryNode, "user_parameters", up)
	return dataTok, dataNode, entryNode, nil
}

// Decode parses an Intake v2 document. Entries are ordered by the aliases
// section; entries without an alias follow under their token. Entries of
// readers this package does not produce are kept as opaque entries.
func Decode(b []byte) (*Catalog, error) {
	c := New()
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return c, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, domain.ErrValidation("catalog document is not a mapping")
	}

	if v := yGet(root, "version"); v != nil {
		var version int
		if err := v.Decode(&version); err != nil {
			return nil, fmt.Errorf("parse catalog version: %w", err)
		}
		if version != FormatVersion {
			return nil, domain.ErrValidation("unsupported catalog version %d", version)
		}
	}
	if md := yGet(root, "metadata"); md != nil && md.Kind == yaml.MappingNode {
		if err := md.Decode(&c.Metadata); err != nil {
			return nil, fmt.Errorf("parse catalog metadata: %w", err)
		}
	}

	params := yGet(root, "user_parameters")
	for _, name := range yKeys(params) {
		p, err := decodeParameter(name, yGet(params, name))
		if err != nil {
			return nil, err
		}
		c.putParameter(p)
	}

	data := yGet(root, "data")
	entries := yGet(root, "entries")
	aliases := yGet(root, "aliases")
	seen := map[string]bool{}
	add := func(name, tok string) error {
		n := yGet(entries, tok)
		if n == nil {
			return domain.ErrValidation("alias %q refers to unknown entry %q", name, tok)
		}
		e, err := decodeEntry(name, n, data)
		if err != nil {
			return fmt.Errorf("parse entry %q: %w", name, err)
		}
		seen[tok] = true
		c.putEntry(e)
		return nil
	}
	for _, name := range yKeys(aliases) {
		if err := add(name, yGet(aliases, name).Value); err != nil {
			return nil, err
		}
	}
	for _, tok := range yKeys(entries) {
		if seen[tok] {
			continue
		}
		if err := add(tok, tok); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decodeParameter(name string, n *yaml.Node) (domain.Parameter, error) {
	var raw struct {
		Cls         string `yaml:"cls"`
		Default     any    `yaml:"default"`
		Description string `yaml:"description"`
		Options     []any  `yaml:"options"`
	}
	if err := n.Decode(&raw); err != nil {
		return domain.Parameter{}, fmt.Errorf("parse parameter %q: %w", name, err)
	}
	p := domain.Parameter{
		Name:        name,
		Kind:        domain.ParameterSimple,
		Description: raw.Description,
	}
	if raw.Default != nil {
		p.Default = fmt.Sprint(raw.Default)
	}
	if raw.Cls == ParamOptions {
		p.Kind = domain.ParameterOptions
		for _, o := range raw.Options {
			p.Allowed = append(p.Allowed, fmt.Sprint(o))
		}
	}
	return p, nil
}

type rawEntry struct {
	Reader         string         `yaml:"reader"`
	OutputInstance string         `yaml:"output_instance"`
	Kwargs         map[string]any `yaml:"kwargs"`
	Metadata       map[string]any `yaml:"metadata"`
	UserParameters map[string]any `yaml:"user_parameters"`
}

type rawData struct {
	Datatype string         `yaml:"datatype"`
	Kwargs   map[string]any `yaml:"kwargs"`
}

func decodeEntry(name string, n, data *yaml.Node) (*domain.Entry, error) {
	var re rawEntry
	if err := n.Decode(&re); err != nil {
		return nil, err
	}
	var rd rawData
	if ref, ok := re.Kwargs["data"].(string); ok {
		m := dataRefRe.FindStringSubmatch(ref)
		if m == nil {
			return nil, domain.ErrValidation("malformed data reference %q", ref)
		}
		dn := yGet(data, m[1])
		if dn == nil {
			return nil, domain.ErrValidation("data reference %q not found", m[1])
		}
		if err := dn.Decode(&rd); err != nil {
			return nil, err
		}
	}

	e := &domain.Entry{Name: name, Metadata: re.Metadata}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	kind, known := kindOf(re.Reader, rd.Datatype)
	locations := urls(rd.Kwargs["url"])
	if !known || len(locations) == 0 || len(re.UserParameters) > 0 {
		kw := domain.CloneMap(re.Kwargs)
		delete(kw, "data")
		e.Kind = domain.BackendOpaque
		e.Opaque = &domain.OpaqueReader{
			Reader:         re.Reader,
			OutputInstance: re.OutputInstance,
			Datatype:       rd.Datatype,
			Kwargs:         kw,
			DataKwargs:     rd.Kwargs,
			UserParameters: re.UserParameters,
		}
		return e, nil
	}

	e.Kind = kind
	e.Locations = locations
	if so, ok := rd.Kwargs["storage_options"].(map[string]any); ok {
		e.StorageOptions = domain.StorageOptions(domain.CloneMap(so))
	}
	if s, ok := re.Kwargs["chunks"]; ok {
		e.Options.Chunks = fmt.Sprint(s)
	}
	if zf, ok := re.Kwargs["zarr_format"].(int); ok {
		e.Options.ZarrFormat = zf
	}
	if eng, ok := re.Kwargs["engine"].(string); ok {
		e.Options.Engine = eng
	}
	return e, nil
}

func urls(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, u := range t {
			if s, ok := u.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func dataRef(tok string) string {
	return "{data(" + tok + ")}"
}

// === YAML node helpers ===

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(value, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func addScalar(m *yaml.Node, key, value, tag string) {
	addNode(m, key, scalar(value, tag))
}

func addNode(m *yaml.Node, key string, v *yaml.Node) {
	m.Content = append(m.Content, scalar(key, "!!str"), v)
}

// valueNode encodes an arbitrary value; mapping keys come out sorted.
func valueNode(v any) (*yaml.Node, error) {
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return mapping(), nil
	}
	if v == nil {
		return mapping(), nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func yGet(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(m.Content)-1; i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func yKeys(m *yaml.Node) []string {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var keys []string
	for i := 0; i < len(m.Content)-1; i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// nodeDigest flattens a node tree to a stable string for token derivation.
func nodeDigest(n *yaml.Node) string {
	var buf bytes.Buffer
	var walk func(*yaml.Node)
	walk = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.MappingNode:
			type kv struct{ k, v *yaml.Node }
			pairs := make([]kv, 0, len(n.Content)/2)
			for i := 0; i < len(n.Content)-1; i += 2 {
				pairs = append(pairs, kv{n.Content[i], n.Content[i+1]})
			}
			sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].k.Value < pairs[j].k.Value })
			buf.WriteByte('{')
			for _, p := range pairs {
				buf.WriteString(p.k.Value)
				buf.WriteByte(':')
				walk(p.v)
				buf.WriteByte(',')
			}
			buf.WriteByte('}')
		case yaml.SequenceNode:
			buf.WriteByte('[')
			for _, c := range n.Content {
				walk(c)
				buf.WriteByte(',')
			}
			buf.WriteByte(']')
		case yaml.AliasNode:
			if n.Alias != nil {
				walk(n.Alias)
			}
		default:
			fmt.Fprintf(&buf, "%q", n.Value)
		}
	}
	walk(n)
	return buf.String()
}
