// Package convert is the catalog migration engine. It classifies inputs,
// walks legacy catalog documents and adds entries to an output catalog
// through the entry handlers, harvesting dataset metadata on the way.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/catalog"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/legacy"
)

// LegacyOpener loads legacy catalog documents.
type LegacyOpener interface {
	Open(ctx context.Context, location string) (*legacy.Document, error)
}

// Options configures a Converter.
type Options struct {
	Chunks string // chunking strategy of array entries; DefaultChunks when empty
}

// Converter runs conversions. The collaborators are capability interfaces;
// all three are required.
type Converter struct {
	store    domain.ObjectStore
	docs     LegacyOpener
	datasets domain.DatasetOpener
	chunks   string
	logger   *slog.Logger
}

// NewConverter creates a Converter. A missing collaborator is a
// configuration error.
func NewConverter(store domain.ObjectStore, docs LegacyOpener, datasets domain.DatasetOpener, opts Options, logger *slog.Logger) (*Converter, error) {
	switch {
	case store == nil:
		return nil, errors.New("converter: object store is required")
	case docs == nil:
		return nil, errors.New("converter: legacy catalog opener is required")
	case datasets == nil:
		return nil, errors.New("converter: dataset opener is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	chunks := opts.Chunks
	if chunks == "" {
		chunks = domain.DefaultChunks
	}
	return &Converter{
		store:    store,
		docs:     docs,
		datasets: datasets,
		chunks:   chunks,
		logger:   logger.With("component", "convert"),
	}, nil
}

// InputResult is the outcome of converting one input.
type InputResult struct {
	Input   string
	Kind    InputKind
	Legacy  bool     // the input was a legacy catalog document
	Entries []string // names added or replaced, in order
	Err     error
}

// Report summarizes a conversion run.
type Report struct {
	Output   string
	Appended bool // the output existed and was extended
	Inputs   []InputResult
	Total    int // entries in the written catalog
	Written  bool
}

// Failed returns the results of inputs that failed.
func (r *Report) Failed() []InputResult {
	var out []InputResult
	for _, in := range r.Inputs {
		if in.Err != nil {
			out = append(out, in)
		}
	}
	return out
}

// Err joins the errors of all failed inputs.
func (r *Report) Err() error {
	var errs []error
	for _, in := range r.Failed() {
		errs = append(errs, fmt.Errorf("input %q: %w", in.Input, in.Err))
	}
	return errors.Join(errs...)
}

// Run converts inputs into the catalog at output, extending it when it
// exists. A failing input is recorded and the remaining inputs continue;
// with strict set, the first failure aborts the run and nothing is
// written. Errors loading or saving the output are returned.
func (c *Converter) Run(ctx context.Context, inputs []string, output string, strict bool) (*Report, error) {
	cat, exists, err := catalog.Load(output)
	if err != nil {
		return nil, err
	}
	if exists {
		c.logger.Info("appending to existing catalog", "output", output, "entries", cat.Len())
	} else {
		c.logger.Info("creating new catalog", "output", output)
	}

	b := catalog.NewBuilder(cat)
	report := &Report{Output: output, Appended: exists}
	for _, in := range inputs {
		res := c.ConvertInput(ctx, b, in)
		report.Inputs = append(report.Inputs, res)
		if res.Err != nil && strict {
			return report, fmt.Errorf("input %q: %w", in, res.Err)
		}
	}

	c.logger.Info("writing catalog", "output", output, "entries", b.Catalog().Len())
	if err := catalog.Save(output, b.Catalog()); err != nil {
		return report, err
	}
	report.Total = b.Catalog().Len()
	report.Written = true
	return report, nil
}

// ConvertInput converts one input into b. A failing input leaves b as it
// was before the call.
func (c *Converter) ConvertInput(ctx context.Context, b *catalog.Builder, input string) InputResult {
	log := c.logger.With("input", input)
	log.Info("processing input")

	r := &run{Converter: c, b: b, logger: c.logger}
	res := InputResult{Input: input}
	snap := b.Snapshot()

	err := r.convert(ctx, input, &res)
	if err != nil {
		b.Restore(snap)
		r.added = nil
		log.Error("input failed", "error", err)
	}
	res.Entries = r.added
	res.Err = err
	return res
}

// run carries the state of converting one input.
type run struct {
	*Converter
	b      *catalog.Builder
	logger *slog.Logger
	added  []string
}

func (r *run) convert(ctx context.Context, input string, res *InputResult) error {
	name, path := ParseInputName(input)

	kind, err := Classify(ctx, r.store, path)
	res.Kind = kind
	if kind == InputInvalid {
		if err != nil {
			r.logger.Debug("existence check failed", "input", input, "error", err)
		}
		return domain.ErrInvalidInput(input)
	}

	if kind == InputPath {
		doc, err := r.docs.Open(ctx, path)
		switch {
		case err == nil:
			res.Legacy = true
			if name != "" {
				r.logger.Info("explicit name ignored for legacy catalog", "input", input, "name", name)
			}
			return r.convertLegacy(ctx, doc)
		case errors.Is(err, legacy.ErrNotCatalog):
			r.logger.Debug("not a legacy catalog, treating as array store", "input", input)
		default:
			r.logger.Debug("could not read input as legacy catalog, treating as array store", "input", input, "error", err)
		}
	}

	if name == "" {
		name = EntryName(path)
	}
	r.logger = r.logger.With("input", input)
	return r.addArrayStore(ctx, arrayRequest{
		Name:      name,
		Kind:      domain.BackendChunkedArray,
		Locations: []string{path},
	})
}
