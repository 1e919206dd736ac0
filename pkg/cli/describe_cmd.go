package cli

import (
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/catalog"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/dataset"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

type entryDescription struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Locations  []string       `json:"locations"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Variables  []string       `json:"variables,omitempty"`
	SizeBytes  int64          `json:"size_bytes,omitempty"`
	OpenError  string         `json:"open_error,omitempty"`
}

func newDescribeCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "describe CATALOG ENTRY",
		Short: "Describe an entry of a converted catalog",
		Long: `Loads an Intake v2 catalog written by convert, prints the descriptor of
ENTRY and opens the dataset behind it to report its attributes, variables
and size. Catalog parameters in locations are replaced by their defaults.`,
		Example: `  forge describe intake2.yaml atmos
  forge describe intake2.yaml atmos --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, exists, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			if !exists {
				return domain.ErrNotFound("catalog %s not found", args[0])
			}
			e, ok := cat.Entry(args[1])
			if !ok {
				return domain.ErrNotFound("entry %q not found in %s", args[1], args[0])
			}

			desc := entryDescription{
				Name:      e.Name,
				Kind:      string(e.Kind),
				Locations: e.Locations,
				Metadata:  e.Metadata,
			}

			expanded := *e
			expanded.Locations = make([]string, len(e.Locations))
			for i, l := range e.Locations {
				expanded.Locations[i] = cat.Expand(l)
			}
			store := storage.NewRouter(s.cfg.Storage)
			registry := dataset.NewDefaultRegistry(store, s.cfg.Storage, s.logger)
			defer registry.Close() //nolint:errcheck

			ds, err := registry.Open(cmd.Context(), &expanded)
			if err != nil {
				s.logger.Debug("could not open dataset", "entry", e.Name, "error", err)
				desc.OpenError = err.Error()
			} else {
				desc.Attributes = ds.Attrs
				desc.Variables = ds.Variables
				desc.SizeBytes = ds.SizeBytes
			}

			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), desc)
			}
			printDescription(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func printDescription(w io.Writer, d entryDescription) {
	rows := [][]string{
		{"name", d.Name},
		{"kind", d.Kind},
		{"locations", joinOrDash(d.Locations)},
		{"metadata", joinOrDash(sortedKeys(d.Metadata))},
	}
	if d.OpenError != "" {
		rows = append(rows, []string{"dataset", "unavailable: " + d.OpenError})
	} else {
		rows = append(rows,
			[]string{"attributes", joinOrDash(sortedKeys(d.Attributes))},
			[]string{"variables", joinOrDash(d.Variables)},
			[]string{"size", strconv.FormatInt(d.SizeBytes, 10) + " bytes"},
		)
	}
	printTable(w, []string{"field", "value"}, rows)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
