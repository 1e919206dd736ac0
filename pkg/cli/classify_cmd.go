package cli

import (
	"github.com/spf13/cobra"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/convert"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

type classification struct {
	Input string `json:"input"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

func newClassifyCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "classify INPUT...",
		Short: "Show how inputs would be interpreted by convert",
		Long: `Prints, for every INPUT, the entry name convert would use and whether the
input is a reference:: index URI, an existing path or invalid. No catalog
is read or written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := storage.NewRouter(s.cfg.Storage)
			results := make([]classification, 0, len(args))
			for _, in := range args {
				_, path := convert.ParseInputName(in)
				kind, err := convert.Classify(cmd.Context(), store, path)
				c := classification{Input: in, Name: convert.EntryName(in), Path: path, Kind: string(kind)}
				if err != nil {
					c.Error = err.Error()
				}
				results = append(results, c)
			}

			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			rows := make([][]string, 0, len(results))
			for _, c := range results {
				rows = append(rows, []string{c.Input, c.Name, c.Kind})
			}
			printTable(cmd.OutOrStdout(), []string{"input", "name", "kind"}, rows)
			return nil
		},
	}
}
