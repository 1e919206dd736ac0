package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/convert"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/dataset"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/legacy"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/storage"
)

func newConvertCmd(s *settings) *cobra.Command {
	var (
		out    string
		chunks string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "convert INPUT...",
		Short: "Convert legacy catalogs and array stores into an Intake v2 catalog",
		Long: `Each INPUT is a legacy catalog document, an array store location or a
reference:: index URI, optionally prefixed with "name=" to choose the entry
name. Entries are added to the output catalog, which is extended when it
exists. A failing input is reported and the remaining inputs continue;
with --strict the first failure aborts the run and nothing is written.`,
		Example: `  # Convert a legacy catalog
  forge convert /pool/data/catalogs/main.yaml -o intake2.yaml

  # Add a named zarr store and a reference index
  forge convert era5=s3://bucket/era5.zarr reference::/refs/icon.parq

  # Fail on the first bad input
  forge convert --strict cat1.yaml cat2.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") {
				out = s.out
			}
			if !cmd.Flags().Changed("chunks") {
				chunks = s.cfg.Chunks
			}

			store := storage.NewRouter(s.cfg.Storage)
			registry := dataset.NewDefaultRegistry(store, s.cfg.Storage, s.logger)
			defer registry.Close() //nolint:errcheck
			if err := registry.Require(domain.BackendChunkedArray, domain.BackendGriddedFile, domain.BackendTabularReference); err != nil {
				return err
			}

			conv, err := convert.NewConverter(store, legacy.NewOpener(store), registry,
				convert.Options{Chunks: chunks}, s.logger)
			if err != nil {
				return err
			}

			report, runErr := conv.Run(cmd.Context(), args, out, strict)
			if runErr == nil {
				if failed := report.Failed(); len(failed) > 0 {
					runErr = fmt.Errorf("%d of %d inputs failed", len(failed), len(report.Inputs))
				}
			}
			if report == nil {
				return runErr
			}
			if err := printReport(cmd.OutOrStdout(), s.format, report, runErr); err != nil {
				return err
			}
			if runErr != nil && s.format == "json" {
				return &reportedError{err: runErr}
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output catalog path (default from FORGE_OUTPUT, profile or intake2.yaml)")
	cmd.Flags().StringVar(&chunks, "chunks", "", `Chunking strategy recorded on array entries (default "auto")`)
	cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first failing input without writing")

	return cmd
}

type reportJSON struct {
	Output   string      `json:"output"`
	Appended bool        `json:"appended"`
	Written  bool        `json:"written"`
	Total    int         `json:"total_entries"`
	Inputs   []inputJSON `json:"inputs"`
	Error    string      `json:"error,omitempty"`
}

// reportedError is a run failure already carried by the printed report.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

type inputJSON struct {
	Input   string   `json:"input"`
	Kind    string   `json:"kind"`
	Legacy  bool     `json:"legacy"`
	Entries []string `json:"entries"`
	Error   string   `json:"error,omitempty"`
}

// printReport writes the run summary as a table or JSON. A non-nil runErr
// becomes the error field of the JSON document.
func printReport(w io.Writer, format string, r *convert.Report, runErr error) error {
	if format == "json" {
		out := reportJSON{
			Output:   r.Output,
			Appended: r.Appended,
			Written:  r.Written,
			Total:    r.Total,
			Inputs:   make([]inputJSON, 0, len(r.Inputs)),
		}
		for _, in := range r.Inputs {
			ij := inputJSON{Input: in.Input, Kind: string(in.Kind), Legacy: in.Legacy, Entries: in.Entries}
			if ij.Entries == nil {
				ij.Entries = []string{}
			}
			if in.Err != nil {
				ij.Error = in.Err.Error()
			}
			out.Inputs = append(out.Inputs, ij)
		}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		return printJSON(w, out)
	}

	color := colorEnabled(w)
	rows := make([][]string, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		kind := string(in.Kind)
		if in.Legacy {
			kind = "legacy"
		}
		status := colorize(color, ansiGreen, "ok")
		if in.Err != nil {
			status = colorize(color, ansiRed, "failed: "+in.Err.Error())
		}
		rows = append(rows, []string{in.Input, kind, strconv.Itoa(len(in.Entries)), status})
	}
	printTable(w, []string{"input", "kind", "entries", "status"}, rows)

	if !r.Written {
		_, _ = fmt.Fprintf(w, "\n%s not written\n", r.Output)
		return nil
	}
	verb := "created"
	if r.Appended {
		verb = "appended to"
	}
	summary := fmt.Sprintf("%s %s: %d entries", verb, r.Output, r.Total)
	if n := len(r.Failed()); n > 0 {
		summary += fmt.Sprintf(", %d failed %s", n, plural(n, "input", "inputs"))
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", summary)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// joinOrDash joins items or returns "-" when there are none.
func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
