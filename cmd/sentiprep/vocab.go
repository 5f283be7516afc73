package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/errdefs"
	"github.com/example/go-sentiprep/internal/store"
)

func newVocabCmd() *cobra.Command {
	var (
		top   int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List the stored vocabulary of the latest prepare run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.Output.VocabDB); err != nil {
				return fmt.Errorf("%w: vocabulary store: %w", errdefs.ErrResource, err)
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg.Output.VocabDB)
			if err != nil {
				return err
			}
			defer st.Close()

			if runID == "" {
				run, err := st.LatestRun(ctx, cfg.Model.ModelName)
				if err != nil {
					return err
				}
				runID = run.RunID
			}

			entries, err := st.Entries(ctx, runID, top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s\n", runID)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "ID\tCOUNT\tTOKEN\t")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%d\t%s\t\n", e.ID, e.Count, e.Token)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&top, "top", 20, "Number of entries to list (0 = all)")
	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run for --model-name)")

	return cmd
}
