package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/corpus"
	"github.com/example/go-sentiprep/internal/text"
)

func newNormalizeCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "normalize [--text TEXT]",
		Short: "Normalize tweets from --text or stdin, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			opts := []text.Option{
				text.WithStopwords(cfg.Preprocess.RemoveStopwords),
				text.WithStemming(cfg.Preprocess.StemWords),
			}

			var lines []string
			if cmd.Flags().Changed("text") {
				lines = []string{input}
			} else {
				if lines, err = readStdinLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, l := range text.NormalizeAll(lines, opts...) {
				if _, err := fmt.Fprintln(out, l); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Single tweet to normalize")

	return cmd
}

func readStdinLines(r io.Reader) ([]string, error) {
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return nil, fmt.Errorf("no input: pass --text or pipe tweets on stdin")
		}
	}
	return corpus.ReadLines(r)
}
