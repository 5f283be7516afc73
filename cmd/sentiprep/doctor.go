package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/go-sentiprep/internal/config"
	"github.com/example/go-sentiprep/internal/doctor"
	"github.com/example/go-sentiprep/internal/learner"
	"github.com/example/go-sentiprep/internal/onnx"
)

func newDoctorCmd() *cobra.Command {
	var skipRuntime bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local input, runtime and bundle checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			result := doctor.Run(doctorConfig(cfg, skipRuntime), stdout)

			if err := cfg.Validate(); err != nil {
				result.AddFailure(fmt.Sprintf("config: %v", err))
				_, _ = fmt.Fprintf(stdout, "%s config: %v\n", doctor.FailMark, err)
			} else {
				_, _ = fmt.Fprintf(stdout, "%s config: ok\n", doctor.PassMark)
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipRuntime, "skip-runtime", false, "Skip ONNX Runtime and classifier model checks")

	return cmd
}

func doctorConfig(cfg config.Config, skipRuntime bool) doctor.Config {
	dcfg := doctor.Config{
		InputFiles: []string{
			cfg.Data.TrainDataFilePos,
			cfg.Data.TrainDataFileNeg,
			cfg.Data.TestDataFile,
		},
		EmbeddingPath:  cfg.Data.EmbeddingDir,
		EmbeddingDim:   cfg.Preprocess.EmbeddingDim,
		APIVersion:     cfg.Runtime.ORTAPIVersion,
		BundlePath:     filepath.Join(cfg.Output.Dir, cfg.Model.ModelName+".safetensors"),
		BundleTensors:  learner.BundleTensors,
		DescribeBundle: learner.Describe,
	}

	if !skipRuntime {
		dcfg.Runtime = func() (string, string, error) {
			info, err := onnx.DetectRuntime(cfg.Runtime)
			if err != nil {
				return "", "", err
			}
			if info.Version == "unknown" {
				info.Version = ""
			}
			return info.LibraryPath, info.Version, nil
		}
		dcfg.ModelPath = cfg.Model.ModelPath
	}

	return dcfg
}
