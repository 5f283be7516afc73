package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-sentiprep/internal/doctor"
)

func TestDoctorCmd_SkipRuntimePasses(t *testing.T) {
	_, args := fixtureArgs(t)

	out, err := execute(t, append([]string{"doctor", "--skip-runtime"}, args...)...)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}

	for _, want := range []string{"embedding index", "dim 2", "not written yet", "doctor checks passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDoctorCmd_ChecksBundleAfterPrepare(t *testing.T) {
	_, args := fixtureArgs(t)

	if _, err := execute(t, append([]string{"prepare"}, args...)...); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out, err := execute(t, append([]string{"doctor", "--skip-runtime"}, args...)...)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	if !strings.Contains(out, "x_train[5 5]") {
		t.Errorf("output should list bundle shapes:\n%s", out)
	}
}

func TestDoctorCmd_MissingInputFails(t *testing.T) {
	_, args := fixtureArgs(t)
	args = append(args, "--train-data-file-pos="+filepath.Join(t.TempDir(), "missing.txt"))

	out, err := execute(t, append([]string{"doctor", "--skip-runtime"}, args...)...)
	if err == nil {
		t.Fatalf("expected doctor to fail:\n%s", out)
	}
	if !strings.Contains(out, doctor.FailMark) {
		t.Errorf("output should contain a fail marker:\n%s", out)
	}
}

func TestDoctorConfig(t *testing.T) {
	c, _ := fixtureArgs(t)
	cfg := configFor(c)

	dcfg := doctorConfig(cfg, false)
	if len(dcfg.InputFiles) != 3 || dcfg.EmbeddingDim != 2 {
		t.Errorf("doctorConfig = %+v", dcfg)
	}
	if dcfg.Runtime == nil || dcfg.ModelPath != cfg.Model.ModelPath {
		t.Error("runtime checks should be configured")
	}
	if dcfg.BundlePath != filepath.Join(cfg.Output.Dir, "lstm.safetensors") {
		t.Errorf("BundlePath = %q", dcfg.BundlePath)
	}

	if skipped := doctorConfig(cfg, true); skipped.Runtime != nil || skipped.ModelPath != "" {
		t.Error("--skip-runtime should drop runtime and model checks")
	}
}
