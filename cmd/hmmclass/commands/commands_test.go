package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unixpickle/hmm/v2/internal/config"
)

const testConfig = `
classes: 2
states: 2
emission:
  kind: categorical
  symbols: 3
seed: 1
`

func setupTestEnv(t *testing.T) (cfgPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "train.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	dataPath = filepath.Join(dir, "data.msgpack")
	err := config.SaveDataset(dataPath, &config.Dataset{Samples: []config.Sample{
		{Label: 0, Values: []float64{0, 0, 0, 0}},
		{Label: 0, Values: []float64{0, 0, 0}},
		{Label: 1, Values: []float64{2, 2, 2}},
		{Label: 1, Values: []float64{2, 2, 2, 2}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	storeDir = filepath.Join(dir, "store")
	return cfgPath, dataPath
}

func runCmd(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()

	verbose = false
	modelName = "default"
	classifyPosteriors = false
	classifyParallelism = 0
	decodeClass = 0
	predictClass = 0
	predictHorizon = 1
	trainConfigFile = ""
	trainDataFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--store", storeDir))
	err = rootCmd.Execute()
	return out.String(), err
}

func TestTrainAndClassify(t *testing.T) {
	cfgPath, dataPath := setupTestEnv(t)

	stdout, err := runCmd(t, "train", "-c", cfgPath, "-d", dataPath, "--name", "symbols")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, `saved "symbols": 2 classes, 4 samples`) {
		t.Fatalf("unexpected train output: %s", stdout)
	}

	stdout, err = runCmd(t, "models")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != "symbols" {
		t.Fatalf("models = %q, want %q", stdout, "symbols")
	}

	stdout, err = runCmd(t, "classify", "--name", "symbols", "-p", "0 0 0", "2,2")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got: %s", stdout)
	}
	if !strings.HasPrefix(lines[0], "0\t") || !strings.HasSuffix(lines[0], "1.0000 0.0000") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1\t") || !strings.HasSuffix(lines[1], "0.0000 1.0000") {
		t.Errorf("line 1 = %q", lines[1])
	}

	if _, err := runCmd(t, "classify", "--name", "symbols", "0,1;2,0"); err == nil {
		t.Error("expected a dimension error for vector observations")
	}
	if _, err := runCmd(t, "classify", "--name", "missing", "0"); err == nil {
		t.Error("expected an error for a missing classifier")
	}
}

func TestDecodePredict(t *testing.T) {
	cfgPath, dataPath := setupTestEnv(t)
	if _, err := runCmd(t, "train", "-c", cfgPath, "-d", dataPath); err != nil {
		t.Fatal(err)
	}

	stdout, err := runCmd(t, "decode", "--class", "1", "2 2 2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "[") {
		t.Errorf("unexpected decode output: %s", stdout)
	}
	if _, err := runCmd(t, "decode", "--class", "0", "2 2 2"); err == nil {
		t.Error("expected an error for an impossible sequence")
	}
	if _, err := runCmd(t, "decode", "--class", "5", "2"); err == nil {
		t.Error("expected an error for an invalid class")
	}

	stdout, err = runCmd(t, "predict", "--class", "1", "--horizon", "2", "2 2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "1\t[2]\n2\t[2]\n") {
		t.Errorf("unexpected predict output: %s", stdout)
	}
}

func TestModelsDelete(t *testing.T) {
	cfgPath, dataPath := setupTestEnv(t)
	for _, name := range []string{"a", "b"} {
		if _, err := runCmd(t, "train", "-c", cfgPath, "-d", dataPath, "--name", name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := runCmd(t, "models", "delete", "a"); err != nil {
		t.Fatal(err)
	}
	stdout, err := runCmd(t, "models")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != "b" {
		t.Fatalf("models = %q, want %q", stdout, "b")
	}
}

func TestTrainRequiresFiles(t *testing.T) {
	setupTestEnv(t)
	if _, err := runCmd(t, "train"); err == nil {
		t.Fatal("expected an error without --config and --data")
	}
}
