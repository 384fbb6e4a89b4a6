package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yt605155624/Parakeet/pkg/audio/wav"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		if s, ok := f.Value.(pflag.SliceValue); ok {
			s.Replace(nil)
			return
		}
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// smallModel shrinks the encoder so tests run quickly.
var smallModel = []string{"model.num_layers", "2", "model.hidden_size", "8", "model.embedding_size", "6"}

func writeTone(t *testing.T, path string, seconds, freq float64) {
	t.Helper()
	const rate = 16000
	samples := make([]float32, int(seconds*rate))
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := wav.WriteFile(path, samples, rate); err != nil {
		t.Fatal(err)
	}
}

// fixture writes a two-speaker corpus and a small random checkpoint.
func fixture(t *testing.T) (in, ckpt string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "corpus")
	writeTone(t, filepath.Join(in, "spk1", "a.wav"), 1, 220)
	writeTone(t, filepath.Join(in, "spk1", "b.wav"), 1.2, 230)
	writeTone(t, filepath.Join(in, "spk2", "c.wav"), 1, 880)

	ckpt = filepath.Join(dir, "model.msgpack")
	args := append([]string{"checkpoint", "init", ckpt, "--seed", "3"}, smallModel...)
	if _, stderr, code := runCmd(t, args...); code != 0 {
		t.Fatalf("checkpoint init: %s", stderr)
	}
	return in, ckpt
}

// toneModel is the shape of toneCheckpoint.
var toneModel = []string{"model.num_layers", "1", "model.hidden_size", "2", "model.embedding_size", "2"}

// toneCheckpoint writes a one-layer encoder whose two hidden units
// integrate the energy below and above mel bin 7. Low tones embed as
// (1, 0) and high tones as (0, 1).
func toneCheckpoint(t *testing.T, path string) {
	t.Helper()
	const (
		h     = 2
		nMels = 40
	)
	wih := make([]float32, 4*h*nMels)
	cell := wih[2*h*nMels:]
	for m := 0; m < nMels; m++ {
		var v float32
		switch {
		case m < 7:
			v = 1
		case m > 7 && m <= 20:
			v = -1
		}
		cell[m] = v
		cell[nMels+m] = -v
	}
	bias := []float32{10, 10, 10, 10, 0, 0, 10, 10}

	ck := voiceprint.NewCheckpoint()
	ck.Set("lstm.weight_ih_l0", []int{4 * h, nMels}, wih)
	ck.Set("lstm.weight_hh_l0", []int{4 * h, h}, make([]float32, 4*h*h))
	ck.Set("lstm.bias_ih_l0", []int{4 * h}, bias)
	ck.Set("lstm.bias_hh_l0", []int{4 * h}, make([]float32, 4*h))
	ck.Set("linear.weight", []int{h, 2}, []float32{1, 0, 0, 1})
	ck.Set("linear.bias", []int{2}, make([]float32, 2))
	if err := ck.Save(path); err != nil {
		t.Fatal(err)
	}
}

func decodeTables(t *testing.T, data string) [][]map[string]string {
	t.Helper()
	var tables [][]map[string]string
	dec := json.NewDecoder(strings.NewReader(data))
	for {
		var recs []map[string]string
		err := dec.Decode(&recs)
		if errors.Is(err, io.EOF) {
			return tables
		}
		if err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		tables = append(tables, recs)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "ge2e") {
		t.Fatalf("expected 'ge2e', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, code := runCmd(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) || !strings.Contains(stdout, `"onnx"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestConfigShow(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(conf, []byte("data:\n  n_mels: 64\n  sampling_rate: 22050\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"defaults", nil, []string{"n_mels: 40", "hidden_size: 256", "learning_rate_warmup_steps: 4000"}},
		{"file", []string{"--config", conf}, []string{"n_mels: 64", "sampling_rate: 22050"}},
		{"opts", []string{"--config", conf, "--opts", "data.n_mels=80"}, []string{"n_mels: 80", "sampling_rate: 22050"}},
		{"positional wins", []string{"--opts", "data.n_mels=80", "data.n_mels", "20"}, []string{"n_mels: 20"}},
		{"json", []string{"--format", "json", "model.hidden_size", "128"}, []string{`"hidden_size": 128`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := runCmd(t, append([]string{"config", "show"}, tt.args...)...)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, stderr)
			}
			for _, w := range tt.want {
				if !strings.Contains(stdout, w) {
					t.Errorf("missing %q in:\n%s", w, stdout)
				}
			}
		})
	}
}

func TestConfigShowErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown key", []string{"data.n_melz", "3"}, "unknown config key"},
		{"odd pairs", []string{"data.n_mels"}, "KEY VALUE"},
		{"bad opts", []string{"--opts", "data.n_mels"}, "KEY=VALUE"},
		{"invalid value", []string{"data.partial_overlap_ratio", "1.5"}, "partial_overlap_ratio"},
		{"table format", []string{"--format", "table"}, "yaml and json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCmd(t, append([]string{"config", "show"}, tt.args...)...)
			if code == 0 {
				t.Fatal("expected failure")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q does not contain %q", stderr, tt.want)
			}
		})
	}
}

func TestCheckpointInspect(t *testing.T) {
	_, ckpt := fixture(t)
	stdout, stderr, code := runCmd(t, "checkpoint", "inspect", strings.TrimSuffix(ckpt, ".msgpack"))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"linear.weight", "[8, 6]", "lstm.weight_ih_l0", "[32, 40]", "total"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("missing %q in:\n%s", want, stdout)
		}
	}
}

func TestEmbedEndToEnd(t *testing.T) {
	in, _ := fixture(t)
	ckpt := filepath.Join(t.TempDir(), "tones.msgpack")
	toneCheckpoint(t, ckpt)
	out := filepath.Join(t.TempDir(), "embeds")
	index := filepath.Join(t.TempDir(), "index")

	args := append([]string{"embed",
		"--input", in,
		"--output", out,
		"--checkpoint_path", ckpt,
		"--index", index,
	}, toneModel...)
	stdout, stderr, code := runCmd(t, args...)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"========Config========", "n_mels: 40", "========Args========", "*.wav", "device: cpu"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "3 utterances in total") {
		t.Errorf("stderr missing count:\n%s", stderr)
	}
	for _, p := range []string{"spk1/a.npy", "spk1/b.npy", "spk2/c.npy"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(p))); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	t.Run("similarity", func(t *testing.T) {
		stdout, stderr, code := runCmd(t, "similarity", out)
		if code != 0 {
			t.Fatalf("exit %d: %s", code, stderr)
		}
		for _, want := range []string{"spk1/a", "spk2/c", "per speaker", "INTRA", "INTER"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("missing %q in:\n%s", want, stdout)
			}
		}
	})

	t.Run("similarity separates speakers", func(t *testing.T) {
		stdout, stderr, code := runCmd(t, "similarity", out, "--format", "json")
		if code != 0 {
			t.Fatalf("exit %d: %s", code, stderr)
		}
		tables := decodeTables(t, stdout)
		if len(tables) != 2 {
			t.Fatalf("got %d tables, want 2:\n%s", len(tables), stdout)
		}
		matrix := tables[0]
		if len(matrix) != 3 || matrix[0]["embedding"] != "spk1/a" || matrix[2]["embedding"] != "spk2/c" {
			t.Fatalf("matrix = %v", matrix)
		}
		if got := matrix[0]["1"]; got != "1.000" {
			t.Errorf("spk1/a vs spk1/b = %s, want 1.000", got)
		}
		if got := matrix[0]["2"]; got != "0.000" {
			t.Errorf("spk1/a vs spk2/c = %s, want 0.000", got)
		}

		want := []map[string]string{
			{"speaker": "spk1", "utterances": "2", "intra": "1.000", "inter": "0.000"},
			{"speaker": "spk2", "utterances": "1", "intra": "-", "inter": "0.000"},
		}
		speakers := tables[1]
		if len(speakers) != len(want) {
			t.Fatalf("speakers = %v", speakers)
		}
		for i, w := range want {
			for k, v := range w {
				if speakers[i][k] != v {
					t.Errorf("speakers[%d][%s] = %q, want %q", i, k, speakers[i][k], v)
				}
			}
		}
	})

	t.Run("search", func(t *testing.T) {
		query := filepath.Join(out, "spk2", "c.npy")
		stdout, stderr, code := runCmd(t, "search", query, out, "--top-k", "2")
		if code != 0 {
			t.Fatalf("exit %d: %s", code, stderr)
		}
		if !strings.Contains(stdout, "2 nearest of 3") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
		lines := strings.Split(stdout, "\n")
		found := false
		for _, l := range lines {
			if strings.Contains(l, "spk2/c") && strings.Contains(l, "1.0000") {
				found = true
			}
		}
		if !found {
			t.Errorf("query itself not ranked with similarity 1:\n%s", stdout)
		}
	})

	t.Run("cluster", func(t *testing.T) {
		stdout, stderr, code := runCmd(t, "cluster", out, "--threshold", "0.99", "--min-samples", "1")
		if code != 0 {
			t.Fatalf("exit %d: %s", code, stderr)
		}
		for _, want := range []string{"speaker:001", "speaker:002", "spk1/a", "spk2/c"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("missing %q in:\n%s", want, stdout)
			}
		}
	})

	t.Run("index", func(t *testing.T) {
		stdout, stderr, code := runCmd(t, "index", index)
		if code != 0 {
			t.Fatalf("exit %d: %s", code, stderr)
		}
		for _, want := range []string{"3 records", "spk1/a.wav", "spk2/c.npy"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("missing %q in:\n%s", want, stdout)
			}
		}
	})
}

func TestEmbedErrors(t *testing.T) {
	in, ckpt := fixture(t)
	out := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing flags", []string{"--input", in}, "required flag"},
		{"bad device", []string{"--input", in, "--output", out, "--checkpoint_path", ckpt, "--device", "tpu"}, "tpu"},
		{"gpu needs onnx", []string{"--input", in, "--output", out, "--checkpoint_path", ckpt, "--device", "gpu"}, "gpu"},
		{"no checkpoint", []string{"--input", in, "--output", out, "--checkpoint_path", filepath.Join(out, "none")}, "none"},
		{"shape mismatch", []string{"--input", in, "--output", out, "--checkpoint_path", ckpt}, ckpt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCmd(t, append([]string{"embed"}, tt.args...)...)
			if code == 0 {
				t.Fatal("expected failure")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q does not contain %q", stderr, tt.want)
			}
		})
	}
}

func TestSimilarityEmptyDir(t *testing.T) {
	_, stderr, code := runCmd(t, "similarity", t.TempDir())
	if code == 0 || !strings.Contains(stderr, "no .npy embeddings") {
		t.Fatalf("code %d, stderr %q", code, stderr)
	}
}
