package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/inference"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

// embedArgs mirrors the embed flags. It is printed before the run.
type embedArgs struct {
	Config         string   `yaml:"config"`
	Input          string   `yaml:"input"`
	Pattern        string   `yaml:"pattern"`
	Output         string   `yaml:"output"`
	CheckpointPath string   `yaml:"checkpoint_path"`
	Device         string   `yaml:"device"`
	Opts           []string `yaml:"opts"`
	Index          string   `yaml:"index,omitempty"`
}

var (
	embedCfg   configFlags
	embedInput string
	embedPat   string
	embedOut   string
	embedCkpt  string
	embedDev   string
	embedIndex string
)

var embedCmd = &cobra.Command{
	Use:   "embed [KEY VALUE]...",
	Short: "Embed every matching audio file under a directory",
	Long: `Embed every file under --input whose trailing path segments match
--pattern and write one .npy embedding per file at the mirrored path under
--output (a directory or s3://bucket/prefix).

The checkpoint path may name a .msgpack/.mpk checkpoint (native CPU
encoder) or an .onnx graph (ONNX Runtime, cpu or gpu). Without an
extension, <path>.msgpack and then <path>.onnx are tried.

Positional KEY VALUE pairs override configuration keys after --opts.

Examples:
  ge2e embed --input corpus/ --output embeds/ --checkpoint_path exp/step-3000000
  ge2e embed --input in/ --pattern '*.flac' --output s3://bucket/run1 \
    --checkpoint_path model.onnx --device gpu
  ge2e embed --input in/ --output out/ --checkpoint_path m.msgpack \
    --index out.index data.partial_overlap_ratio 0.25`,
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := embedCfg.build(args)
	if err != nil {
		return err
	}
	device, err := voiceprint.ParseDevice(embedDev)
	if err != nil {
		return err
	}

	fmt.Println("========Config========")
	fmt.Print(cfg.String())
	fmt.Println("========Args========")
	printed := embedArgs{
		Config:         embedCfg.file,
		Input:          embedInput,
		Pattern:        embedPat,
		Output:         embedOut,
		CheckpointPath: embedCkpt,
		Device:         string(device),
		Opts:           append(append([]string{}, embedCfg.opts...), args...),
		Index:          embedIndex,
	}
	if err := cli.Output(printed, cli.OutputOptions{Format: cli.FormatYAML}); err != nil {
		return err
	}

	enc, err := voiceprint.LoadEncoder(cfg, embedCkpt, device)
	if err != nil {
		return err
	}
	defer enc.Close()

	pre, err := voiceprint.NewPreprocessor(cfg.Data)
	if err != nil {
		return err
	}

	runner := &inference.Runner{
		Preprocessor: pre,
		Encoder:      enc,
		Progress:     progressWriter(),
	}
	if embedIndex != "" {
		ix, err := inference.OpenIndex(cli.ExpandUser(embedIndex), cfg.Model.EmbeddingSize)
		if err != nil {
			return err
		}
		defer ix.Close()
		runner.Index = ix
	}

	sum, err := runner.Run(cmd.Context(), inference.Job{
		InputDir:  cli.ExpandUser(embedInput),
		Pattern:   embedPat,
		OutputDir: cli.ExpandUser(embedOut),
	})
	if err != nil {
		return err
	}
	slog.Debug("summary", "run_id", sum.RunID, "written", sum.Written,
		"elapsed", cli.FormatElapsed(sum.Elapsed), "rate", cli.FormatRate(sum.Written, sum.Elapsed, "utt"))
	return nil
}

// progressWriter returns stderr when it is a terminal and nil otherwise,
// in which case the runner logs one debug line per utterance.
func progressWriter() io.Writer {
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return os.Stderr
	}
	return nil
}

func init() {
	f := embedCmd.Flags()
	embedCfg.register(f)
	f.StringVar(&embedInput, "input", "", "directory of input audio files")
	f.StringVar(&embedPat, "pattern", inference.DefaultPattern, "pattern of audio files to embed")
	f.StringVar(&embedOut, "output", "", "output directory or s3://bucket/prefix")
	f.StringVar(&embedCkpt, "checkpoint_path", "", "path of the encoder checkpoint")
	f.StringVar(&embedDev, "device", string(voiceprint.DeviceCPU), "device type to use (cpu, gpu)")
	f.StringVar(&embedIndex, "index", "", "badger directory recording the run (optional)")
	embedCmd.MarkFlagRequired("input")
	embedCmd.MarkFlagRequired("output")
	embedCmd.MarkFlagRequired("checkpoint_path")
	rootCmd.AddCommand(embedCmd)
}
