package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ge2e",
	Short: "GE2E speaker embeddings",
	Long: `ge2e - compute speaker embeddings with a pretrained GE2E LSTM encoder.

Every audio file under the input directory that matches the pattern is
embedded into a fixed-size, L2-normalized vector saved as .npy at the
mirrored path under the output directory.

Examples:
  # Embed a corpus with a msgpack checkpoint
  ge2e embed --input corpus/ --output embeds/ --checkpoint_path exp/step-3000000

  # Override configuration keys
  ge2e embed --config conf/default.yaml --input in/ --output out/ \
    --checkpoint_path model.onnx data.n_mels 40

  # Compare the results
  ge2e similarity embeds/`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
