package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

var (
	ckptInitFlags configFlags
	ckptInitSeed  uint64
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create or inspect msgpack encoder checkpoints",
}

var checkpointInitCmd = &cobra.Command{
	Use:   "init OUT [KEY VALUE]...",
	Short: "Write a randomly initialized encoder checkpoint",
	Long: `Write a msgpack checkpoint with seeded random weights shaped by the
model section of the configuration. Useful for smoke tests of the
pipeline; the embeddings carry no speaker information.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ckptInitFlags.build(args[1:])
		if err != nil {
			return err
		}
		ck := voiceprint.InitCheckpoint(cfg.Model, cfg.Data.NMels, ckptInitSeed)
		out := cli.ExpandUser(args[0])
		if err := ck.Save(out); err != nil {
			return err
		}
		fmt.Printf("checkpoint written to %s (%d tensors)\n", out, len(ck.Tensors))
		return nil
	},
}

var checkpointInspectCmd = &cobra.Command{
	Use:   "inspect PATH",
	Short: "List the tensors of a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := voiceprint.ResolveCheckpoint(args[0])
		if err != nil {
			return err
		}
		ck, err := voiceprint.LoadCheckpoint(path)
		if err != nil {
			return err
		}
		t := &cli.Table{Title: path, Header: []string{"Tensor", "Shape", "Params"}}
		total := 0
		for _, name := range ck.Names() {
			tensor := ck.Tensors[name]
			dims := make([]string, len(tensor.Shape))
			for i, d := range tensor.Shape {
				dims[i] = strconv.Itoa(d)
			}
			t.Rows = append(t.Rows, []string{name, "[" + strings.Join(dims, ", ") + "]", strconv.Itoa(len(tensor.Data))})
			total += len(tensor.Data)
		}
		t.Rows = append(t.Rows, []string{"total", "", strconv.Itoa(total)})
		return cli.Output(t, cli.OutputOptions{Format: cli.FormatTable})
	},
}

func init() {
	ckptInitFlags.register(checkpointInitCmd.Flags())
	checkpointInitCmd.Flags().Uint64Var(&ckptInitSeed, "seed", 1, "random seed")
	checkpointCmd.AddCommand(checkpointInitCmd, checkpointInspectCmd)
	rootCmd.AddCommand(checkpointCmd)
}
