package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/cmd/ge2e/internal/build"
	"github.com/yt605155624/Parakeet/pkg/cli"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFormat != "" {
			format, err := cli.ParseFormat(versionFormat)
			if err != nil {
				return err
			}
			return cli.Output(build.Get(), cli.OutputOptions{Format: format})
		}
		fmt.Println(build.String())
		if IsVerbose() {
			info := build.Get()
			fmt.Printf("  go:     %s\n", info.Go)
			fmt.Printf("  onnx:   %v\n", info.ONNX)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}
