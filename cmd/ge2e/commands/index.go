package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/inference"
	"github.com/yt605155624/Parakeet/pkg/kv"
)

var (
	indexRun    string
	indexFormat string
)

var indexCmd = &cobra.Command{
	Use:   "index DIR",
	Short: "List the records of a run index",
	Long: `List what an 'embed --index DIR' run recorded. Without --run the
latest record of every input is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(indexFormat)
		if err != nil {
			return err
		}
		store, err := kv.NewBadger(kv.BadgerOptions{Dir: cli.ExpandUser(args[0])})
		if err != nil {
			return err
		}
		ix := inference.NewIndex(store, nil)
		defer ix.Close()

		recs, err := ix.Records(cmd.Context(), indexRun)
		if err != nil {
			return err
		}
		if format != cli.FormatTable {
			return cli.Output(recs, cli.OutputOptions{Format: format})
		}
		t := &cli.Table{
			Title:  fmt.Sprintf("%d records", len(recs)),
			Header: []string{"input", "output", "partials", "duration", "hash", "run", "created"},
		}
		for _, r := range recs {
			t.Rows = append(t.Rows, []string{
				r.Input,
				r.Output,
				fmt.Sprint(r.Partials),
				cli.FormatElapsed(r.Duration()),
				r.VoiceHash,
				r.RunID,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return cli.Output(t, cli.OutputOptions{Format: cli.FormatTable})
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexRun, "run", "", "run id to list")
	indexCmd.Flags().StringVar(&indexFormat, "format", "table", "output format (table, yaml, json)")
	rootCmd.AddCommand(indexCmd)
}
