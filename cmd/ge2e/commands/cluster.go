package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/inference"
	"github.com/yt605155624/Parakeet/pkg/storage"
	"github.com/yt605155624/Parakeet/pkg/vecid"
)

var (
	clusterThreshold  float32
	clusterMinSamples int
	clusterFormat     string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster DIR",
	Short: "Group the embeddings under DIR by voice",
	Long: `Cluster every .npy embedding under DIR with DBSCAN over cosine
similarity and print the speaker id assigned to each one. Embeddings with
fewer than --min-samples neighbours above --threshold are reported as
noise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(clusterFormat)
		if err != nil {
			return err
		}
		store, err := storage.Open(cmd.Context(), cli.ExpandUser(args[0]))
		if err != nil {
			return err
		}
		embs, err := inference.LoadEmbeddings(cmd.Context(), store)
		if err != nil {
			return err
		}
		if len(embs) == 0 {
			return fmt.Errorf("no .npy embeddings under %s", store.URI())
		}

		vectors := make([][]float32, len(embs))
		for i, e := range embs {
			vectors[i] = e.Vector
		}
		res, err := vecid.Cluster(vectors, vecid.Config{
			Threshold:  clusterThreshold,
			MinSamples: clusterMinSamples,
			Prefix:     "speaker",
		})
		if err != nil {
			return err
		}

		t := &cli.Table{
			Title:  fmt.Sprintf("%d speakers, %d noise", len(res.Groups), len(res.Noise())),
			Header: []string{"embedding", "speaker"},
		}
		for i, e := range embs {
			label := res.Labels[i]
			if label == "" {
				label = "-"
			}
			t.Rows = append(t.Rows, []string{strings.TrimSuffix(e.Path, inference.EmbeddingExt), label})
		}
		return cli.Output(t, cli.OutputOptions{Format: format})
	},
}

func init() {
	clusterCmd.Flags().Float32Var(&clusterThreshold, "threshold", 0.7, "minimum cosine similarity between neighbours")
	clusterCmd.Flags().IntVar(&clusterMinSamples, "min-samples", 2, "neighbourhood size of a core embedding")
	clusterCmd.Flags().StringVar(&clusterFormat, "format", "table", "output format (table, yaml, json)")
	rootCmd.AddCommand(clusterCmd)
}
