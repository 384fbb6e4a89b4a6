package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/inference"
	"github.com/yt605155624/Parakeet/pkg/storage"
	"github.com/yt605155624/Parakeet/pkg/vecstore"
)

var (
	searchTopK   int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY.npy DIR",
	Short: "Find the embeddings under DIR closest to a query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(searchFormat)
		if err != nil {
			return err
		}
		if searchTopK <= 0 {
			return fmt.Errorf("--top-k must be positive, got %d", searchTopK)
		}
		query, err := readQuery(cli.ExpandUser(args[0]))
		if err != nil {
			return err
		}

		store, err := storage.Open(cmd.Context(), cli.ExpandUser(args[1]))
		if err != nil {
			return err
		}
		embs, err := inference.LoadEmbeddings(cmd.Context(), store)
		if err != nil {
			return err
		}
		idx := vecstore.NewMemory()
		defer idx.Close()
		for _, e := range embs {
			if err := idx.Insert(e.Path, e.Vector); err != nil {
				return err
			}
		}

		matches, err := idx.Search(query, searchTopK)
		if err != nil {
			return err
		}
		t := &cli.Table{
			Title:  fmt.Sprintf("%d nearest of %d", len(matches), idx.Len()),
			Header: []string{"rank", "embedding", "similarity"},
		}
		for i, m := range matches {
			t.Rows = append(t.Rows, []string{
				fmt.Sprint(i + 1),
				strings.TrimSuffix(m.ID, inference.EmbeddingExt),
				fmt.Sprintf("%.4f", m.Similarity()),
			})
		}
		return cli.Output(t, cli.OutputOptions{Format: format})
	},
}

func readQuery(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	emb, err := inference.ReadEmbedding(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return emb, nil
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "table", "output format (table, yaml, json)")
	rootCmd.AddCommand(searchCmd)
}
