package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yt605155624/Parakeet/pkg/cli"
	"github.com/yt605155624/Parakeet/pkg/inference"
	"github.com/yt605155624/Parakeet/pkg/storage"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

var similarityFormat string

var similarityCmd = &cobra.Command{
	Use:   "similarity DIR",
	Short: "Cosine similarity of the embeddings under DIR",
	Long: `Load every .npy embedding under DIR (a directory or s3://bucket/prefix)
and print the pairwise cosine similarity matrix. Embeddings are grouped by
their parent directory, which names the speaker in the usual layout, and
a per-speaker table compares same-speaker and cross-speaker similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(similarityFormat)
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

		sim := make([][]float64, len(embs))
		for i := range embs {
			sim[i] = make([]float64, len(embs))
			for j := range embs {
				sim[i][j] = voiceprint.Cosine(embs[i].Vector, embs[j].Vector)
			}
		}

		opts := cli.OutputOptions{Format: format}
		if err := cli.Output(matrixTable(embs, sim), opts); err != nil {
			return err
		}
		if st := speakerTable(embs, sim); st != nil {
			return cli.Output(st, opts)
		}
		return nil
	},
}

func matrixTable(embs []inference.Embedding, sim [][]float64) *cli.Table {
	t := &cli.Table{Title: "cosine similarity", Header: []string{"#", "embedding"}}
	for i := range embs {
		t.Header = append(t.Header, fmt.Sprint(i))
	}
	for i, e := range embs {
		row := []string{fmt.Sprint(i), strings.TrimSuffix(e.Path, inference.EmbeddingExt)}
		for j := range embs {
			row = append(row, fmt.Sprintf("%.3f", sim[i][j]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// speakerTable returns nil when the embeddings come from fewer than two
// speakers.
func speakerTable(embs []inference.Embedding, sim [][]float64) *cli.Table {
	groups := make(map[string][]int)
	for i, e := range embs {
		groups[e.Speaker()] = append(groups[e.Speaker()], i)
	}
	if len(groups) < 2 {
		return nil
	}
	speakers := make([]string, 0, len(groups))
	for s := range groups {
		speakers = append(speakers, s)
	}
	slices.Sort(speakers)

	t := &cli.Table{Title: "per speaker", Header: []string{"speaker", "utterances", "intra", "inter"}}
	for _, s := range speakers {
		var intra, inter mean
		for _, i := range groups[s] {
			for j := range embs {
				switch {
				case j == i:
				case embs[j].Speaker() == s:
					intra.add(sim[i][j])
				default:
					inter.add(sim[i][j])
				}
			}
		}
		name := s
		if name == "" {
			name = "."
		}
		t.Rows = append(t.Rows, []string{name, fmt.Sprint(len(groups[s])), intra.String(), inter.String()})
	}
	return t
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) { m.sum += v; m.n++ }

func (m mean) String() string {
	if m.n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", m.sum/float64(m.n))
}

func init() {
	similarityCmd.Flags().StringVar(&similarityFormat, "format", "table", "output format (table, yaml, json)")
	rootCmd.AddCommand(similarityCmd)
}
