// Command ge2e computes GE2E speaker embeddings for a directory of
// utterances with a pretrained LSTM speaker encoder.
//
// Usage:
//
//	ge2e [flags] <command> [subcommand] [args]
//
// Commands:
//
//	embed       - Embed every matching audio file into a mirrored .npy tree
//	config      - Print the merged configuration
//	checkpoint  - Create or inspect msgpack checkpoints
//	similarity  - Cosine similarity table of stored embeddings
//	search      - Nearest stored embeddings to a query
//	cluster     - Group stored embeddings by voice
//	index       - List the records of a run index
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/yt605155624/Parakeet/cmd/ge2e/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
