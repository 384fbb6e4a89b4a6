// Package cli provides the configuration tree and terminal helpers shared
// by the ge2e command-line tool.
//
// This package includes:
//   - The GE2E configuration tree (data, model, training sections)
//   - Layered merging: defaults, a YAML file, then KEY VALUE overrides
//   - Output formatting (JSON, YAML, raw)
//   - Small path and duration helpers
//
// Example usage:
//
//	cfg := cli.DefaultConfig()
//	if err := cfg.MergeFromFile("conf/default.yaml"); err != nil {
//	    return err
//	}
//	if err := cfg.MergeFromList([]string{"data.n_mels", "40"}); err != nil {
//	    return err
//	}
//	cfg.Freeze()
//
//	cli.Output(cfg, cli.OutputOptions{Format: cli.FormatYAML})
package cli
