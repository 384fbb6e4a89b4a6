package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yt605155624/Parakeet/pkg/cli"
)

// configFlags are the flags every command that builds a configuration
// tree accepts.
type configFlags struct {
	file string
	opts []string
}

func (f *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.file, "config", "", "YAML config file merged over the defaults")
	fs.StringArrayVar(&f.opts, "opts", nil, "config override KEY=VALUE (repeatable)")
}

// build assembles the frozen configuration: defaults, then the config
// file, then --opts, then positional KEY VALUE pairs.
func (f *configFlags) build(pairs []string) (*cli.Config, error) {
	cfg := cli.DefaultConfig()
	if f.file != "" {
		if err := cfg.MergeFromFile(f.file); err != nil {
			return nil, err
		}
	}
	kvs, err := cli.ParseOverrides(f.opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.MergeFromList(kvs); err != nil {
		return nil, err
	}
	if err := cfg.MergeFromList(pairs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Freeze()
	return cfg, nil
}

var (
	configShowFlags  configFlags
	configShowFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration tree",
}

var configShowCmd = &cobra.Command{
	Use:   "show [KEY VALUE]...",
	Short: "Print the merged configuration",
	Long: `Print the configuration after merging the defaults, --config,
--opts and positional KEY VALUE pairs, in that order.

Examples:
  ge2e config show
  ge2e config show --config conf/default.yaml --opts data.n_mels=80
  ge2e config show --format json model.hidden_size 128`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(configShowFormat)
		if err != nil {
			return err
		}
		if format == cli.FormatTable || format == cli.FormatRaw {
			return fmt.Errorf("config show supports yaml and json, got %s", format)
		}
		cfg, err := configShowFlags.build(args)
		if err != nil {
			return err
		}
		return cli.Output(cfg, cli.OutputOptions{Format: format})
	},
}

func init() {
	configShowFlags.register(configShowCmd.Flags())
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "yaml", "output format (yaml, json)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
