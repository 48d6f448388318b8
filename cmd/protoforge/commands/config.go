package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/protoforge/pkg/config"
	"github.com/Sumatoshi-tech/protoforge/pkg/persist"
)

// scaffoldName is the config file written by --init.
const scaffoldName = ".protoforge.yaml"

// scaffoldPerm is the mode for the scaffolded config file.
const scaffoldPerm = 0o600

// ErrConfigExists indicates --init would overwrite an existing config
// file.
var ErrConfigExists = errors.New("config file already exists")

// ConfigCommand holds flags for the config command.
type ConfigCommand struct {
	configPath string
	scaffold   bool
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cc := &ConfigCommand{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, or scaffold a config file",
		Long: `Config prints the effective configuration as YAML after file, env var,
and default resolution. With --init it writes a config file populated
with the defaults instead, refusing to overwrite an existing one.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	cmd.Flags().StringVarP(&cc.configPath, "config", "c", "", "Config file path (default: search .protoforge.yaml in . and $HOME)")
	cmd.Flags().BoolVar(&cc.scaffold, "init", false, "Write a default config file and exit")

	return cmd
}

func (cc *ConfigCommand) run(cmd *cobra.Command, _ []string) error {
	if cc.scaffold {
		return cc.writeScaffold(cmd)
	}

	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return err
	}

	encodeErr := persist.NewYAMLCodec().Encode(cmd.OutOrStdout(), cfg)
	if encodeErr != nil {
		return fmt.Errorf("encode config: %w", encodeErr)
	}

	return nil
}

// writeScaffold writes the default configuration to the --config path,
// or .protoforge.yaml in the working directory.
func (cc *ConfigCommand) writeScaffold(cmd *cobra.Command) error {
	path := cc.configPath
	if path == "" {
		path = scaffoldName
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, scaffoldPerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}

		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	encodeErr := persist.NewYAMLCodec().Encode(file, config.Default())
	if encodeErr != nil {
		return fmt.Errorf("encode config: %w", encodeErr)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	if err != nil {
		return fmt.Errorf("write confirmation: %w", err)
	}

	return nil
}
