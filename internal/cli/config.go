package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/docblock/internal/config"
)

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect docblock configuration",
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Show loads the configuration exactly as extract would (defaults, then
.docblock/config.yml, then DOCBLOCK_* environment variables) and prints the
result as YAML. The output is a valid config file.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(rootFlag)
	if err != nil {
		return err
	}
	return executeConfigShow(root, cfgFile, cmd.OutOrStdout())
}

func executeConfigShow(root, file string, w io.Writer) error {
	cfg, err := loadConfig(root, file)
	if err != nil {
		return err
	}
	return writeConfig(w, cfg)
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
