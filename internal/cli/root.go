package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/docblock/internal/config"
)

var (
	cfgFile  string
	rootFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docblock",
	Short: "Extract structured documentation comments from source code",
	Long: `docblock scans source files for documentation comments such as

  /**
   * @api {get} /user/:id Read user
   * @apiName GetUser
   * @apiParam {Number} id Users unique ID.
   */

and turns their @tags into a normalized document model, written as JSON or
YAML for downstream renderers.

Configuration is read from .docblock/config.yml in the project root, with
DOCBLOCK_* environment variables taking precedence.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docblock/config.yml under the root)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "project root (default is the working directory)")
}

// resolveRoot returns the project root: the --root flag or the working directory.
func resolveRoot(flag string) (string, error) {
	if flag != "" {
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", fmt.Errorf("failed to resolve root directory: %w", err)
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// loadConfig loads configuration for a root, from an explicit file when given.
func loadConfig(root, file string) (*config.Config, error) {
	var loader config.Loader
	if file != "" {
		loader = config.NewFileLoader(root, file)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
