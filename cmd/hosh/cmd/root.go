// Package cmd is hosh's cobra composition root, grounded on
// celestiaorg-popsigner's popctl/cmd/root.go shape (rootCmd + a
// version subcommand + Execute()), adapted to the --roles flag the
// Open Questions decision names in place of popctl's subcommand tree,
// and to koanf-based configuration instead of viper.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hosh/pkg/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// rolesFlag holds --roles; empty means "defer to RUN_MODE / config file".
var rolesFlag string

var rootCmd = &cobra.Command{
	Use:   "hosh",
	Short: "hosh probes BTC/ZEC light-wallet and block-explorer endpoints",
	Long: `hosh is a single binary that runs one or more of the following
roles in-process, selected by --roles (or the RUN_MODE environment
variable):

  web           dashboard, detail, explorer, and JSON API HTTP surface
  checker-btc   Protocol Adapter worker pool for the BTC/Electrum network
  checker-zec   Protocol Adapter worker pool for the ZEC/lightwalletd network
  discovery     periodic seed-list reconciliation
  all           every role above, in one process

Configuration loads from built-in defaults, an optional YAML file, and
environment variables, in that order of increasing precedence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMain()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hosh version %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rolesFlag, "roles", "", "comma-separated roles to run: web, checker-btc, checker-zec, discovery, all (default: RUN_MODE env var, then \"all\")")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and applies --roles over RUN_MODE/the
// config file when the flag was set explicitly.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rolesFlag != "" {
		cfg.Roles.Run = rolesFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

