package cmd

import (
	"github.com/mj1618/list-import/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the --config file, environment overrides
and flags have been applied. The YAML output is a valid --config file.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), cfg)
}
