package cmd

import (
	"fmt"
	"time"

	"github.com/mj1618/list-import/internal/app"
	"github.com/mj1618/list-import/internal/output"
	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Wait for a configured element to become visible",
	Long: `Poll the page until the element of a configured role is visible, then describe
it. Useful for checking selectors against the live page.

Roles: edit_list, pivot, suggested_tab, search_input, result_entry,
identity_link, add_button, remove_button.`,
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().String("role", "", "Role to locate (required)")
	locateCmd.Flags().Duration("timeout", 0, "How long to wait (default: timings.nav_timeout)")
}

func runLocate(cmd *cobra.Command, args []string) error {
	role, _ := cmd.Flags().GetString("role")
	if role == "" {
		return fmt.Errorf("--role is required (one of %v)", app.RoleNames())
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	descs, err := app.Role(a.Config, role)
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = a.Config.Timings.NavTimeout
	}

	start := time.Now()
	el, err := a.Locator.Locate(cmd.Context(), descs, timeout)
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.LocateResult{
		Role:       role,
		Descriptor: descs.String(),
		Element:    el,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
	})
}
