package cmd

import (
	"github.com/mj1618/list-import/internal/output"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <account>",
	Short: "Check whether an account is already in the list",
	Long: `Open the list editor, search for one account and report whether it can be added,
is already a member, or could not be determined. Nothing is clicked.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id, res, err := a.Orchestrator.Inspect(cmd.Context(), args[0])
	out := output.ClassifyResult{ID: id, State: res.State}
	if res.Entry.Tag != "" {
		entry := res.Entry
		out.Entry = &entry
	}
	if err != nil {
		out.Error = err.Error()
	}
	if perr := output.Fprint(cmd.OutOrStdout(), out); perr != nil {
		return perr
	}
	return err
}
