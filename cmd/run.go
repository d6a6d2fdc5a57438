package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mj1618/list-import/internal/output"
	"github.com/mj1618/list-import/internal/tui"
	"github.com/mj1618/list-import/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [account...]",
	Short: "Add accounts to the list",
	Long: `Search each account in the list editor, skip accounts that are already members,
and add the rest. Accounts come from arguments, --file, or stdin, separated by
commas or newlines; a leading @ is ignored.

The first interrupt stops the batch after the current account; a second one
aborts immediately.

Examples:
  list-import run @alice @bob
  list-import run --file accounts.txt --url https://x.com/i/lists/123
  cat accounts.txt | list-import run --remote-url ws://127.0.0.1:9222 --tui`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("file", "", "Read accounts from a file (- for stdin)")
	runCmd.Flags().Bool("tui", false, "Show a live progress view")
}

func runRun(cmd *cobra.Command, args []string) error {
	ids, err := readIdentifiers(cmd, args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := interruptContext(cmd.Context(), a.Orchestrator.Stop)
	defer cancel()

	useTUI, _ := cmd.Flags().GetBool("tui")
	var final workflow.Progress
	var runErr error
	if useTUI {
		final, runErr = runWithView(ctx, a.Orchestrator, ids)
	} else {
		final, runErr = a.Orchestrator.Run(ctx, ids)
	}
	if final.RunID == "" {
		// Rejected before starting; nothing to report.
		return runErr
	}
	if err := output.Fprint(cmd.OutOrStdout(), output.NewBatchResult(final)); err != nil {
		return err
	}
	return runErr
}

// runWithView starts the batch behind the terminal view and waits for it to
// wind down after the view closes.
func runWithView(ctx context.Context, orch *workflow.Orchestrator, ids []string) (workflow.Progress, error) {
	updates, unsubscribe := tui.Watch(orch)
	defer unsubscribe()

	done, err := orch.Start(ctx, ids)
	if err != nil {
		return orch.Snapshot(), err
	}
	if _, err := tui.Run(ctx, orch, updates); err != nil {
		logger.Warn("progress view failed", zap.Error(err))
	}
	<-done
	final := orch.Snapshot()
	if final.Err != "" {
		return final, fmt.Errorf("batch aborted: %s", final.Err)
	}
	return final, nil
}

// readIdentifiers gathers accounts from args and --file, falling back to
// stdin when neither is given.
func readIdentifiers(cmd *cobra.Command, args []string) ([]string, error) {
	file, _ := cmd.Flags().GetString("file")
	if len(args) == 0 && file == "" {
		file = "-"
	}
	ids := workflow.ParseList(strings.Join(args, "\n"))
	if file == "" {
		return ids, nil
	}

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	return append(ids, workflow.ParseList(string(data))...), nil
}

// interruptContext calls stop on the first SIGINT or SIGTERM and cancels
// the returned context on the second.
func interruptContext(parent context.Context, stop func() bool) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			logger.Warn("interrupt: stopping after the current account (interrupt again to abort)")
			stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			logger.Warn("interrupt: aborting")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
