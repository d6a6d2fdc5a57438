package cmd

import (
	"fmt"
	"os"

	"github.com/mj1618/list-import/internal/app"
	"github.com/mj1618/list-import/internal/config"
	"github.com/mj1618/list-import/internal/output"
	"github.com/mj1618/list-import/internal/platform"
	_ "github.com/mj1618/list-import/internal/platform/chrome"
	_ "github.com/mj1618/list-import/internal/platform/htmldoc"
	"github.com/mj1618/list-import/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "list-import",
	Short: "Add accounts to an X list in bulk",
	Long: `Drive the X list editor in a browser: search each account, decide whether it is
already a member, click Add when it is not, and confirm the change.`,
	SilenceUsage: true,
}

// logger is built from --log-level before any command runs.
var logger = zap.NewNop()

func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file (defaults are used when empty)")
	flags.String("format", "yaml", "Output format: yaml, json")
	flags.Bool("pretty", false, "Indent JSON output")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("backend", "chrome", "Document backend: chrome, static")
	flags.String("url", "", "List URL to open before the batch (overrides list_url)")
	flags.String("remote-url", "", "DevTools endpoint of a running browser (overrides browser.remote_url)")
	flags.String("html", "", "HTML file to load with the static backend")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		if pretty, _ := rootCmd.PersistentFlags().GetBool("pretty"); pretty {
			output.PrettyOutput = true
		}

		level, _ := rootCmd.PersistentFlags().GetString("log-level")
		l, err := newLogger(level)
		if err != nil {
			return err
		}
		logger = l
		return nil
	}
}

// newLogger writes human-readable logs to stderr so stdout stays parseable.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// loadConfig reads --config and applies the flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if url, _ := flags.GetString("url"); url != "" {
		cfg.ListURL = url
	}
	if remote, _ := flags.GetString("remote-url"); remote != "" {
		cfg.Browser.RemoteURL = remote
	}
	return cfg, nil
}

// backendName resolves --backend, switching to the static backend when
// only --html was given.
func backendName(cmd *cobra.Command) string {
	flags := cmd.Flags()
	name, _ := flags.GetString("backend")
	html, _ := flags.GetString("html")
	if html != "" && !flags.Changed("backend") {
		return "static"
	}
	return name
}

// openApp loads the configuration and wires the engine to a backend.
// Callers must Close the returned app.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	html, _ := cmd.Flags().GetString("html")
	b := cfg.Browser
	provider, err := platform.NewProvider(backendName(cmd), platform.Options{
		RemoteURL:    b.RemoteURL,
		ExecPath:     b.ExecPath,
		UserDataDir:  b.UserDataDir,
		Headless:     b.Headless,
		WindowWidth:  b.WindowWidth,
		WindowHeight: b.WindowHeight,
		HTMLPath:     html,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, provider, logger)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}
	return a, nil
}
