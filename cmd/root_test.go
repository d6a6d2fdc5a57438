package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const fastTimings = `timings:
  poll_interval: 1ms
  nav_timeout: 300ms
  input_timeout: 300ms
  classify_timeout: 100ms
  verify_timeout: 100ms
  nav_settle: 0s
  tab_settle: 0s
  search_delay: 0s
  action_delay: 0s
  clear_pause: 0s
`

// searchPage is the suggested-members screen with one search result.
func searchPage(account, control string) string {
	return fmt.Sprintf(`<html><body>
<a href="/i/lists/1/edit"><span>Edit List</span></a>
<input aria-label="Search query" placeholder="Search people">
<div data-testid="UserCell">
  <a href="/%[1]s"><span>%[1]s</span></a>
  <button aria-label="%[2]s"><span>%[2]s</span></button>
</div>
</body></html>`, account, control)
}

// resetFlags restores every flag to its default so commands can run
// repeatedly against the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"run", "locate", "classify", "serve", "config"}
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	if rootCmd.Version == "" {
		t.Error("root command version should be set")
	}
}

func TestRootCommand_RejectsBadFlags(t *testing.T) {
	if _, err := execute(t, "", "config", "--format", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := execute(t, "", "config", "--log-level", "chatty"); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestConfigCommand_AppliesOverrides(t *testing.T) {
	out, err := execute(t, "", "config", "--url", "https://x.com/i/lists/42")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"list_url: https://x.com/i/lists/42", "nav_timeout: 5s", "edit_list:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBackendName(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "chrome"},
		{[]string{"--html", "page.html"}, "static"},
		{[]string{"--html", "page.html", "--backend", "chrome"}, "chrome"},
	}
	for _, tt := range tests {
		resetFlags(rootCmd)
		if err := locateCmd.ParseFlags(tt.args); err != nil {
			t.Fatal(err)
		}
		if got := backendName(locateCmd); got != tt.want {
			t.Errorf("backendName(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestLocateCommand_StaticPage(t *testing.T) {
	html := writeFile(t, "page.html", searchPage("alice", "Add"))
	cfg := writeFile(t, "config.yaml", fastTimings)

	out, err := execute(t, "", "locate", "--config", cfg, "--html", html, "--role", "search_input")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !strings.Contains(out, "role: search_input") || !strings.Contains(out, "Search people") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "", "locate", "--config", cfg, "--html", html, "--role", "pivot"); err == nil {
		t.Error("expected error for a role with no visible match")
	}
	if _, err := execute(t, "", "locate", "--html", html); err == nil {
		t.Error("expected error without --role")
	}
}

func TestClassifyCommand_StaticPage(t *testing.T) {
	cfg := writeFile(t, "config.yaml", fastTimings)
	html := writeFile(t, "page.html", searchPage("alice", "Add"))

	tests := []struct {
		id    string
		page  string
		state string
	}{
		{"@alice", html, "state: addable"},
		{"BOB", writeFile(t, "bob.html", searchPage("bob", "Remove")), "state: already-present"},
	}
	for _, tt := range tests {
		out, err := execute(t, "", "classify", "--config", cfg, "--html", tt.page, tt.id)
		if err != nil {
			t.Fatalf("classify %s: %v", tt.id, err)
		}
		if !strings.Contains(out, tt.state) {
			t.Errorf("classify %s: want %q in:\n%s", tt.id, tt.state, out)
		}
	}

	out, err := execute(t, "", "classify", "--config", cfg, "--html", html, "ghost")
	if err == nil {
		t.Fatal("expected error for an account with no result")
	}
	if !strings.Contains(out, "error:") {
		t.Errorf("expected the error in the output:\n%s", out)
	}
}

func TestReadIdentifiers(t *testing.T) {
	file := writeFile(t, "ids.txt", "@carol\n@dave,\r\n")
	tests := []struct {
		name  string
		args  []string
		flags []string
		stdin string
		want  []string
	}{
		{"args", []string{"@alice", "bob,carol"}, nil, "ignored", []string{"@alice", "bob", "carol"}},
		{"stdin fallback", nil, nil, "@alice\n@bob", []string{"@alice", "@bob"}},
		{"file", []string{"@alice"}, []string{"--file", file}, "", []string{"@alice", "@carol", "@dave"}},
	}
	defer runCmd.SetIn(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			if err := runCmd.ParseFlags(tt.flags); err != nil {
				t.Fatal(err)
			}
			runCmd.SetIn(strings.NewReader(tt.stdin))
			got, err := readIdentifiers(runCmd, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunCommand_EmptyInput(t *testing.T) {
	html := writeFile(t, "page.html", searchPage("alice", "Add"))
	out, err := execute(t, " , @ ", "run", "--html", html)
	if err == nil || !strings.Contains(err.Error(), "no identifiers") {
		t.Errorf("got err %v, want empty-input error", err)
	}
	if out != "" {
		t.Errorf("expected no result for a rejected batch, got:\n%s", out)
	}
}

func TestRunCommand_StaticPage(t *testing.T) {
	html := writeFile(t, "page.html", searchPage("bob", "Remove"))
	cfg := writeFile(t, "config.yaml", fastTimings)

	out, err := execute(t, "", "run", "--config", cfg, "--html", html, "--format", "json", "@bob", "ghost")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{`"status":"completed"`, `"skipped":["bob"]`, `"failed":["ghost"]`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}
