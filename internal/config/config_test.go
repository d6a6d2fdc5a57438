package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/list-import/internal/model"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeFile(t, `
list_url: https://x.com/i/lists/42
marker: "#"
click_offset: {x: 4, y: 3}
timings:
  classify_timeout: 12s
  search_delay: 750ms
  actions_per_minute: 20
selectors:
  add_button:
    - selector: button[data-testid="add"]
    - selector: button
      has: span
      text: Add
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListURL != "https://x.com/i/lists/42" {
		t.Errorf("got %q, want %q", cfg.ListURL, "https://x.com/i/lists/42")
	}
	if cfg.Marker != "#" {
		t.Errorf("got %q, want %q", cfg.Marker, "#")
	}
	if cfg.ClickOffset.X != 4 || cfg.ClickOffset.Y != 3 {
		t.Errorf("got offset %+v, want {4 3}", cfg.ClickOffset)
	}
	if cfg.Timings.ClassifyTimeout != 12*time.Second {
		t.Errorf("got %v, want 12s", cfg.Timings.ClassifyTimeout)
	}
	if cfg.Timings.SearchDelay != 750*time.Millisecond {
		t.Errorf("got %v, want 750ms", cfg.Timings.SearchDelay)
	}
	if cfg.Timings.VerifyTimeout != Default().Timings.VerifyTimeout {
		t.Errorf("unset timing lost its default: got %v", cfg.Timings.VerifyTimeout)
	}
	want := model.Descriptors{
		model.CSS(`button[data-testid="add"]`),
		model.HasDescendant("button", "span", "Add"),
	}
	if len(cfg.Selectors.AddButton) != 2 || cfg.Selectors.AddButton[0] != want[0] || cfg.Selectors.AddButton[1] != want[1] {
		t.Errorf("got %v, want %v", cfg.Selectors.AddButton, want)
	}
	if len(cfg.Selectors.SearchInput) != len(Default().Selectors.SearchInput) {
		t.Errorf("unset selectors lost their defaults")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"REMOTE_URL", "ws://127.0.0.1:9222")
	t.Setenv(EnvPrefix+"HEADLESS", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.RemoteURL != "ws://127.0.0.1:9222" {
		t.Errorf("got %q", cfg.Browser.RemoteURL)
	}
	if !cfg.Browser.Headless {
		t.Errorf("headless override not applied")
	}

	t.Setenv(EnvPrefix+"HEADLESS", "maybe")
	if _, err := Load(""); err == nil {
		t.Errorf("expected error for bad boolean")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "timings: [", "parse config"},
		{"bad duration", "timings:\n  nav_timeout: soon\n", "parse config"},
		{"zero timeout", "timings:\n  verify_timeout: 0s\n", "timings.verify_timeout"},
		{"negative pause", "timings:\n  action_delay: -1s\n", "timings.action_delay"},
		{"empty descriptors", "selectors:\n  result_entry: []\n", "selectors.result_entry"},
		{"blank selector", "selectors:\n  pivot:\n    - selector: ' '\n", "selectors.pivot[0]"},
		{"artifacts without dir", "artifacts:\n  enabled: true\n  dir: ''\n", "artifacts.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q, want it to contain %q", err, tt.want)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestConfig_RoundTripsThroughYAML(t *testing.T) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "classify_timeout: 8s") {
		t.Errorf("durations should render as strings, got:\n%s", data)
	}
	path := writeFile(t, string(data))
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timings != Default().Timings {
		t.Errorf("got %+v, want %+v", cfg.Timings, Default().Timings)
	}
}
