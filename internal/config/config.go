// Package config loads the batch configuration: defaults, then a YAML file,
// then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mj1618/list-import/internal/dispatch"
	"github.com/mj1618/list-import/internal/model"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIST_IMPORT_"

// Config is the complete configuration.
type Config struct {
	Browser     Browser         `yaml:"browser"`
	ListURL     string          `yaml:"list_url"`
	Marker      string          `yaml:"marker"`
	ClickOffset dispatch.Offset `yaml:"click_offset"`
	Timings     Timings         `yaml:"timings"`
	Selectors   Selectors       `yaml:"selectors"`
	Artifacts   Artifacts       `yaml:"artifacts"`
	MetricsAddr string          `yaml:"metrics_addr"`
}

// Browser selects and launches the document backend.
type Browser struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead
	// of launching one.
	RemoteURL    string `yaml:"remote_url"`
	ExecPath     string `yaml:"exec_path"`
	UserDataDir  string `yaml:"user_data_dir"`
	Headless     bool   `yaml:"headless"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
}

// Timings are every wait and pause of a batch.
type Timings struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	InputTimeout     time.Duration `yaml:"input_timeout"`
	ClassifyTimeout  time.Duration `yaml:"classify_timeout"`
	VerifyTimeout    time.Duration `yaml:"verify_timeout"`
	NavSettle        time.Duration `yaml:"nav_settle"`
	TabSettle        time.Duration `yaml:"tab_settle"`
	SearchDelay      time.Duration `yaml:"search_delay"`
	ActionDelay      time.Duration `yaml:"action_delay"`
	ClearPause       time.Duration `yaml:"clear_pause"`
	ActionsPerMinute float64       `yaml:"actions_per_minute"`
}

// Selectors hold one descriptor set per role. Pivot may be empty.
type Selectors struct {
	EditList     model.Descriptors `yaml:"edit_list"`
	Pivot        model.Descriptors `yaml:"pivot"`
	SuggestedTab model.Descriptors `yaml:"suggested_tab"`
	SearchInput  model.Descriptors `yaml:"search_input"`
	ResultEntry  model.Descriptors `yaml:"result_entry"`
	IdentityLink model.Descriptors `yaml:"identity_link"`
	AddButton    model.Descriptors `yaml:"add_button"`
	RemoveButton model.Descriptors `yaml:"remove_button"`
}

// Artifacts control failure screenshots.
type Artifacts struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Default returns the configuration for the X list members screen.
func Default() Config {
	return Config{
		Browser: Browser{
			Headless:     false,
			WindowWidth:  1280,
			WindowHeight: 900,
		},
		Marker:      "@",
		ClickOffset: dispatch.Offset{X: 8, Y: 6},
		Timings: Timings{
			PollInterval:    100 * time.Millisecond,
			NavTimeout:      5 * time.Second,
			InputTimeout:    3 * time.Second,
			ClassifyTimeout: 8 * time.Second,
			VerifyTimeout:   8 * time.Second,
			NavSettle:       time.Second,
			TabSettle:       2 * time.Second,
			SearchDelay:     1500 * time.Millisecond,
			ActionDelay:     2 * time.Second,
			ClearPause:      100 * time.Millisecond,
		},
		Selectors: Selectors{
			EditList: model.Descriptors{
				model.Contains("a span", "Edit List"),
				model.CSS(`[data-testid="cellInnerDiv"] a span span`),
			},
			Pivot: model.Descriptors{
				model.CSS(`[data-testid="pivot"] > div`),
			},
			SuggestedTab: model.Descriptors{
				model.CSS(`a[href*="suggested"]`),
				model.Contains("div", "Suggested"),
			},
			SearchInput: model.Descriptors{
				model.CSS(`input[aria-label*="Search"]`),
				model.CSS(`input[placeholder*="Search"]`),
				model.CSS(`#layers input`),
				model.CSS(`form input[type="text"]`),
			},
			ResultEntry: model.Descriptors{
				model.CSS(`[data-testid="UserCell"]`),
				model.CSS(`[data-testid="TypeaheadUser"]`),
			},
			IdentityLink: model.Descriptors{
				model.CSS(`a[role="link"][href^="/"]`),
				model.CSS(`a[href]`),
			},
			AddButton: model.Descriptors{
				model.CSS(`button[aria-label="Add"]`),
				model.HasDescendant("button", "span", "Add"),
			},
			RemoveButton: model.Descriptors{
				model.CSS(`button[aria-label="Remove"]`),
				model.HasDescendant("button", "span", "Remove"),
			},
		},
		Artifacts: Artifacts{Dir: "artifacts"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"REMOTE_URL":   &c.Browser.RemoteURL,
		"EXEC_PATH":    &c.Browser.ExecPath,
		"LIST_URL":     &c.ListURL,
		"METRICS_ADDR": &c.MetricsAddr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sHEADLESS: %w", EnvPrefix, err)
		}
		c.Browser.Headless = b
	}
	return nil
}

// Validate rejects configurations a batch cannot run with.
func (c Config) Validate() error {
	var errs []error
	t := c.Timings
	for name, d := range map[string]time.Duration{
		"poll_interval":    t.PollInterval,
		"nav_timeout":      t.NavTimeout,
		"input_timeout":    t.InputTimeout,
		"classify_timeout": t.ClassifyTimeout,
		"verify_timeout":   t.VerifyTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("timings.%s must be positive", name))
		}
	}
	for name, d := range map[string]time.Duration{
		"nav_settle":   t.NavSettle,
		"tab_settle":   t.TabSettle,
		"search_delay": t.SearchDelay,
		"action_delay": t.ActionDelay,
		"clear_pause":  t.ClearPause,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("timings.%s must not be negative", name))
		}
	}
	if t.ActionsPerMinute < 0 {
		errs = append(errs, errors.New("timings.actions_per_minute must not be negative"))
	}

	s := c.Selectors
	for name, descs := range map[string]model.Descriptors{
		"edit_list":     s.EditList,
		"suggested_tab": s.SuggestedTab,
		"search_input":  s.SearchInput,
		"result_entry":  s.ResultEntry,
		"identity_link": s.IdentityLink,
		"add_button":    s.AddButton,
		"remove_button": s.RemoveButton,
	} {
		if err := descs.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("selectors.%s: %w", name, err))
		}
	}
	for i, d := range s.Pivot {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("selectors.pivot[%d]: %w", i, err))
		}
	}
	if c.Artifacts.Enabled && c.Artifacts.Dir == "" {
		errs = append(errs, errors.New("artifacts.dir is required when artifacts are enabled"))
	}
	return errors.Join(errs...)
}
