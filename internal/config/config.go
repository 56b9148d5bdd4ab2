// Package config loads formfill.yaml: the target form, input workbook, browser,
// matching and timing settings and the form layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "formfill.yaml"

// Config holds all formfill configuration.
type Config struct {
	// Target form
	Form FormConfig `yaml:"form"`

	// Input workbook
	Data DataConfig `yaml:"data"`

	// Anchor, download and ledger locations
	Paths PathsConfig `yaml:"paths"`

	// Browser backend
	Browser BrowserConfig `yaml:"browser"`

	// Anchor matching and polling
	Locator LocatorConfig `yaml:"locator"`

	// Keyboard timing
	Typing TypingConfig `yaml:"typing"`

	// Image downloads
	Download DownloadConfig `yaml:"download"`

	// Field groups, upload and submit steps
	Layout LayoutConfig `yaml:"layout"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// FormConfig configures the form lifecycle.
type FormConfig struct {
	URL           string `yaml:"url"`
	LoadWait      string `yaml:"load_wait"` // settle after the page reports ready
	RowPause      string `yaml:"row_pause"`
	ReopenEachRow bool   `yaml:"reopen_each_row"` // navigate to the form again before every row
}

// DataConfig selects the workbook and sheet.
type DataConfig struct {
	File  string `yaml:"file"`
	Sheet string `yaml:"sheet"` // empty = first sheet
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	Anchors   string `yaml:"anchors"`
	Downloads string `yaml:"downloads"`
	Ledger    string `yaml:"ledger"`
}

// BrowserConfig configures the screen backend.
type BrowserConfig struct {
	Engine            string   `yaml:"engine"` // rod, chromedp
	Bin               string   `yaml:"bin"`
	Flags             []string `yaml:"flags"`
	DebuggerURL       string   `yaml:"debugger_url"`
	Headless          *bool    `yaml:"headless"`
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
}

// LocatorConfig configures anchor matching.
type LocatorConfig struct {
	Confidence   float64 `yaml:"confidence"`
	Timeout      string  `yaml:"timeout"`
	PollInterval string  `yaml:"poll_interval"`
	ClickSettle  string  `yaml:"click_settle"`
}

// TypingConfig configures keyboard entry.
type TypingConfig struct {
	KeyInterval string `yaml:"key_interval"`
	AfterType   string `yaml:"after_type"`
}

// DownloadConfig configures the image downloader.
type DownloadConfig struct {
	Timeout       string `yaml:"timeout"`
	UserAgent     string `yaml:"user_agent"`
	Prefetch      bool   `yaml:"prefetch"`
	PrefetchLimit int    `yaml:"prefetch_limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	headless := false
	return &Config{
		Form: FormConfig{
			URL:      "https://zfrmz.in/cJlLgptz9KIQTjmikoxi",
			LoadWait: "10s",
			RowPause: "5s",
		},

		Data: DataConfig{
			File: "data.xlsx",
		},

		Paths: PathsConfig{
			Anchors:   "screenshots",
			Downloads: "downloads",
			Ledger:    "formfill.db",
		},

		Browser: BrowserConfig{
			Engine:            "rod",
			Headless:          &headless,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "60s",
		},

		Locator: LocatorConfig{
			Confidence:   0.9,
			Timeout:      "5s",
			PollInterval: "250ms",
			ClickSettle:  "500ms",
		},

		Typing: TypingConfig{
			KeyInterval: "50ms",
			AfterType:   "300ms",
		},

		Download: DownloadConfig{
			Timeout:       "30s",
			UserAgent:     "formfill/1.0",
			PrefetchLimit: 4,
		},

		Layout: DefaultLayoutConfig(),

		Logging: LoggingConfig{
			Level: "info",
			File:  "formfill.log",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("FORMFILL_FORM_URL"); url != "" {
		c.Form.URL = url
	}
	if file := os.Getenv("FORMFILL_DATA"); file != "" {
		c.Data.File = file
	}
	if v := os.Getenv("FORMFILL_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = &b
		}
	}
	if engine := os.Getenv("FORMFILL_ENGINE"); engine != "" {
		c.Browser.Engine = engine
	}
	if url := os.Getenv("FORMFILL_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetLoadWait returns the settle time after the form reports ready.
func (c *Config) GetLoadWait() time.Duration {
	return parseDuration(c.Form.LoadWait, 10*time.Second)
}

// GetRowPause returns the pause between rows.
func (c *Config) GetRowPause() time.Duration {
	return parseDuration(c.Form.RowPause, 5*time.Second)
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 60*time.Second)
}

// GetLocateTimeout returns how long the locator polls for an anchor.
func (c *Config) GetLocateTimeout() time.Duration {
	return parseDuration(c.Locator.Timeout, 5*time.Second)
}

// GetPollInterval returns the delay between locator captures.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Locator.PollInterval, 250*time.Millisecond)
}

// GetClickSettle returns the pause after clicking an anchor.
func (c *Config) GetClickSettle() time.Duration {
	return parseDuration(c.Locator.ClickSettle, 500*time.Millisecond)
}

// GetKeyInterval returns the delay between keystrokes.
func (c *Config) GetKeyInterval() time.Duration {
	return parseDuration(c.Typing.KeyInterval, 50*time.Millisecond)
}

// GetAfterType returns the pause after typing a value.
func (c *Config) GetAfterType() time.Duration {
	return parseDuration(c.Typing.AfterType, 300*time.Millisecond)
}

// GetDownloadTimeout returns the per-request download timeout.
func (c *Config) GetDownloadTimeout() time.Duration {
	return parseDuration(c.Download.Timeout, 30*time.Second)
}

// GetConfidence returns the match threshold, defaulting to 0.9.
func (c *Config) GetConfidence() float64 {
	if c.Locator.Confidence <= 0 {
		return 0.9
	}
	return c.Locator.Confidence
}

// GetPrefetchLimit returns the number of concurrent prefetch downloads.
func (c *Config) GetPrefetchLimit() int {
	if c.Download.PrefetchLimit <= 0 {
		return 4
	}
	return c.Download.PrefetchLimit
}

// IsHeadless reports whether the browser runs without a window.
func (c *Config) IsHeadless() bool {
	return c.Browser.Headless != nil && *c.Browser.Headless
}

// ValidEngines lists the supported browser backends.
var ValidEngines = []string{"rod", "chromedp"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Form.URL) == "" {
		return fmt.Errorf("form URL not configured (set form.url or FORMFILL_FORM_URL)")
	}
	if strings.TrimSpace(c.Data.File) == "" {
		return fmt.Errorf("data file not configured (set data.file or FORMFILL_DATA)")
	}
	if c.Locator.Confidence < 0 || c.Locator.Confidence > 1 {
		return fmt.Errorf("invalid locator confidence: %v (must be within 0..1)", c.Locator.Confidence)
	}

	validEngine := c.Browser.Engine == ""
	for _, e := range ValidEngines {
		if strings.EqualFold(c.Browser.Engine, e) {
			validEngine = true
			break
		}
	}
	if !validEngine {
		return fmt.Errorf("invalid browser engine: %s (valid: %v)", c.Browser.Engine, ValidEngines)
	}

	for _, field := range []struct{ name, value string }{
		{"form.load_wait", c.Form.LoadWait},
		{"form.row_pause", c.Form.RowPause},
		{"browser.navigation_timeout", c.Browser.NavigationTimeout},
		{"locator.timeout", c.Locator.Timeout},
		{"locator.poll_interval", c.Locator.PollInterval},
		{"locator.click_settle", c.Locator.ClickSettle},
		{"typing.key_interval", c.Typing.KeyInterval},
		{"typing.after_type", c.Typing.AfterType},
		{"download.timeout", c.Download.Timeout},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}

	return c.Layout.Validate()
}
