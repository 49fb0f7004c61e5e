package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultFeedURL is the Coaching Real Leaders feed.
const DefaultFeedURL = "http://feeds.harvardbusiness.org/harvardbusiness/coaching-real-leaders"

// ProjectConfigFile is picked up from the working directory when no path is given.
const ProjectConfigFile = "episode-scribe.toml"

// Fetch controls page and feed requests.
type Fetch struct {
	MaxAttempts       int    `toml:"max_attempts"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	PaceDelaySeconds  int    `toml:"pace_delay_seconds"`
	UserAgent         string `toml:"user_agent"`
	// InsecureSkipVerify turns off TLS certificate validation. Off by default.
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// Schedule controls the cron runner used by the schedule command.
type Schedule struct {
	Cron         string `toml:"cron"`
	RunAtStartup bool   `toml:"run_at_startup"`
}

// Email contains SMTP settings for run summaries. Empty host or recipient disables it.
type Email struct {
	SMTPHost  string `toml:"smtp_host"`
	SMTPPort  int    `toml:"smtp_port"`
	Sender    string `toml:"sender"`
	Password  string `toml:"password"`
	Recipient string `toml:"recipient"`
}

// Config holds every setting of both pipeline stages.
type Config struct {
	FeedURL     string `toml:"feed_url"`
	CatalogPath string `toml:"catalog_path"`
	ListingPath string `toml:"listing_path"`
	OutputDir   string `toml:"output_dir"`
	WriteDocx   bool   `toml:"write_docx"`
	LogLevel    string `toml:"log_level"`

	Fetch    Fetch    `toml:"fetch"`
	Schedule Schedule `toml:"schedule"`
	Email    Email    `toml:"email"`

	// Seasons maps a publication year to its season code.
	Seasons map[string]string `toml:"seasons"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FeedURL:     DefaultFeedURL,
		CatalogPath: "episodes_urls.json",
		ListingPath: "episodes_by_season.txt",
		OutputDir:   "output",
		LogLevel:    "info",
		Fetch: Fetch{
			MaxAttempts:       3,
			TimeoutSeconds:    30,
			RetryDelaySeconds: 2,
			PaceDelaySeconds:  1,
			UserAgent:         "Mozilla/5.0 (compatible; episode-scribe/1.0)",
		},
		Schedule: Schedule{
			Cron: "0 0 6 * * *",
		},
		Email: Email{
			SMTPPort: 587,
		},
		Seasons: map[string]string{
			"2021": "S1",
			"2022": "S2",
			"2023": "S3",
			"2024": "S4",
			"2025": "S5",
		},
	}
}

// Load reads the configuration file at path, applies environment overrides and
// validates the result. An empty path falls back to $EPISODE_SCRIBE_CONFIG and
// then to ./episode-scribe.toml; when neither exists the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("EPISODE_SCRIBE_CONFIG")
	}
	if path == "" {
		if info, err := os.Stat(ProjectConfigFile); err == nil && !info.IsDir() {
			path = ProjectConfigFile
		}
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config")
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setBool := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*dst = b
		return nil
	}

	setString("FEED_URL", &c.FeedURL)
	setString("CATALOG_PATH", &c.CatalogPath)
	setString("LISTING_PATH", &c.ListingPath)
	setString("OUTPUT_DIR", &c.OutputDir)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("EMAIL_SMTP_HOST", &c.Email.SMTPHost)
	setString("EMAIL_SENDER", &c.Email.Sender)
	setString("EMAIL_PASSWORD", &c.Email.Password)
	setString("EMAIL_RECIPIENT", &c.Email.Recipient)

	if v := strings.TrimSpace(os.Getenv("EMAIL_SMTP_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "invalid EMAIL_SMTP_PORT")
		}
		c.Email.SMTPPort = port
	}
	if err := setBool("INSECURE_SKIP_VERIFY", &c.Fetch.InsecureSkipVerify); err != nil {
		return err
	}
	return setBool("WRITE_DOCX", &c.WriteDocx)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FeedURL) == "" {
		return errors.New("feed_url must be set")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output_dir must be set")
	}
	if strings.TrimSpace(c.CatalogPath) == "" {
		return errors.New("catalog_path must be set")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be positive, got %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.RetryDelaySeconds <= 0 {
		return fmt.Errorf("fetch.retry_delay_seconds must be positive, got %d", c.Fetch.RetryDelaySeconds)
	}
	if c.Fetch.PaceDelaySeconds < 0 {
		return fmt.Errorf("fetch.pace_delay_seconds must not be negative, got %d", c.Fetch.PaceDelaySeconds)
	}
	for year, code := range c.Seasons {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("seasons: empty code for year %q", year)
		}
	}
	return nil
}

// RequestTimeout is the per-request timeout for page and feed fetches.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RetryDelay is the fixed wait between fetch attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelaySeconds) * time.Second
}

// PaceDelay is the wait between consecutive episode URLs.
func (c *Config) PaceDelay() time.Duration {
	return time.Duration(c.Fetch.PaceDelaySeconds) * time.Second
}

// EmailEnabled reports whether run summaries should be mailed.
func (c *Config) EmailEnabled() bool {
	return c.Email.SMTPHost != "" && c.Email.Recipient != ""
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return errors.Wrap(err, "write sample config")
	}
	return nil
}
