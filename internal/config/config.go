package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the pipeline file is looked up when no path is given
const DefaultPath = "config.yaml"

// Config contains runtime settings for the discovery pipeline
type Config struct {
	LogLevel    string        `yaml:"log_level"`
	Host        string        `yaml:"host"` // MCP listener, default 0.0.0.0
	Port        string        `yaml:"port"` // default PORT env or 8080
	DataDir     string        `yaml:"data_dir"`
	Sources     []Source      `yaml:"sources"`
	Aggregators []string      `yaml:"aggregators"` // adapter types whose postings lose to direct pages
	Match       MatchCriteria `yaml:"match"`
	Fetch       FetchPolicy   `yaml:"fetch"`
	Schedule    Schedule      `yaml:"schedule"`
	RunLock     RunLock       `yaml:"run_lock"`
	Browser     Browser       `yaml:"browser"`

	Adzuna struct {
		AppID   string `yaml:"-"`
		AppKey  string `yaml:"-"`
		Country string `yaml:"country"`
	} `yaml:"adzuna"`
	Neo4j struct {
		URI      string `yaml:"uri"`
		Username string `yaml:"-"`
		Password string `yaml:"-"`
		Database string `yaml:"database"`
	} `yaml:"neo4j"`
	Sheets struct {
		CredentialsPath string `yaml:"credentials_path"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		Tab             string `yaml:"tab"`
	} `yaml:"sheets"`
	Telegram struct {
		Token  string `yaml:"-"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Source describes one configured job board
type Source struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Enabled    *bool             `yaml:"enabled"`
	URL        string            `yaml:"url"`
	Company    string            `yaml:"company"`
	Keywords   []string          `yaml:"keywords"`
	Params     map[string]string `yaml:"params"`
	Aggregator *bool             `yaml:"aggregator"` // overrides the type-level aggregator list
	Delay      time.Duration     `yaml:"delay"`      // overrides fetch.request_delay
}

// IsEnabled treats an omitted flag as enabled
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Param returns a named adapter parameter or def when unset
func (s Source) Param(name, def string) string {
	if v, ok := s.Params[name]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// IntParam returns a numeric adapter parameter or def when unset or invalid
func (s Source) IntParam(name string, def int) int {
	v, err := strconv.Atoi(s.Param(name, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// MatchCriteria drives the cheap filter stage
type MatchCriteria struct {
	MaxAgeDays   int      `yaml:"max_age_days"`
	TitleInclude []string `yaml:"title_include"`
	TitleExclude []string `yaml:"title_exclude"`
}

// FetchPolicy configures retries, pacing and timeouts for every source
type FetchPolicy struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	Jitter           float64       `yaml:"jitter"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	SourceTimeout    time.Duration `yaml:"source_timeout"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	Workers          int           `yaml:"workers"`
	UserAgent        string        `yaml:"user_agent"`
}

// Schedule configures serve mode
type Schedule struct {
	IntervalHours int  `yaml:"interval_hours"`
	RunOnStart    bool `yaml:"run_on_start"`
}

// RunLock configures the single-writer guard
type RunLock struct {
	RedisURL string        `yaml:"-"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

// Browser configures the external renderer used by script-heavy sources
type Browser struct {
	Headless *bool         `yaml:"headless"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	cfg := Config{
		LogLevel:    "info",
		Host:        "0.0.0.0",
		Port:        "8080",
		DataDir:     "data",
		Aggregators: []string{"biospace", "adzuna"},
		Match: MatchCriteria{
			MaxAgeDays: 14,
		},
		Fetch: FetchPolicy{
			MaxAttempts:      3,
			BaseDelay:        time.Second,
			MaxDelay:         30 * time.Second,
			Jitter:           0.2,
			RequestDelay:     time.Second,
			RequestTimeout:   30 * time.Second,
			SourceTimeout:    5 * time.Minute,
			BreakerThreshold: 3,
			Workers:          4,
			UserAgent:        "Mozilla/5.0 (compatible; job-discovery/1.0)",
		},
		Schedule: Schedule{
			IntervalHours: 24,
			RunOnStart:    true,
		},
		RunLock: RunLock{
			Key: "job-discovery:run",
			TTL: 30 * time.Minute,
		},
		Browser: Browser{
			Timeout: 30 * time.Second,
		},
	}
	cfg.Adzuna.Country = "us"
	cfg.Sheets.Tab = "Matches"
	return cfg
}

// Load reads .env, the YAML pipeline file and environment overrides.
// A missing YAML file at the default path is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Host, "MCP_HOST")
	setString(&cfg.Port, "PORT")
	setString(&cfg.DataDir, "DATA_DIR")

	setString(&cfg.Adzuna.AppID, "ADZUNA_APP_ID")
	setString(&cfg.Adzuna.AppKey, "ADZUNA_APP_KEY")
	setString(&cfg.Adzuna.Country, "ADZUNA_COUNTRY")

	setString(&cfg.Neo4j.URI, "NEO4J_URI")
	setString(&cfg.Neo4j.Username, "NEO4J_USERNAME")
	setString(&cfg.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&cfg.Neo4j.Database, "NEO4J_DATABASE")

	setString(&cfg.Sheets.CredentialsPath, "GOOGLE_SHEETS_CREDENTIALS_PATH")
	setString(&cfg.Sheets.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")

	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.RunLock.RedisURL, "REDIS_URL")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}

	if v := os.Getenv("SCRAPE_INTERVAL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCRAPE_INTERVAL_HOURS: %w", err)
		}
		cfg.Schedule.IntervalHours = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports every problem at once
func (c Config) Validate() error {
	var problems []string

	if c.DataDir == "" {
		problems = append(problems, "data_dir is required")
	}
	if c.Match.MaxAgeDays <= 0 {
		problems = append(problems, "match.max_age_days must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		problems = append(problems, "fetch.max_attempts must be positive")
	}
	if c.Fetch.Workers <= 0 {
		problems = append(problems, "fetch.workers must be positive")
	}
	if c.Fetch.Jitter < 0 || c.Fetch.Jitter > 1 {
		problems = append(problems, "fetch.jitter must be within [0,1]")
	}
	if c.Schedule.IntervalHours <= 0 {
		problems = append(problems, "schedule.interval_hours must be positive")
	}

	names := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("sources[%d]: name is required", i))
		}
		if s.Type == "" {
			problems = append(problems, fmt.Sprintf("sources[%d]: type is required", i))
		}
		if _, dup := names[s.Name]; dup && s.Name != "" {
			problems = append(problems, fmt.Sprintf("sources[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = struct{}{}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnabledSources returns enabled sources in configuration order,
// optionally narrowed to a single name.
func (c Config) EnabledSources(only string) ([]Source, error) {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if only != "" {
			if s.Name == only {
				return []Source{s}, nil
			}
			continue
		}
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	if only != "" {
		return nil, fmt.Errorf("config: unknown source %q", only)
	}
	return out, nil
}

// IsAggregator reports whether postings from s lose to direct company pages
func (c Config) IsAggregator(s Source) bool {
	if s.Aggregator != nil {
		return *s.Aggregator
	}
	for _, t := range c.Aggregators {
		if strings.EqualFold(t, s.Type) {
			return true
		}
	}
	return false
}

// IsHeadless defaults to true
func (b Browser) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}
