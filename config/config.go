package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Navigation source names accepted by NAV_SOURCE.
const (
	NavSourceEvent = "event"
	NavSourcePoll  = "poll"
)

// Config holds all application configuration. Values come from defaults,
// an optional YAML file, a .env file and the environment, in that order.
type Config struct {
	TargetURL      string `yaml:"target_url"`
	PagePathMarker string `yaml:"page_path_marker"`
	ContainerID    string `yaml:"container_id"`
	CardSelector   string `yaml:"card_selector"`

	BorderWidth int  `yaml:"border_width"`
	DrawBorder  bool `yaml:"draw_engagement_border"`
	Debug       bool `yaml:"debug"`

	ContainerRetryDelay time.Duration `yaml:"container_retry_delay"`
	SettleDelay         time.Duration `yaml:"settle_delay"`
	NavSource           string        `yaml:"nav_source"`
	NavPollInterval     time.Duration `yaml:"nav_poll_interval"`

	Headless    bool   `yaml:"headless"`
	ChromeBin   string `yaml:"chrome_bin"`
	UserDataDir string `yaml:"user_data_dir"`
	MaxRetries  int    `yaml:"max_retries"`

	ViewsWeight  float64 `yaml:"views_weight"`
	LikesWeight  float64 `yaml:"likes_weight"`
	RatingWeight float64 `yaml:"rating_weight"`

	CSVOutputPath     string        `yaml:"csv_output_path"`
	ExportConcurrency int           `yaml:"export_concurrency"`
	ExportTimeout     time.Duration `yaml:"export_timeout"`

	PostgresEnabled  bool   `yaml:"postgres_enabled"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		TargetURL:      "https://f95zone.to/sam/latest_alpha/",
		PagePathMarker: "/latest_alpha",
		ContainerID:    "latest-page_items-wrap_inner",
		CardSelector:   ".resource-tile",

		BorderWidth: 2,
		DrawBorder:  true,
		Debug:       false,

		ContainerRetryDelay: 100 * time.Millisecond,
		SettleDelay:         100 * time.Millisecond,
		NavSource:           NavSourceEvent,
		NavPollInterval:     250 * time.Millisecond,

		Headless:   false,
		MaxRetries: 3,

		ViewsWeight:  1.8,
		LikesWeight:  1.2,
		RatingWeight: 3.4,

		ExportConcurrency: 2,
		ExportTimeout:     10 * time.Second,

		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "engagement",
		PostgresPassword: "engagement",
		PostgresDB:       "engagement_db",
		PostgresSSLMode:  "disable",
	}
}

// Load builds the Config. path names an optional YAML file; when empty,
// CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.TargetURL = getEnv("TARGET_URL", c.TargetURL)
	c.PagePathMarker = getEnv("PAGE_PATH_MARKER", c.PagePathMarker)
	c.ContainerID = getEnv("CONTAINER_ID", c.ContainerID)
	c.CardSelector = getEnv("CARD_SELECTOR", c.CardSelector)

	c.BorderWidth = getEnvInt("BORDER_WIDTH", c.BorderWidth)
	c.DrawBorder = getEnvBool("DRAW_ENGAGEMENT_BORDER", c.DrawBorder)
	c.Debug = getEnvBool("DEBUG", c.Debug)

	c.ContainerRetryDelay = getEnvMs("CONTAINER_RETRY_MS", c.ContainerRetryDelay)
	c.SettleDelay = getEnvMs("SETTLE_DELAY_MS", c.SettleDelay)
	c.NavSource = strings.ToLower(getEnv("NAV_SOURCE", c.NavSource))
	c.NavPollInterval = getEnvMs("NAV_POLL_MS", c.NavPollInterval)

	c.Headless = getEnvBool("HEADLESS", c.Headless)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)
	c.UserDataDir = getEnv("USER_DATA_DIR", c.UserDataDir)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)

	c.ViewsWeight = getEnvFloat("VIEWS_WEIGHT", c.ViewsWeight)
	c.LikesWeight = getEnvFloat("LIKES_WEIGHT", c.LikesWeight)
	c.RatingWeight = getEnvFloat("RATING_WEIGHT", c.RatingWeight)

	c.CSVOutputPath = getEnv("CSV_OUTPUT_PATH", c.CSVOutputPath)
	c.ExportConcurrency = getEnvInt("EXPORT_CONCURRENCY", c.ExportConcurrency)
	c.ExportTimeout = getEnvMs("EXPORT_TIMEOUT_MS", c.ExportTimeout)

	c.PostgresEnabled = getEnvBool("POSTGRES_ENABLED", c.PostgresEnabled)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
}

// Validate rejects settings the watcher cannot run with.
func (c *Config) Validate() error {
	if c.ContainerID == "" {
		return fmt.Errorf("config: container id must not be empty")
	}
	if c.CardSelector == "" {
		return fmt.Errorf("config: card selector must not be empty")
	}
	if c.BorderWidth < 0 {
		return fmt.Errorf("config: border width must be >= 0, got %d", c.BorderWidth)
	}
	if c.ContainerRetryDelay <= 0 || c.SettleDelay <= 0 {
		return fmt.Errorf("config: retry and settle delays must be positive")
	}
	switch c.NavSource {
	case NavSourceEvent, NavSourcePoll:
	default:
		return fmt.Errorf("config: unknown nav source %q (want %q or %q)", c.NavSource, NavSourceEvent, NavSourcePoll)
	}
	if c.ExportTimeout <= 0 {
		return fmt.Errorf("config: export timeout must be positive")
	}
	if c.NavSource == NavSourcePoll && c.NavPollInterval <= 0 {
		return fmt.Errorf("config: nav poll interval must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMs(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
