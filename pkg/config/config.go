package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Sites     SitesConfig
	Output    OutputConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type BrowserConfig struct {
	Headless         bool
	ExecPath         string
	WindowWidth      int
	WindowHeight     int
	UserAgent        string
	ActionTimeoutSec int
	MaxSessions      int
}

type ScraperConfig struct {
	// Driver is "chrome" for a real browser or "mock" for the in-memory form.
	Driver             string
	DefaultSite        string
	PollIntervalMs     int
	StableReads        int
	BreakerFailures    int
	BreakerCooldownSec int
}

type SitesConfig struct {
	ECourts SiteConfig
	Delhi   SiteConfig
}

type SiteConfig struct {
	BaseURL   string
	SettleSec int
}

type OutputConfig struct {
	Dir               string
	RetentionSec      int
	SweepIntervalSec  int
	RunRetentionHours int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type RateLimitConfig struct {
	FetchPerMinute  int
	LookupPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/causelist")

	v.SetEnvPrefix("CAUSELIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Scraper.Driver {
	case "chrome", "mock":
	default:
		return fmt.Errorf("invalid scraper.driver %q: want chrome or mock", c.Scraper.Driver)
	}
	if c.Browser.MaxSessions < 1 {
		return fmt.Errorf("browser.maxSessions must be at least 1, got %d", c.Browser.MaxSessions)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	return nil
}

func (c BrowserConfig) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutSec) * time.Second
}

func (c ScraperConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c SiteConfig) Settle() time.Duration {
	return time.Duration(c.SettleSec) * time.Second
}

func (c OutputConfig) Retention() time.Duration {
	return time.Duration(c.RetentionSec) * time.Second
}

func (c OutputConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 300)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:8080",
		"http://127.0.0.1:8080",
	})
	v.SetDefault("server.development", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.execPath", "")
	v.SetDefault("browser.windowWidth", 1920)
	v.SetDefault("browser.windowHeight", 1080)
	v.SetDefault("browser.userAgent", "")
	v.SetDefault("browser.actionTimeoutSec", 30)
	v.SetDefault("browser.maxSessions", 2)

	v.SetDefault("scraper.driver", "chrome")
	v.SetDefault("scraper.defaultSite", "ecourts")
	v.SetDefault("scraper.pollIntervalMs", 250)
	v.SetDefault("scraper.stableReads", 2)
	v.SetDefault("scraper.breakerFailures", 3)
	v.SetDefault("scraper.breakerCooldownSec", 60)

	v.SetDefault("sites.ecourts.baseURL", "https://services.ecourts.gov.in/ecourtindia_v6/")
	v.SetDefault("sites.ecourts.settleSec", 3)
	v.SetDefault("sites.delhi.baseURL", "https://newdelhi.dcourts.gov.in")
	v.SetDefault("sites.delhi.settleSec", 3)

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.retentionSec", 300)
	v.SetDefault("output.sweepIntervalSec", 60)
	v.SetDefault("output.runRetentionHours", 24)

	v.SetDefault("sqlite.path", "./data/causelist.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 3600)

	v.SetDefault("rateLimit.fetchPerMinute", 6)
	v.SetDefault("rateLimit.lookupPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
