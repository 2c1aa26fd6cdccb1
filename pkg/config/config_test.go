package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "chrome", cfg.Scraper.Driver)
	assert.Equal(t, "ecourts", cfg.Scraper.DefaultSite)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)
	assert.Equal(t, 3*time.Second, cfg.Sites.ECourts.Settle())
	assert.Equal(t, 300*time.Second, cfg.Output.Retention())
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.PollInterval())
	assert.False(t, cfg.Redis.Enabled)
	assert.Len(t, cfg.Server.AllowedOrigins, 4)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CAUSELIST_SERVER_PORT", "9090")
	t.Setenv("CAUSELIST_SCRAPER_DRIVER", "mock")
	t.Setenv("CAUSELIST_OUTPUT_RETENTIONSEC", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mock", cfg.Scraper.Driver)
	assert.Equal(t, 10*time.Second, cfg.Output.Retention())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Scraper.Driver = "selenium" }, "invalid scraper.driver"},
		{"no sessions", func(c *Config) { c.Browser.MaxSessions = 0 }, "maxSessions"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Browser: BrowserConfig{MaxSessions: 1},
				Scraper: ScraperConfig{Driver: "mock"},
				Output:  OutputConfig{Dir: "out"},
			}
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
