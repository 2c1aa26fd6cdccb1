package causelist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/court-causelist/backend/internal/storage/sqlite"
	"github.com/court-causelist/backend/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Browser: config.BrowserConfig{MaxSessions: 1},
		Scraper: config.ScraperConfig{
			Driver:          "mock",
			DefaultSite:     "delhi",
			PollIntervalMs:  1,
			StableReads:     2,
			BreakerFailures: 3,
		},
		Sites: config.SitesConfig{
			ECourts: config.SiteConfig{BaseURL: "https://court.test/ecourtindia_v6"},
			Delhi:   config.SiteConfig{BaseURL: "https://delhi.test"},
		},
		Output: config.OutputConfig{Dir: filepath.Join(t.TempDir(), "output"), RetentionSec: 60},
	}
}

func TestNewServiceFromConfig(t *testing.T) {
	store, err := sqlite.NewClient(filepath.Join(t.TempDir(), "causelist.db"))
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	defer store.Close()

	svc, err := NewServiceFromConfig(testConfig(t), nil, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "delhi", svc.DefaultSite())
	assert.ElementsMatch(t, []string{"ecourts", "delhi"}, svc.Sites())

	complexes, err := svc.ListCourtComplexes(context.Background(), "", "Delhi", "Delhi")
	require.NoError(t, err)
	assert.Contains(t, complexes, "Saket Court Complex")
}

func TestNewServiceFromConfigRejectsUnknownSite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scraper.DefaultSite = "bombay"
	_, err := NewServiceFromConfig(cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestOpenerRejectsUnknownDriver(t *testing.T) {
	_, err := Opener("firefox", config.BrowserConfig{})
	assert.Error(t, err)

	open, err := Opener("chrome", config.BrowserConfig{Headless: true})
	require.NoError(t, err)
	assert.NotNil(t, open)
}
