package causelist

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/cache/redis"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/pkg/circuitbreaker"
	"github.com/court-causelist/backend/pkg/config"
	"github.com/court-causelist/backend/pkg/poll"
)

// NewServiceFromConfig builds the site registry, the browser driver and the
// service the API server and the CLI share.
func NewServiceFromConfig(cfg *config.Config, cache redis.Cache, store Store, log *zap.Logger) (*Service, error) {
	registry := Registry(cfg.Sites)
	if _, err := registry.Get(cfg.Scraper.DefaultSite); err != nil {
		return nil, fmt.Errorf("scraper.defaultSite: %w", err)
	}

	open, err := Opener(cfg.Scraper.Driver, cfg.Browser)
	if err != nil {
		return nil, err
	}

	pollCfg := poll.DefaultConfig()
	if cfg.Scraper.PollIntervalMs > 0 {
		pollCfg.Interval = cfg.Scraper.PollInterval()
	}
	if cfg.Scraper.StableReads > 0 {
		pollCfg.StableReads = cfg.Scraper.StableReads
	}

	return NewService(registry, open, cache, store, Config{
		DefaultSite: cfg.Scraper.DefaultSite,
		OutputDir:   cfg.Output.Dir,
		Retention:   cfg.Output.Retention(),
		MaxSessions: cfg.Browser.MaxSessions,
		Poll:        pollCfg,
		Breaker: circuitbreaker.Config{
			FailureThreshold: uint32(cfg.Scraper.BreakerFailures),
			Cooldown:         time.Duration(cfg.Scraper.BreakerCooldownSec) * time.Second,
		},
	}, log), nil
}

func Registry(sites config.SitesConfig) *scraper.Registry {
	return scraper.NewRegistry(
		scraper.NewECourts(sites.ECourts.BaseURL, sites.ECourts.Settle()),
		scraper.NewDelhi(sites.Delhi.BaseURL, sites.Delhi.Settle()),
	)
}

// Opener picks the page source: a fresh headless Chrome per request, or the
// in-memory court form.
func Opener(driver string, b config.BrowserConfig) (OpenerFactory, error) {
	switch driver {
	case "chrome":
		opts := browser.Options{
			Headless:      b.Headless,
			ExecPath:      b.ExecPath,
			WindowWidth:   b.WindowWidth,
			WindowHeight:  b.WindowHeight,
			UserAgent:     b.UserAgent,
			ActionTimeout: b.ActionTimeout(),
		}
		return func(scraper.Site) scraper.Opener {
			return scraper.SessionOpener(func() *browser.Session { return browser.NewSession(opts) })
		}, nil
	case "mock":
		return scraper.MockOpener, nil
	default:
		return nil, fmt.Errorf("unknown scraper driver %q", driver)
	}
}
