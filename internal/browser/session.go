package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/pkg/logger"
)

type Options struct {
	Headless      bool
	ExecPath      string
	WindowWidth   int
	WindowHeight  int
	UserAgent     string
	ActionTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Headless:      true,
		WindowWidth:   1920,
		WindowHeight:  1080,
		ActionTimeout: 30 * time.Second,
	}
}

// Starter launches a browser and returns its page and a function that kills it.
type Starter func(ctx context.Context) (Page, func(), error)

type Session struct {
	start Starter

	mu       sync.Mutex
	page     Page
	stop     func()
	released bool
}

func NewSession(opts Options) *Session {
	return NewSessionWithStarter(ChromeStarter(opts))
}

func NewSessionWithStarter(start Starter) *Session {
	return &Session{start: start}
}

// Acquire returns the session's page, starting the browser on first use.
// A start failure wraps ErrSessionUnavailable and is not retried.
func (s *Session) Acquire(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil, fmt.Errorf("%w: session already released", ErrSessionUnavailable)
	}
	if s.page != nil {
		return s.page, nil
	}

	page, stop, err := s.start(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	s.page = page
	s.stop = stop
	return page, nil
}

// Release kills the browser. Releasing twice, or releasing a session that
// never started, does nothing.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = true
	if s.stop != nil {
		s.stop()
	}
	s.stop = nil
	s.page = nil
}

func ChromeStarter(opts Options) Starter {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}

	return func(ctx context.Context) (Page, func(), error) {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}

		log := logger.Named("browser")

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		tabCtx, cancelTab := chromedp.NewContext(allocCtx,
			chromedp.WithLogf(log.Sugar().Debugf),
			chromedp.WithErrorf(log.Sugar().Warnf),
		)
		stop := func() {
			cancelTab()
			cancelAlloc()
		}

		// The browser must outlive ctx, so ctx only aborts the launch itself.
		abort := context.AfterFunc(ctx, stop)
		err := chromedp.Run(tabCtx)
		abort()
		if err != nil {
			stop()
			return nil, nil, fmt.Errorf("failed to launch chrome: %w", err)
		}

		log.Debug("Browser started",
			zap.Bool("headless", opts.Headless),
			zap.Int("width", opts.WindowWidth),
			zap.Int("height", opts.WindowHeight),
		)

		return &chromePage{ctx: tabCtx, timeout: opts.ActionTimeout}, stop, nil
	}
}
