package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/pkg/poll"
	"github.com/court-causelist/backend/pkg/utils"
)

// Navigator walks a site's dependent dropdowns on one live page.
type Navigator struct {
	site Site
	page browser.Page
	poll poll.Config
	log  *zap.Logger
}

func NewNavigator(site Site, page browser.Page, pollCfg poll.Config, log *zap.Logger) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	pollCfg.Timeout = site.SettleDuration()
	pollCfg.Logger = log
	return &Navigator{site: site, page: page, poll: pollCfg, log: log}
}

// Resolve loads the form, selects every level of path above target and
// returns the candidate options at target. A requested value that is not
// offered yields ErrNoSuchOption.
func (n *Navigator) Resolve(ctx context.Context, path Path, target Level) ([]browser.Option, error) {
	if err := n.page.Navigate(ctx, n.site.FormURL()); err != nil {
		return nil, navigationError("load form", err)
	}

	for _, level := range Levels {
		if level > target {
			break
		}

		if static, ok := n.site.StaticOptions(level); ok {
			if level == target {
				return staticOptions(static), nil
			}
			if !containsLabel(staticOptions(static), path.value(level)) {
				return nil, noSuchOption(level, path.value(level))
			}
			continue
		}

		opts, err := n.settle(ctx, level)
		if err != nil {
			return nil, err
		}
		candidates := Candidates(opts)
		if level == target {
			return candidates, nil
		}

		want := path.value(level)
		match, ok := firstByLabel(candidates, want)
		if !ok {
			return nil, noSuchOption(level, want)
		}
		if err := n.page.Select(ctx, n.site.SelectorFor(level), match.Value); err != nil {
			return nil, navigationError("select "+level.String(), err)
		}
		n.log.Debug("Selected option",
			zap.String("level", level.String()),
			zap.String("label", match.Label),
			zap.String("value", match.Value),
		)
	}

	return nil, nil
}

// SelectJudge re-selects a judge on the form, e.g. after navigating back.
func (n *Navigator) SelectJudge(ctx context.Context, judge browser.Option) error {
	if err := n.page.Select(ctx, n.site.SelectorFor(LevelJudge), judge.Value); err != nil {
		return navigationError("select judge", err)
	}
	return nil
}

// SettleForm waits until the judge dropdown is populated again.
func (n *Navigator) SettleForm(ctx context.Context) error {
	_, err := n.settle(ctx, LevelJudge)
	return err
}

// settle polls a level's options until consecutive reads agree. A level
// that never offers anything yields an empty list, not an error.
func (n *Navigator) settle(ctx context.Context, level Level) ([]browser.Option, error) {
	selector := n.site.SelectorFor(level)
	opts, _, err := poll.UntilStable(ctx, n.poll, func() ([]browser.Option, string, error) {
		opts, err := n.page.Options(ctx, selector)
		if err != nil {
			return nil, "", err
		}
		return opts, fingerprint(Candidates(opts)), nil
	})
	switch {
	case err == nil:
		return opts, nil
	case errors.Is(err, poll.ErrNeverReady):
		n.log.Debug("Level never populated", zap.String("level", level.String()))
		return nil, nil
	default:
		return nil, navigationError("read "+level.String(), err)
	}
}

// SettleResults polls the page until its HTML differs from before (the form
// as it was when submitted) and then stops changing. A page that never moves
// off the submitted form is a fault rather than an empty cause list.
func (n *Navigator) SettleResults(ctx context.Context, before string) (string, error) {
	html, _, err := poll.UntilStable(ctx, n.poll, func() (string, string, error) {
		html, err := n.page.HTML(ctx)
		if err != nil {
			return "", "", err
		}
		if html == "" || html == before {
			return "", "", nil
		}
		return html, utils.HashString(html), nil
	})
	if errors.Is(err, poll.ErrNeverReady) {
		return "", fmt.Errorf("%w: results page never loaded", ErrNavigation)
	}
	if err != nil {
		return "", navigationError("read results", err)
	}
	return html, nil
}

// Candidates drops empty options and "Select ..." placeholders.
func Candidates(opts []browser.Option) []browser.Option {
	out := make([]browser.Option, 0, len(opts))
	for i, o := range opts {
		if isPlaceholder(i, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func isPlaceholder(i int, o browser.Option) bool {
	label := strings.TrimSpace(o.Label)
	if label == "" || strings.TrimSpace(o.Value) == "" {
		return true
	}
	lower := strings.ToLower(label)
	if strings.HasPrefix(lower, "select") || strings.HasPrefix(lower, "--") {
		return true
	}
	return i == 0 && o.Value == "0"
}

// MatchJudge returns the first judge whose label contains name, ignoring
// case. A blank name matches nothing.
func MatchJudge(judges []browser.Option, name string) []browser.Option {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for _, j := range judges {
		if strings.Contains(strings.ToLower(j.Label), needle) {
			return []browser.Option{j}
		}
	}
	return nil
}

func firstByLabel(opts []browser.Option, label string) (browser.Option, bool) {
	for _, o := range opts {
		if strings.TrimSpace(o.Label) == label {
			return o, true
		}
	}
	return browser.Option{}, false
}

func containsLabel(opts []browser.Option, label string) bool {
	_, ok := firstByLabel(opts, label)
	return ok
}

func staticOptions(labels []string) []browser.Option {
	opts := make([]browser.Option, 0, len(labels))
	for _, l := range labels {
		opts = append(opts, browser.Option{Value: l, Label: l})
	}
	return opts
}

func fingerprint(opts []browser.Option) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts)*2)
	for _, o := range opts {
		parts = append(parts, o.Value, o.Label)
	}
	return utils.HashParts(parts...)
}

func navigationError(step string, err error) error {
	if errors.Is(err, browser.ErrSessionUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrNavigation, step, err)
}

func noSuchOption(level Level, want string) error {
	return fmt.Errorf("%w: %w: %s %q", ErrNavigation, ErrNoSuchOption, level, want)
}
