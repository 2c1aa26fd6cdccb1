package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	optionsScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el || !el.options) return {found: false, options: []};
	return {found: true, options: Array.from(el.options).map(o => ({value: o.value, label: (o.text || '').trim()}))};
})(%s)`

	// Assigning .value does not fire events, so dependent dropdowns only
	// repopulate after the change event is dispatched by hand.
	selectScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s, %s)`

	inputScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = '';
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s, %s)`

	existsScript = `document.querySelector(%s) !== null`
)

type chromePage struct {
	ctx     context.Context
	timeout time.Duration
}

type optionsResult struct {
	Found   bool     `json:"found"`
	Options []Option `json:"options"`
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, p.ctx.Err())
	}

	runCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if p.ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Back(ctx context.Context) error {
	if err := p.run(ctx, chromedp.NavigateBack(), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate back: %w", err)
	}
	return nil
}

func (p *chromePage) Options(ctx context.Context, selector string) ([]Option, error) {
	var res optionsResult
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(optionsScript, jsString(selector)), &res)); err != nil {
		return nil, fmt.Errorf("failed to read options of %s: %w", selector, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return res.Options, nil
}

func (p *chromePage) Select(ctx context.Context, selector, value string) error {
	return p.evalBool(ctx, fmt.Sprintf(selectScript, jsString(selector), jsString(value)), selector)
}

func (p *chromePage) SetInput(ctx context.Context, selector, value string) error {
	return p.evalBool(ctx, fmt.Sprintf(inputScript, jsString(selector), jsString(value)), selector)
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	if err := p.evalBool(ctx, fmt.Sprintf(existsScript, jsString(selector)), selector); err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page html: %w", err)
	}
	return html, nil
}

func (p *chromePage) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	var buf []byte
	err := p.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print pdf: %w", err)
	}
	return buf, nil
}

func (p *chromePage) evalBool(ctx context.Context, script, selector string) error {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to evaluate on %s: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
