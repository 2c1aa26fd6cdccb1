// Package browser owns the headless browser used to drive court websites.
//
// A Session starts one browser lazily on Acquire and kills it on Release.
// Sessions are not shared: every retrieval request creates its own, because
// the court forms keep their state in the page and two requests driving the
// same page would corrupt each other.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrSessionUnavailable means the browser process could not be started
	// or has gone away. It is the only scraping error surfaced to callers.
	ErrSessionUnavailable = errors.New("browser session unavailable")
	// ErrElementNotFound means a selector matched nothing on the current page.
	ErrElementNotFound = errors.New("element not found")
	// ErrPrintUnsupported means the page cannot print; callers lay the
	// document out themselves.
	ErrPrintUnsupported = errors.New("page cannot print")
)

// Option is one <option> of a <select> control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Page is a live browser tab. Calls must not be interleaved: the tab is a
// single cursor over one form.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	// Options lists the options of the first <select> matching selector.
	Options(ctx context.Context, selector string) ([]Option, error)
	// Select sets the value of a <select> and fires its change event.
	Select(ctx context.Context, selector, value string) error
	SetInput(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// PrintPDF loads html into the tab and prints it as an A4 PDF. Pages that
	// cannot print return ErrPrintUnsupported.
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}
