// Package mockbrowser simulates a cascading court form in memory. It stands
// in for Chrome when the service runs with the mock driver and in tests.
package mockbrowser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/court-causelist/backend/internal/browser"
)

// Node is one option of a level; Children populate the next level once it is selected.
type Node struct {
	Label    string
	Value    string
	Children []Node
}

// Form describes the page layout: one <select> per level, a date input and
// submit controls keyed by selector.
type Form struct {
	URL       string
	Levels    []string
	DateInput string
	// Submits maps a submit control selector to the case type it requests.
	Submits map[string]string
}

// Query is what the form held when a submit control was clicked.
type Query struct {
	Path     []browser.Option
	Date     string
	CaseType string
}

// ResultsFunc renders the results page for a submitted query.
type ResultsFunc func(q Query) string

type formState struct {
	url       string
	selected  []string
	date      string
	results   string
	onResults bool
}

type Page struct {
	form    Form
	tree    []Node
	results ResultsFunc

	mu      sync.Mutex
	cur     formState
	history []formState

	// Faults maps a selector (or "navigate", "back", "html", "print") to an error
	// returned when that control is used. Tests set it to inject site failures.
	Faults map[string]error
	// EmptyLevels holds level selectors whose options never populate.
	EmptyLevels map[string]bool

	Clicks      []string
	Navigations int
}

func New(form Form, tree []Node, results ResultsFunc) *Page {
	return &Page{
		form:        form,
		tree:        tree,
		results:     results,
		Faults:      make(map[string]error),
		EmptyLevels: make(map[string]bool),
	}
}

// Starter returns a browser.Starter handing out a fresh Page per session.
func Starter(newPage func() *Page) browser.Starter {
	return func(ctx context.Context) (browser.Page, func(), error) {
		return newPage(), func() {}, nil
	}
}

func (p *Page) fault(key string) error {
	if err, ok := p.Faults[key]; ok {
		return err
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault("navigate"); err != nil {
		return err
	}
	p.Navigations++
	if p.cur.url != "" {
		p.history = append(p.history, p.cur)
	}
	p.cur = formState{url: url, selected: make([]string, len(p.form.Levels))}
	return nil
}

func (p *Page) Back(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault("back"); err != nil {
		return err
	}
	if len(p.history) == 0 {
		return fmt.Errorf("no page to go back to")
	}
	p.cur = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	return nil
}

func (p *Page) onForm() bool {
	return p.cur.url == p.form.URL && !p.cur.onResults
}

func (p *Page) level(selector string) int {
	for i, s := range p.form.Levels {
		if s == selector {
			return i
		}
	}
	return -1
}

// nodes returns the options currently offered at level i.
func (p *Page) nodes(i int) []Node {
	nodes := p.tree
	for l := 0; l < i; l++ {
		value := p.cur.selected[l]
		if value == "" {
			return nil
		}
		var next []Node
		for _, n := range nodes {
			if n.Value == value {
				next = n.Children
				break
			}
		}
		nodes = next
	}
	return nodes
}

func (p *Page) Options(ctx context.Context, selector string) ([]browser.Option, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault(selector); err != nil {
		return nil, err
	}
	i := p.level(selector)
	if !p.onForm() || i < 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}

	opts := []browser.Option{{Value: "", Label: "Select"}}
	if p.EmptyLevels[selector] {
		return opts, nil
	}
	for _, n := range p.nodes(i) {
		opts = append(opts, browser.Option{Value: n.Value, Label: n.Label})
	}
	return opts, nil
}

func (p *Page) Select(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault(selector); err != nil {
		return err
	}
	i := p.level(selector)
	if !p.onForm() || i < 0 {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}

	found := false
	for _, n := range p.nodes(i) {
		if n.Value == value {
			found = true
			break
		}
	}
	if !found {
		value = ""
	}

	p.cur.selected[i] = value
	for l := i + 1; l < len(p.cur.selected); l++ {
		p.cur.selected[l] = ""
	}
	return nil
}

func (p *Page) SetInput(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault(selector); err != nil {
		return err
	}
	if !p.onForm() || selector != p.form.DateInput {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	p.cur.date = value
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault(selector); err != nil {
		return err
	}
	caseType, ok := p.form.Submits[selector]
	if !p.onForm() || !ok {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	p.Clicks = append(p.Clicks, selector)

	q := Query{Date: p.cur.date, CaseType: caseType}
	for i, value := range p.cur.selected {
		if value == "" {
			break
		}
		for _, n := range p.nodes(i) {
			if n.Value == value {
				q.Path = append(q.Path, browser.Option{Value: n.Value, Label: n.Label})
				break
			}
		}
	}

	p.history = append(p.history, p.cur)
	next := p.cur
	next.selected = append([]string(nil), p.cur.selected...)
	next.onResults = true
	next.results = p.results(q)
	p.cur = next
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fault("html"); err != nil {
		return "", err
	}
	if p.cur.onResults {
		return p.cur.results, nil
	}

	var b strings.Builder
	b.WriteString("<html><body><form>")
	for _, sel := range p.form.Levels {
		fmt.Fprintf(&b, "<select data-selector=%q></select>", sel)
	}
	b.WriteString("</form></body></html>")
	return b.String(), nil
}

func (p *Page) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	if err := p.fault("print"); err != nil {
		return nil, err
	}
	return nil, browser.ErrPrintUnsupported
}

// Selected reports the value currently selected at each level.
func (p *Page) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cur.selected...)
}
