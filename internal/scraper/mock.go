package scraper

import (
	"context"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/browser/mockbrowser"
)

// MockPage lays out an in-memory form with the site's selectors, filled with
// the mock data set. Static levels are left to the site adapter.
func MockPage(site Site) *mockbrowser.Page {
	return newMockPage(site, mockbrowser.DefaultResults)
}

func newMockPage(site Site, results mockbrowser.ResultsFunc) *mockbrowser.Page {
	form := mockbrowser.Form{
		URL:       site.FormURL(),
		DateInput: site.DateInput(),
		Submits:   make(map[string]string),
	}
	for _, level := range Levels {
		if _, static := site.StaticOptions(level); static {
			continue
		}
		form.Levels = append(form.Levels, site.SelectorFor(level))
	}

	if site.SplitsCaseTypes() {
		form.Submits[site.SubmitControlFor(CaseCivil)] = string(CaseCivil)
		form.Submits[site.SubmitControlFor(CaseCriminal)] = string(CaseCriminal)
	} else {
		form.Submits[site.SubmitControlFor(CaseBoth)] = string(CaseBoth)
	}

	tree := mockbrowser.DefaultTree()
	if len(form.Levels) == 1 {
		tree = mockbrowser.JudgeNodes(site.Name() + " District Courts")
	}
	return mockbrowser.New(form, tree, results)
}

// MockOpener serves every request from a fresh mock page.
func MockOpener(site Site) Opener {
	return func(ctx context.Context) (browser.Page, func(), error) {
		return MockPage(site), func() {}, nil
	}
}
