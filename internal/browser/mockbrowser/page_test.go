package mockbrowser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/court-causelist/backend/internal/browser"
)

var testForm = Form{
	URL:       "https://court.test/form",
	Levels:    []string{"#state", "#district", "#complex", "#judge"},
	DateInput: "#date",
	Submits:   map[string]string{"#civil": "civil", "#criminal": "criminal"},
}

func TestCascadePopulatesAfterSelection(t *testing.T) {
	ctx := context.Background()
	p := New(testForm, DefaultTree(), DefaultResults)
	require.NoError(t, p.Navigate(ctx, testForm.URL))

	districts, err := p.Options(ctx, "#district")
	require.NoError(t, err)
	assert.Len(t, districts, 1, "only the placeholder before a state is chosen")

	require.NoError(t, p.Select(ctx, "#state", "1"))
	districts, err = p.Options(ctx, "#district")
	require.NoError(t, err)
	assert.Equal(t, []browser.Option{{Value: "", Label: "Select"}, {Value: "1", Label: "Delhi"}}, districts)
}

func TestOptionsOffFormIsElementNotFound(t *testing.T) {
	ctx := context.Background()
	p := New(testForm, DefaultTree(), DefaultResults)
	require.NoError(t, p.Navigate(ctx, "https://court.test/other"))

	_, err := p.Options(ctx, "#state")
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
}

func TestSubmitAndBackRestoresForm(t *testing.T) {
	ctx := context.Background()
	p := New(testForm, DefaultTree(), DefaultResults)
	require.NoError(t, p.Navigate(ctx, testForm.URL))
	for i, v := range []string{"1", "1", "1", "2"} {
		require.NoError(t, p.Select(ctx, testForm.Levels[i], v))
	}
	require.NoError(t, p.SetInput(ctx, "#date", "2024-10-15"))

	require.NoError(t, p.Click(ctx, "#civil"))
	html, err := p.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "CC/002/2024")
	assert.NotContains(t, html, "CC/001/2024")

	_, err = p.Options(ctx, "#judge")
	assert.ErrorIs(t, err, browser.ErrElementNotFound, "results page has no form")

	require.NoError(t, p.Back(ctx))
	assert.Equal(t, []string{"1", "1", "1", "2"}, p.Selected())
	assert.Equal(t, []string{"#civil"}, p.Clicks)
}

func TestPrintPDFIsUnsupported(t *testing.T) {
	p := New(testForm, DefaultTree(), DefaultResults)
	_, err := p.PrintPDF(context.Background(), "<html></html>")
	assert.ErrorIs(t, err, browser.ErrPrintUnsupported)

	p.Faults["print"] = browser.ErrSessionUnavailable
	_, err = p.PrintPDF(context.Background(), "<html></html>")
	assert.ErrorIs(t, err, browser.ErrSessionUnavailable)
}
