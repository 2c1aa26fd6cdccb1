package report

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/storage/models"
)

type fakePrinter struct {
	fail  map[string]bool
	htmls []string
}

func (p *fakePrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	for judge := range p.fail {
		if strings.Contains(html, judge) {
			return nil, errors.New("print failed")
		}
	}
	p.htmls = append(p.htmls, html)
	return []byte("%PDF-1.4 printed"), nil
}

func sampleList(judge, caseType string) models.CauseList {
	return models.CauseList{
		CourtName: "Patiala House Court Complex",
		JudgeName: judge,
		Date:      "2024-10-15",
		CaseType:  caseType,
		Entries: []models.HearingEntry{
			{SrNo: "1", CaseNumber: "CS/1/2024", CaseTitle: "A <b>vs</b> B", Purpose: "Hearing"},
		},
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		judge string
		want  string
	}{
		{"Hon'ble Judge 1 - Patiala House", "causelist_Honble_Judge_1_-_Patiala_House_2024-10-15_civil.pdf"},
		{"Sh. R.K. Sharma, ACJ ", "causelist_Sh_RK_Sharma_ACJ_2024-10-15_civil.pdf"},
		{"../../etc/passwd", "causelist_etcpasswd_2024-10-15_civil.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.judge, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(sampleList(tt.judge, "civil")))
		})
	}
}

func TestHTMLEscapesAndFormats(t *testing.T) {
	r := NewRenderer(nil)
	r.now = func() time.Time { return time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC) }

	html, err := r.HTML(sampleList("Judge 1", "criminal"))
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>CAUSE LIST</h1>")
	assert.Contains(t, html, "CRIMINAL")
	assert.Contains(t, html, "A &lt;b&gt;vs&lt;/b&gt; B")
	assert.Contains(t, html, "Generated on: 2024-10-15 09:30:00")
	assert.Contains(t, html, Disclaimer)
}

func TestRenderAllSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	printer := &fakePrinter{fail: map[string]bool{"Judge 2": true}}
	r := NewRenderer(nil)

	paths := r.RenderAll(context.Background(), printer, []models.CauseList{
		sampleList("Judge 1", "civil"),
		sampleList("Judge 2", "civil"),
		sampleList("Judge 3", "criminal"),
	}, dir)

	require.Len(t, paths, 2)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
	}
	assert.Equal(t, filepath.Join(dir, "causelist_Judge_3_2024-10-15_criminal.pdf"), paths[1])
}

type noPrinter struct{}

func (noPrinter) PrintPDF(context.Context, string) ([]byte, error) {
	return nil, browser.ErrPrintUnsupported
}

func TestRenderFallsBackToDocument(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(nil)

	for name, printer := range map[string]Printer{"unsupported": noPrinter{}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			path, err := r.Render(context.Background(), printer, sampleList("Judge 1", "civil"), dir)
			require.NoError(t, err)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
			assert.NotEqual(t, "%PDF-1.4 printed", string(data))
		})
	}
}

func TestDocumentCarriesEntries(t *testing.T) {
	list := sampleList("Judge 1", "civil")
	list.Entries = append(list.Entries, models.HearingEntry{
		SrNo: "2", CaseNumber: "CC/77/2024", CaseTitle: "State vs Kumar", Petitioner: "State", Advocate: "R. Mehta",
	})

	pdf, err := Document(list, time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	text := pdfText(t, pdf)
	assert.Contains(t, text, "CC/77/2024")
	assert.Contains(t, text, "R. Mehta")
	assert.Contains(t, text, "Generated on: 2024-10-15 09:30:00")
	assert.NotContains(t, text, "No cases listed")

	list.Entries = nil
	pdf, err = Document(list, time.Now())
	require.NoError(t, err)
	assert.Contains(t, pdfText(t, pdf), "No cases listed for this date.")
}

// pdfText inflates the page content streams so the drawn strings can be
// matched.
func pdfText(t *testing.T, pdf []byte) string {
	t.Helper()
	var out strings.Builder
	rest := pdf
	for {
		i := bytes.Index(rest, []byte("stream\n"))
		if i < 0 {
			break
		}
		rest = rest[i+len("stream\n"):]
		end := bytes.Index(rest, []byte("endstream"))
		require.GreaterOrEqual(t, end, 0)
		zr, err := zlib.NewReader(bytes.NewReader(rest[:end]))
		if err == nil {
			data, _ := io.ReadAll(zr)
			out.Write(data)
		}
		rest = rest[end+len("endstream"):]
	}
	return out.String()
}

func TestNewOutputDir(t *testing.T) {
	base := t.TempDir()
	at := time.Date(2024, 10, 15, 9, 30, 5, 0, time.UTC)
	dir, err := NewOutputDir(base, at, "run-a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "cause_lists_20241015_093005_run-a"), dir)
	assert.DirExists(t, dir)

	other, err := NewOutputDir(base, at, "run-b")
	require.NoError(t, err)
	assert.NotEqual(t, dir, other)
}

func TestTagged(t *testing.T) {
	assert.Equal(t, "cause_lists_2024-10-15_4f1c-9a.zip", Tagged(BundleName("2024-10-15"), "4f1c-9a"))
	assert.Equal(t, "causelist_Judge_3_2024-10-15_civil_r1.pdf", Tagged("causelist_Judge_3_2024-10-15_civil.pdf", "r1"))
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.pdf", "b.pdf"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		files = append(files, p)
	}

	path, err := Bundle(dir, BundleName("2024-10-15"), files)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cause_lists_2024-10-15.zip"), path)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names)
}

func TestBundleMissingFileRemovesZip(t *testing.T) {
	dir := t.TempDir()

	_, err := Bundle(dir, "out.zip", []string{filepath.Join(dir, "missing.pdf")})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.zip"))
}
