// Package report turns cause lists into downloadable PDFs and zip bundles.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/storage/models"
)

// Printer converts an HTML document to PDF. browser.Page implements it.
// A nil Printer, or one returning browser.ErrPrintUnsupported, falls back to
// Document.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

const Disclaimer = "Note: This cause list is generated from publicly available data and may differ from the actual court cause list."

var pageTemplate = template.Must(template.New("causelist").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Cause List - {{.List.JudgeName}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 24px; }
h1 { text-align: center; color: #00008b; font-size: 16pt; margin-bottom: 24px; }
.header { font-size: 11pt; margin-bottom: 18px; line-height: 1.5; }
table { border-collapse: collapse; width: 100%; font-size: 8pt; }
th { background: #808080; color: #f5f5f5; font-size: 10pt; text-align: left; padding: 6px 4px 10px; }
td { background: #f5f5dc; vertical-align: top; padding: 4px; }
th, td { border: 1px solid #000; }
.footer { margin-top: 28px; font-size: 9pt; }
</style>
</head>
<body>
<h1>CAUSE LIST</h1>
<div class="header">
<b>Court:</b> {{.List.CourtName}}<br>
<b>Judge:</b> {{.List.JudgeName}}<br>
<b>Date:</b> {{.List.Date}}<br>
<b>Case Type:</b> {{upper .List.CaseType}}
</div>
{{if .List.Entries}}
<table>
<thead><tr><th>Sr. No.</th><th>Case Number</th><th>Case Title</th><th>Petitioner</th><th>Respondent</th><th>Advocate</th><th>Purpose</th></tr></thead>
<tbody>
{{range .List.Entries}}<tr><td>{{.SrNo}}</td><td>{{.CaseNumber}}</td><td>{{.CaseTitle}}</td><td>{{.Petitioner}}</td><td>{{.Respondent}}</td><td>{{.Advocate}}</td><td>{{.Purpose}}</td></tr>
{{end}}</tbody>
</table>
{{else}}
<p>No cases listed for this date.</p>
{{end}}
<div class="footer">
Generated on: {{.Generated}}<br>
{{.Disclaimer}}
</div>
</body>
</html>
`))

type Renderer struct {
	log *zap.Logger
	now func() time.Time
}

func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log, now: time.Now}
}

// HTML renders the printable document of one cause list.
func (r *Renderer) HTML(list models.CauseList) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		List       models.CauseList
		Generated  string
		Disclaimer string
	}{
		List:       list,
		Generated:  r.now().Format("2006-01-02 15:04:05"),
		Disclaimer: Disclaimer,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render cause list: %w", err)
	}
	return buf.String(), nil
}

// Render prints one cause list into dir and returns the file's path.
func (r *Renderer) Render(ctx context.Context, printer Printer, list models.CauseList, dir string) (string, error) {
	pdf, err := r.print(ctx, printer, list)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, Filename(list))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}
	return path, nil
}

func (r *Renderer) print(ctx context.Context, printer Printer, list models.CauseList) ([]byte, error) {
	if printer != nil {
		html, err := r.HTML(list)
		if err != nil {
			return nil, err
		}
		pdf, err := printer.PrintPDF(ctx, html)
		if !errors.Is(err, browser.ErrPrintUnsupported) {
			if err != nil {
				return nil, fmt.Errorf("failed to print cause list: %w", err)
			}
			return pdf, nil
		}
	}
	return Document(list, r.now())
}

// RenderAll renders every list, skipping the ones that fail.
func (r *Renderer) RenderAll(ctx context.Context, printer Printer, lists []models.CauseList, dir string) []string {
	paths := make([]string, 0, len(lists))
	for _, list := range lists {
		path, err := r.Render(ctx, printer, list, dir)
		if err != nil {
			r.log.Error("Failed to generate PDF",
				zap.String("judge", list.JudgeName),
				zap.String("case_type", list.CaseType),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// Filename is causelist_<judge>_<date>_<case type>.pdf with the judge name
// reduced to letters, digits, spaces, '-' and '_', and spaces turned into '_'.
func Filename(list models.CauseList) string {
	return fmt.Sprintf("causelist_%s_%s_%s.pdf", SafeName(list.JudgeName), SafeName(list.Date), SafeName(list.CaseType))
}

func SafeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
}

// NewOutputDir creates base/cause_lists_<timestamp>_<run>. The run id keeps
// fetches started in the same second apart.
func NewOutputDir(base string, now time.Time, runID string) (string, error) {
	dir := filepath.Join(base, "cause_lists_"+now.Format("20060102_150405")+"_"+SafeName(runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}
