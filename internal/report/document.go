package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/court-causelist/backend/internal/storage/models"
)

var (
	tableHeader = []string{"Sr. No.", "Case Number", "Case Title", "Petitioner", "Respondent", "Advocate", "Purpose"}
	// Relative widths of the columns, scaled to the printable width.
	columnWeights = []float64{0.8, 1.5, 2, 1.5, 1.5, 1.2, 1}
)

const (
	pageMargin  = 15.0
	cellLineH  = 4.0
	headLineH  = 5.0
	cellPadding = 1.0
)

// Document lays out one cause list as an A4 PDF without a browser: title,
// court header, the hearing table and the generation footer.
func Document(list models.CauseList, generated time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Cause List - "+list.JudgeName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 10, "CAUSE LIST", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetTextColor(0, 0, 0)
	for _, field := range [][2]string{
		{"Court:", list.CourtName},
		{"Judge:", list.JudgeName},
		{"Date:", list.Date},
		{"Case Type:", strings.ToUpper(list.CaseType)},
	} {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(26, 6, field[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 6, tr(field[1]), "", "L", false)
	}
	pdf.Ln(6)

	if len(list.Entries) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, "No cases listed for this date.", "", "L", false)
	} else {
		writeTable(pdf, tr, list.Entries)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, "Generated on: "+generated.Format("2006-01-02 15:04:05"), "", "L", false)
	pdf.MultiCell(0, 5, Disclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to lay out cause list: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(pdf *fpdf.Fpdf) []float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	var total float64
	for _, w := range columnWeights {
		total += w
	}
	widths := make([]float64, len(columnWeights))
	for i, w := range columnWeights {
		widths[i] = usable * w / total
	}
	return widths
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, entries []models.HearingEntry) {
	widths := columnWidths(pdf)
	pdf.SetDrawColor(0, 0, 0)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(128, 128, 128)
		pdf.SetTextColor(245, 245, 245)
		writeRow(pdf, widths, tableHeader, headLineH)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	_, pageH := pdf.GetPageSize()
	for _, e := range entries {
		cells := []string{e.SrNo, e.CaseNumber, e.CaseTitle, e.Petitioner, e.Respondent, e.Advocate, e.Purpose}
		for i := range cells {
			cells[i] = tr(cells[i])
		}
		if pdf.GetY()+rowHeight(pdf, widths, cells, cellLineH) > pageH-pageMargin {
			pdf.AddPage()
			header()
		}
		writeRow(pdf, widths, cells, cellLineH)
	}
}

// rowHeight is the height of the tallest wrapped cell of the row.
func rowHeight(pdf *fpdf.Fpdf, widths []float64, cells []string, lineH float64) float64 {
	lines := 1
	for i, c := range cells {
		if n := len(pdf.SplitLines([]byte(c), widths[i]-2*cellPadding)); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineH + 2*cellPadding
}

func writeRow(pdf *fpdf.Fpdf, widths []float64, cells []string, lineH float64) {
	h := rowHeight(pdf, widths, cells, lineH)
	x, y := pdf.GetXY()
	for i, c := range cells {
		pdf.Rect(x, y, widths[i], h, "FD")
		pdf.SetXY(x+cellPadding, y+cellPadding)
		pdf.MultiCell(widths[i]-2*cellPadding, lineH, c, "", "L", false)
		x += widths[i]
	}
	left, _, _, _ := pdf.GetMargins()
	pdf.SetXY(left, y+h)
}
