package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/court-causelist/backend/internal/storage/models"
)

// minCells is the smallest row that is treated as a hearing rather than a
// spacer or section heading.
const minCells = 3

// ExtractEntries reads hearing rows from every table in html. The results
// table cannot be identified reliably, so all tables are scanned: the first
// row of each is taken as a header and rows with fewer than three cells are
// skipped. On a fault the entries are empty and the error only describes
// what went wrong; callers must treat it as "no data found".
func ExtractEntries(html string) (entries []models.HearingEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = fmt.Errorf("extract entries: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	entries = make([]models.HearingEntry, 0)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		// Rows of nested tables belong to the nested table only.
		rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(table)
		})
		if rows.Length() < 2 {
			return
		}
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td")
			if cells.Length() < minCells {
				return
			}
			entries = append(entries, entryFromCells(cells))
		})
	})

	return entries, nil
}

func entryFromCells(cells *goquery.Selection) models.HearingEntry {
	text := make([]string, cells.Length())
	cells.Each(func(i int, c *goquery.Selection) {
		text[i] = cellText(c)
	})
	col := func(i int) string {
		if i < len(text) {
			return text[i]
		}
		return ""
	}

	return models.HearingEntry{
		SrNo:       col(0),
		CaseNumber: col(1),
		CaseTitle:  col(2),
		Petitioner: col(3),
		Respondent: col(4),
		Advocate:   col(5),
		CaseType:   col(6),
		Stage:      col(7),
		Purpose:    col(8),
	}
}

// cellText collapses whitespace the way a rendered cell reads.
func cellText(c *goquery.Selection) string {
	return strings.Join(strings.Fields(c.Text()), " ")
}
