package brickarchitect

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/brickmass/internal/parts"
)

const (
	rowSelector        = ".parts_results.tablestyle.mostcommon .tbody .tr"
	nameSelector       = ".partname"
	idSelector         = ".partnum"
	rankSelector       = ".weighted_rank.selected"
	piecesSelector     = ".num_pieces .largetext"
	setsSelector       = ".num_sets .largetext"
	colorsSelector     = ".num_colors .largetext"
	yearsSelector      = ".years_produced .largetext"
	totalYearsSelector = ".years_produced .smalltext"
)

// ParseRows extracts the part rows of one listing page. Rows without a name
// element or with an empty id are skipped; an empty name is kept. A page with no recognizable rows yields an empty slice.
func ParseRows(r io.Reader) ([]parts.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog HTML: %w", err)
	}

	rows := []parts.RawRow{}
	doc.Find(rowSelector).Each(func(_ int, s *goquery.Selection) {
		nameSel := s.Find(nameSelector).First()
		idSel := s.Find(idSelector).First()
		if nameSel.Length() == 0 || idSel.Length() == 0 {
			return
		}

		name := text(nameSel)
		id := text(idSel)
		if id == "" {
			return
		}

		begin, end := ParseYears(text(s.Find(yearsSelector).First()))
		rows = append(rows, parts.RawRow{
			Name:        name,
			ID:          id,
			OverallRank: ParseCount(text(s.Find(rankSelector).First())),
			NumPieces:   ParseCount(text(s.Find(piecesSelector).First())),
			NumSets:     ParseCount(text(s.Find(setsSelector).First())),
			NumColors:   ParseCount(text(s.Find(colorsSelector).First())),
			BeginYear:   begin,
			EndYear:     end,
			TotalYears:  ParseTotalYears(text(s.Find(totalYearsSelector).First())),
		})
	})

	return rows, nil
}

// ParseYears reads a "begin-end" production range. Anything else gives 0, 0.
func ParseYears(s string) (begin, end int) {
	first, second, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0
	}
	b, errB := strconv.Atoi(strings.TrimSpace(first))
	e, errE := strconv.Atoi(strings.TrimSpace(second))
	if errB != nil || errE != nil {
		return 0, 0
	}
	return b, e
}

// ParseCount reads an integer that may carry thousands separators ("12,345").
// Empty or malformed text gives 0.
func ParseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ParseTotalYears reads the leading number of a "6 years" style label.
func ParseTotalYears(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	return ParseCount(fields[0])
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
