package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CatalogRow is one row of a synthetic listing page. Empty strings leave the
// corresponding cell out of the markup.
type CatalogRow struct {
	Name       string
	ID         string
	Rank       string
	Pieces     string
	Sets       string
	Colors     string
	Years      string
	TotalYears string
}

// CatalogHTML renders rows in the markup of the ranked parts listing.
func CatalogHTML(rows ...CatalogRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="parts_results tablestyle mostcommon"><div class="thead"><div class="tr">header</div></div><div class="tbody">`)
	for _, r := range rows {
		b.WriteString(`<div class="tr">`)
		cell(&b, `<span class="partname">%s</span>`, r.Name)
		cell(&b, `<span class="partnum">%s</span>`, r.ID)
		cell(&b, `<div class="weighted_rank selected">%s</div>`, r.Rank)
		cell(&b, `<div class="num_pieces"><span class="largetext">%s</span></div>`, r.Pieces)
		cell(&b, `<div class="num_sets"><span class="largetext">%s</span></div>`, r.Sets)
		cell(&b, `<div class="num_colors"><span class="largetext">%s</span></div>`, r.Colors)
		if r.Years != "" || r.TotalYears != "" {
			b.WriteString(`<div class="years_produced">`)
			cell(&b, `<span class="largetext">%s</span>`, r.Years)
			cell(&b, `<span class="smalltext">%s</span>`, r.TotalYears)
			b.WriteString(`</div>`)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}

func cell(b *strings.Builder, format, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, format, value)
}

// DetailHTML renders a catalog item page with the given weight text and
// dimension spans. Empty weight leaves the weight element out.
func DetailHTML(weight string, dimSpans ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	if weight != "" {
		fmt.Fprintf(&b, `<tr><td>Weight: <span id="item-weight-info">%s</span></td></tr>`, weight)
	}
	for _, d := range dimSpans {
		fmt.Fprintf(&b, `<tr><td>Pack Dim: <span id="dimSec">%s</span></td></tr>`, d)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

// LookupResult is one entry of a synthetic lookup API response.
type LookupResult struct {
	PartNum     string              `json:"part_num"`
	Name        string              `json:"name,omitempty"`
	ExternalIDs map[string][]string `json:"external_ids"`
}

// LookupJSON renders a lookup API response containing results.
func LookupJSON(results ...LookupResult) string {
	if results == nil {
		results = []LookupResult{}
	}
	body, err := json.Marshal(map[string]any{
		"count":    len(results),
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}
