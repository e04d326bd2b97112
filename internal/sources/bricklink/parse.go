package bricklink

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/brickmass/internal/parts"
)

const (
	weightSelector = "#item-weight-info"
	dimSelector    = `span[id="dimSec"]`
)

var (
	weightPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*g?`)
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseMeasurements reads weight (grams) and packaging dimensions (cm) from a
// catalog item page. Values that cannot be found stay nil; the result is Found
// whenever the page itself could be parsed.
func ParseMeasurements(r io.Reader) (parts.Measurements, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return parts.Measurements{}, fmt.Errorf("failed to parse item page: %w", err)
	}

	m := parts.Measurements{Status: parts.Found}

	if sel := doc.Find(weightSelector).First(); sel.Length() > 0 {
		m.Weight = ParseWeight(sel.Text())
		if m.Weight == nil {
			slog.Debug("Could not parse weight", "text", strings.TrimSpace(sel.Text()))
		}
	} else {
		slog.Debug("Weight element not found")
	}

	doc.Find(dimSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		x, y, z, ok := ParseDimensions(s.Text())
		if !ok {
			return true
		}
		m.PackDimX, m.PackDimY, m.PackDimZ = &x, &y, &z
		return false
	})
	if m.PackDimX == nil {
		slog.Debug("No valid pack dimensions found")
	}

	return m, nil
}

// ParseWeight extracts the first decimal number of a weight label such as "2.32g".
func ParseWeight(s string) *float64 {
	match := weightPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return nil
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseDimensions reads "X x Y x Z cm". The text must mention cm and hold at
// least three numbers; the first three are returned in order.
func ParseDimensions(s string) (x, y, z float64, ok bool) {
	if !strings.Contains(s, "cm") {
		return 0, 0, 0, false
	}
	nums := numberPattern.FindAllString(s, -1)
	if len(nums) < 3 {
		slog.Debug("Found cm but too few numbers", "text", strings.TrimSpace(s), "numbers", len(nums))
		return 0, 0, 0, false
	}

	vals := make([]float64, 3)
	for i := range vals {
		v, err := strconv.ParseFloat(nums[i], 64)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}
