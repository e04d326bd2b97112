// Package parts holds the LEGO part record and the document it is persisted in.
package parts

// ExternalIDs maps a catalog name (BrickLink, BrickOwl, LDraw, ...) to its ids
// for a part, in the order the lookup API returned them.
type ExternalIDs map[string][]string

// EnrichmentStatus records how far enrichment got for a newly fetched part.
type EnrichmentStatus string

const (
	// StatusComplete means the lookup found a BrickLink id and the detail page was read.
	StatusComplete EnrichmentStatus = "complete"
	// StatusPartial means the detail page was read but some measurements were missing.
	StatusPartial EnrichmentStatus = "partial"
	// StatusNoBrickLinkID means the lookup succeeded without a BrickLink cross-reference.
	StatusNoBrickLinkID EnrichmentStatus = "no_bricklink_id"
	// StatusLookupUnavailable means the lookup API gave no usable answer.
	StatusLookupUnavailable EnrichmentStatus = "lookup_unavailable"
	// StatusDetailUnavailable means a BrickLink id was found but the detail fetch failed.
	StatusDetailUnavailable EnrichmentStatus = "detail_unavailable"
)

// Part is one catalog entry plus whatever physical data could be gathered for it.
// Nil pointers are serialized as null and mean "not known".
type Part struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	OverallRank int    `json:"overall_rank"`
	NumPieces   int    `json:"num_pieces"`
	NumSets     int    `json:"num_sets"`
	NumColors   int    `json:"num_colors"`
	BeginYear   int    `json:"begin_year"`
	EndYear     int    `json:"end_year"`
	TotalYears  int    `json:"total_years"`

	Weight             *float64    `json:"weight"`
	PackDimX           *float64    `json:"pack_dim_x"`
	PackDimY           *float64    `json:"pack_dim_y"`
	PackDimZ           *float64    `json:"pack_dim_z"`
	RebrickablePartNum *string     `json:"rebrickable_part_num"`
	ExternalIDs        ExternalIDs `json:"external_ids"`

	EnrichmentStatus EnrichmentStatus `json:"enrichment_status,omitempty"`
}

// HasDimensions reports whether all three packaging dimensions are known and non-zero.
func (p Part) HasDimensions() bool {
	for _, d := range []*float64{p.PackDimX, p.PackDimY, p.PackDimZ} {
		if d == nil || *d == 0 {
			return false
		}
	}
	return true
}

// WithEnrichmentFrom returns p with every enrichment field copied from prev.
// Catalog fields of p are left untouched.
func (p Part) WithEnrichmentFrom(prev Part) Part {
	p.Weight = prev.Weight
	p.PackDimX = prev.PackDimX
	p.PackDimY = prev.PackDimY
	p.PackDimZ = prev.PackDimZ
	p.RebrickablePartNum = prev.RebrickablePartNum
	p.ExternalIDs = prev.ExternalIDs
	p.EnrichmentStatus = prev.EnrichmentStatus
	return p
}

// Document is the on-disk shape of the result set.
type Document struct {
	Pieces []Part `json:"pieces"`
}

// RawRow is one row of the ranked catalog listing, already parsed into numbers.
type RawRow struct {
	Name        string
	ID          string
	OverallRank int
	NumPieces   int
	NumSets     int
	NumColors   int
	BeginYear   int
	EndYear     int
	TotalYears  int
}

// Part converts the row into a record with no enrichment data.
func (r RawRow) Part() Part {
	return Part{
		Name:        r.Name,
		ID:          r.ID,
		OverallRank: r.OverallRank,
		NumPieces:   r.NumPieces,
		NumSets:     r.NumSets,
		NumColors:   r.NumColors,
		BeginYear:   r.BeginYear,
		EndYear:     r.EndYear,
		TotalYears:  r.TotalYears,
	}
}

// Status tells whether a source produced data for a request.
type Status int

const (
	Unavailable Status = iota
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "unavailable"
}

// Lookup is the answer of the cross-reference lookup for one part id.
type Lookup struct {
	Status Status
	// Reason explains an Unavailable result.
	Reason string

	PartNum     string
	BrickLinkID string
	ExternalIDs ExternalIDs
}

// LookupUnavailable builds an Unavailable lookup with the given reason.
func LookupUnavailable(reason string) Lookup {
	return Lookup{Status: Unavailable, Reason: reason}
}

// Measurements is the physical data read from a detail page. Any field may be
// nil even when Status is Found.
type Measurements struct {
	Status Status
	Reason string

	Weight   *float64
	PackDimX *float64
	PackDimY *float64
	PackDimZ *float64
}

// MeasurementsUnavailable builds an Unavailable result with all values absent.
func MeasurementsUnavailable(reason string) Measurements {
	return Measurements{Status: Unavailable, Reason: reason}
}

// Complete reports whether weight and all three dimensions were found.
func (m Measurements) Complete() bool {
	return m.Weight != nil && m.PackDimX != nil && m.PackDimY != nil && m.PackDimZ != nil
}
