package crawl

import "github.com/lepinkainen/brickmass/internal/parts"

// records is the ordered result set of one run. Records loaded from an earlier
// run that have not been seen again yet are kept behind the current ones, so a
// save at any point never loses previously stored data.
type records struct {
	pieces   []parts.Part
	position map[string]int
	previous []parts.Part
}

func newRecords(previous []parts.Part) *records {
	return &records{
		position: make(map[string]int),
		previous: previous,
	}
}

// put appends p, or replaces the earlier record with the same id.
func (r *records) put(p parts.Part) {
	if i, ok := r.position[p.ID]; ok {
		r.pieces[i] = p
		return
	}
	r.position[p.ID] = len(r.pieces)
	r.pieces = append(r.pieces, p)
}

func (r *records) len() int {
	return len(r.pieces)
}

// snapshot returns the document content: this run's records in discovery
// order followed by the not yet re-seen earlier records in their old order.
func (r *records) snapshot() []parts.Part {
	out := make([]parts.Part, 0, len(r.pieces)+len(r.previous))
	out = append(out, r.pieces...)

	emitted := make(map[string]bool, len(r.previous))
	for _, p := range r.previous {
		if _, seen := r.position[p.ID]; seen || emitted[p.ID] {
			continue
		}
		emitted[p.ID] = true
		out = append(out, p)
	}
	return out
}

// carried counts the earlier records that were not seen in this run.
func (r *records) carried() int {
	return len(r.snapshot()) - len(r.pieces)
}
