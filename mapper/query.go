package mapper

import (
	"fmt"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

// QuerySet holds the cartesian product of unique coordinates and kernel
// offsets as parallel slices of length len(unique)*len(offsets). For offset
// index o and unique-coordinate index i, the global index is
// o*len(unique)+i.
type QuerySet struct {
	// Keys carries the query coordinate (unique coordinate plus offset)
	// together with the original input index of the unique coordinate that
	// generated it.
	Keys []coord.Indexed
	// PackedKeys is the packed form of Keys, index-aligned.
	PackedKeys []uint32
	// InIdx is the originating unique-coordinate index per query.
	InIdx []int
	// OffIdx is the originating offset index per query.
	OffIdx []int
	// Offsets is the raw offset value used per query.
	Offsets []coord.Coord3D
}

// Len returns the number of queries.
func (qs *QuerySet) Len() int { return len(qs.PackedKeys) }

// BuildQueries forms the query set (phase QRY). Construction is
// deterministic and single-threaded and, deliberately, records no trace
// entries. A query coordinate that leaves the key bit budget is an error.
func (p *Pipeline) BuildQueries(uniq []coord.Indexed, offsets []coord.Coord3D) (*QuerySet, error) {
	p.phase = trace.PhaseQRY

	total := len(uniq) * len(offsets)
	qs := &QuerySet{
		Keys:       make([]coord.Indexed, total),
		PackedKeys: make([]uint32, total),
		InIdx:      make([]int, total),
		OffIdx:     make([]int, total),
		Offsets:    make([]coord.Coord3D, total),
	}

	for offIdx, off := range offsets {
		for inIdx, ic := range uniq {
			globIdx := offIdx*len(uniq) + inIdx
			qc := ic.Coord.Add(off)
			key, err := qc.Key()
			if err != nil {
				return nil, fmt.Errorf("query %d (coord %v + offset %v): %w", globIdx, ic.Coord, off, err)
			}
			qs.Keys[globIdx] = coord.Indexed{Coord: qc, OrigIdx: ic.OrigIdx}
			qs.PackedKeys[globIdx] = key
			qs.InIdx[globIdx] = inIdx
			qs.OffIdx[globIdx] = offIdx
			qs.Offsets[globIdx] = off
		}
	}
	return qs, nil
}
