package mapper

import (
	"fmt"
	"log"
	"sort"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

// radixPasses is the number of passes the simulated radix sort models, one
// per key byte.
const radixPasses = 4

// keyedIdx pairs a packed key with the index its coordinate held in the raw
// input list.
type keyedIdx struct {
	key     uint32
	origIdx int
}

// UniqueSorted quantizes and deduplicates the raw input coordinates (phase
// RDX). It returns one representative per distinct quantized key, ascending
// by key, each carrying the original index of the key's first sorted
// occurrence.
//
// The radix-sort access pattern over the packed keys is simulated for the
// trace; the actual ordering is done with a stable generic sort, so for
// equal keys input order is preserved and the representative's OrigIdx is
// the first occurrence of that key in input order.
func (p *Pipeline) UniqueSorted(coords []coord.Coord3D, stride int32) ([]coord.Indexed, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("stride must be positive, got %d", stride)
	}
	p.phase = trace.PhaseRDX

	pairs := make([]keyedIdx, 0, len(coords))
	for idx, c := range coords {
		key, err := c.Quantize(stride).Key()
		if err != nil {
			return nil, fmt.Errorf("input coordinate %d: %w", idx, err)
		}
		pairs = append(pairs, keyedIdx{key: key, origIdx: idx})
	}

	p.simulateRadixSort(len(pairs), p.cfg.IBase)

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].key < pairs[j].key
	})

	uniq := make([]coord.Indexed, 0, len(pairs))
	for i, pair := range pairs {
		if i > 0 && pair.key == pairs[i-1].key {
			continue
		}
		uniq = append(uniq, coord.Indexed{Coord: coord.FromKey(pair.key), OrigIdx: pair.origIdx})
	}

	if p.cfg.Debug {
		log.Printf("RDX: %d unique coordinates from %d inputs", len(uniq), len(coords))
		for _, ic := range uniq {
			key, _ := ic.Key()
			log.Printf("  key=0x%08x coord=%v origIdx=%d", key, ic.Coord, ic.OrigIdx)
		}
	}
	return uniq, nil
}

// simulateRadixSort records the access pattern of an n-element LSD radix
// sort without performing the partitioning. Per pass every element is read
// once while histogramming, then read and written once while building the
// auxiliary array. Accesses are distributed round-robin across worker ids.
func (p *Pipeline) simulateRadixSort(n int, base uint64) {
	for pass := 0; pass < radixPasses; pass++ {
		for i := 0; i < n; i++ {
			tid := i % p.cfg.NumThreads
			p.record(tid, trace.OpR, base+uint64(i)*p.cfg.SizeKey)
		}
		for i := 0; i < n; i++ {
			tid := i % p.cfg.NumThreads
			addr := base + uint64(i)*p.cfg.SizeKey
			p.record(tid, trace.OpR, addr)
			p.record(tid, trace.OpW, addr)
		}
	}
}
