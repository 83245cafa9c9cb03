package mapper

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

// BatchSize is the number of consecutive queries resolved per worker-pool
// round. Workers for one batch are joined before the next batch starts.
const BatchSize = 128

// progressInterval controls how often lookup progress is logged, in batches.
const progressInterval = 10

// Lookup resolves every query against the tiled index and populates the
// kernel map (phase LKP).
//
// Concurrency model: queries are processed in sequential batches of
// BatchSize. Each batch is ceil-divided into NumThreads contiguous
// sub-ranges with one goroutine per non-empty sub-range. A worker keeps a
// private access buffer and merges it into the shared recorder once its
// sub-range is done, under a lock distinct from the kernel map's, so the two
// critical sections never nest. Kernel-map write addresses are scaled by a
// strictly increasing offset taken from an atomic counter shared by all
// workers of the run.
//
// A query with no match contributes nothing; that is expected steady-state
// behavior, not an error. At most one match is recorded per query.
func (p *Pipeline) Lookup(uniq []coord.Indexed, qs *QuerySet, tl *Tiling) *KernelMap {
	p.phase = trace.PhaseLKP
	km := NewKernelMap()

	if len(uniq) == 0 || qs.Len() == 0 {
		p.phase = trace.PhaseNone
		return km
	}

	var kmapWriteIdx atomic.Uint64
	qryCount := qs.Len()
	numBatches := (qryCount + BatchSize - 1) / BatchSize
	numThreads := p.cfg.NumThreads

	if p.cfg.Debug {
		log.Printf("LKP: %d threads, %d batches", numThreads, numBatches)
	}

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		batchStart := batchIdx * BatchSize
		batchSize := qryCount - batchStart
		if batchSize > BatchSize {
			batchSize = BatchSize
		}

		portion := (batchSize + numThreads - 1) / numThreads
		var wg sync.WaitGroup
		for tid := 0; tid < numThreads; tid++ {
			start := tid * portion
			if start >= batchSize {
				break
			}
			end := start + portion
			if end > batchSize {
				end = batchSize
			}

			wg.Add(1)
			go func(tid, start, end int) {
				defer wg.Done()
				p.lookupRange(uniq, qs, tl, km, &kmapWriteIdx, tid, batchStart+start, batchStart+end)
			}(tid, start, end)
		}
		wg.Wait()

		if (batchIdx+1)%progressInterval == 0 || batchIdx+1 == numBatches {
			log.Printf("LKP progress: batch %d/%d", batchIdx+1, numBatches)
		}
	}

	p.phase = trace.PhaseNone
	return km
}

// lookupRange resolves queries [start, end) as worker tid. All accesses go
// to a private buffer merged into the shared recorder at the end, keeping
// the hot loop free of lock contention.
func (p *Pipeline) lookupRange(
	uniq []coord.Indexed,
	qs *QuerySet,
	tl *Tiling,
	km *KernelMap,
	kmapWriteIdx *atomic.Uint64,
	tid, start, end int,
) {
	classifier := p.rec.Classifier()
	local := make([]trace.Entry, 0, 4*(end-start))
	recordLocal := func(op trace.Op, addr uint64) {
		local = append(local, trace.Entry{
			Phase:    trace.PhaseLKP,
			ThreadID: uint8(tid),
			Op:       op,
			Tensor:   classifier.Tensor(addr),
			Addr:     addr,
		})
	}

	for globIdx := start; globIdx < end; globIdx++ {
		qryKey := qs.PackedKeys[globIdx]
		qrySrcIdx := qs.Keys[globIdx].OrigIdx
		offIdx := qs.OffIdx[globIdx]

		recordLocal(trace.OpR, p.cfg.QKBase+uint64(globIdx)*p.cfg.SizeKey)

		// Lower-bound search for the last pivot whose key <= the query
		// key. A query key below every pivot selects no tile.
		tileID := -1
		lo, hi := 0, len(tl.PivotKeys)-1
		for lo <= hi {
			mid := lo + (hi-lo)/2
			recordLocal(trace.OpR, p.cfg.PivBase+uint64(mid)*p.cfg.SizeKey)
			if tl.PivotKeys[mid] <= qryKey {
				tileID = mid
				lo = mid + 1
			} else {
				hi = mid - 1
			}
		}
		if tileID < 0 || tileID >= len(tl.Tiles) {
			continue
		}

		tileKeys := tl.TileKeys[tileID]
		for localIdx, elemKey := range tileKeys {
			elemIdx := tileID*tl.TileSize + localIdx
			if elemIdx >= len(uniq) {
				elemIdx = len(uniq) - 1
			}
			recordLocal(trace.OpR, p.cfg.TileBase+uint64(elemIdx)*p.cfg.SizeKey)

			if elemKey == qryKey {
				km.Append(offIdx, Match{
					InputIdx:    tl.Tiles[tileID][localIdx].OrigIdx,
					QuerySrcIdx: qrySrcIdx,
				})
				writeOff := kmapWriteIdx.Add(1) - 1
				recordLocal(trace.OpW, p.cfg.KMBase+writeOff*p.cfg.SizeInt)
				break
			}
		}
	}

	p.rec.Merge(local)
}
