// Package mapper implements the sparse-convolution mapping pipeline: input
// deduplication, query construction, tiling, the concurrent lookup engine
// that populates the kernel map, and the kernel-map writer.
//
// The phases run in strict order RDX -> QRY -> PVT -> LKP. All shared state
// (configuration, the access recorder, the current phase tag) is owned by a
// Pipeline value created per run; nothing in this package is process-global.
package mapper

import (
	"fmt"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

// Pipeline owns the state of one mapping run. It is not safe to start two
// runs on the same Pipeline concurrently; the lookup phase parallelizes
// internally.
type Pipeline struct {
	cfg   *trace.Config
	rec   *trace.Recorder
	phase trace.Phase
}

// New creates a pipeline with a fresh access recorder.
func New(cfg *trace.Config) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		rec:   trace.NewRecorder(cfg),
		phase: trace.PhaseNone,
	}
}

// Config returns the pipeline's runtime configuration.
func (p *Pipeline) Config() *trace.Config { return p.cfg }

// Recorder returns the shared access recorder.
func (p *Pipeline) Recorder() *trace.Recorder { return p.rec }

// record tags an access with the currently executing phase.
func (p *Pipeline) record(threadID int, op trace.Op, addr uint64) {
	p.rec.Record(p.phase, threadID, op, addr)
}

// Result bundles the outputs of a full pipeline run.
type Result struct {
	Unique    []coord.Indexed
	Queries   *QuerySet
	Tiling    *Tiling
	KernelMap *KernelMap
}

// Run executes all four phases over the raw input coordinates and kernel
// offsets. The kernel map is handed to the downstream grouping stage; the
// access trace stays on the pipeline's recorder.
func (p *Pipeline) Run(coords, offsets []coord.Coord3D, stride int32, tileSize int) (*Result, error) {
	uniq, err := p.UniqueSorted(coords, stride)
	if err != nil {
		return nil, fmt.Errorf("dedup phase: %w", err)
	}

	qs, err := p.BuildQueries(uniq, offsets)
	if err != nil {
		return nil, fmt.Errorf("query phase: %w", err)
	}

	tl, err := p.Tile(uniq, tileSize)
	if err != nil {
		return nil, fmt.Errorf("tiling phase: %w", err)
	}

	km := p.Lookup(uniq, qs, tl)

	return &Result{Unique: uniq, Queries: qs, Tiling: tl, KernelMap: km}, nil
}
