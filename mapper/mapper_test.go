package mapper

import (
	"testing"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

func newTestPipeline(threads int) *Pipeline {
	cfg := trace.DefaultConfig()
	cfg.NumThreads = threads
	return New(cfg)
}

func TestUniqueSorted(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)

	coords := []coord.Coord3D{
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0}, // duplicate of index 1
		{X: 2, Y: 0, Z: 0}, // duplicate of index 0
	}

	uniq, err := p.UniqueSorted(coords, 1)
	if err != nil {
		t.Fatalf("UniqueSorted returned error: %v", err)
	}

	want := []coord.Indexed{
		{Coord: coord.Coord3D{X: 0, Y: 0, Z: 0}, OrigIdx: 1},
		{Coord: coord.Coord3D{X: 1, Y: 0, Z: 0}, OrigIdx: 2},
		{Coord: coord.Coord3D{X: 2, Y: 0, Z: 0}, OrigIdx: 0},
	}
	if len(uniq) != len(want) {
		t.Fatalf("got %d unique coords, want %d", len(uniq), len(want))
	}
	for i := range want {
		if uniq[i] != want[i] {
			t.Errorf("uniq[%d] = %+v, want %+v", i, uniq[i], want[i])
		}
	}

	// Output must be ascending by packed key.
	prev, _ := uniq[0].Key()
	for _, ic := range uniq[1:] {
		key, _ := ic.Key()
		if key <= prev {
			t.Errorf("unique coords not strictly ascending at %v", ic.Coord)
		}
		prev = key
	}
}

func TestUniqueSortedQuantizes(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)

	// All three collapse to quantized (0,0,1) under stride 2; the
	// representative original index is the first input occurrence.
	coords := []coord.Coord3D{
		{X: 1, Y: 0, Z: 2},
		{X: 0, Y: 1, Z: 3},
		{X: 1, Y: 1, Z: 2},
	}
	uniq, err := p.UniqueSorted(coords, 2)
	if err != nil {
		t.Fatalf("UniqueSorted returned error: %v", err)
	}
	if len(uniq) != 1 {
		t.Fatalf("got %d unique coords, want 1", len(uniq))
	}
	if uniq[0].Coord != (coord.Coord3D{X: 0, Y: 0, Z: 1}) || uniq[0].OrigIdx != 0 {
		t.Errorf("uniq[0] = %+v, want (0,0,1)@0", uniq[0])
	}
}

func TestUniqueSortedRejectsBadInput(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)

	if _, err := p.UniqueSorted([]coord.Coord3D{{X: 0, Y: 0, Z: 0}}, 0); err == nil {
		t.Error("UniqueSorted should reject a non-positive stride")
	}
	if _, err := p.UniqueSorted([]coord.Coord3D{{X: 4000, Y: 0, Z: 0}}, 1); err == nil {
		t.Error("UniqueSorted should reject a coordinate outside the key bit budget")
	}
}

func TestDedupTraceSimulation(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)
	cfg := p.Config()

	coords := []coord.Coord3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}}
	if _, err := p.UniqueSorted(coords, 1); err != nil {
		t.Fatal(err)
	}

	// Per radix pass: one read per element, then one read plus one write
	// per element.
	entries := p.Recorder().Entries()
	want := radixPasses * 3 * len(coords)
	if len(entries) != want {
		t.Fatalf("trace has %d entries, want %d", len(entries), want)
	}

	for i, e := range entries {
		if e.Phase != trace.PhaseRDX {
			t.Fatalf("entry %d phase = %s, want RDX", i, e.Phase.Name())
		}
		if e.Tensor != trace.TensorI {
			t.Fatalf("entry %d tensor = %s, want I", i, e.Tensor.Name())
		}
		if e.Addr < cfg.IBase || e.Addr >= cfg.IBase+uint64(len(coords))*cfg.SizeKey {
			t.Fatalf("entry %d addr 0x%x outside the key array", i, e.Addr)
		}
	}

	// First pass, first loop: reads round-robin across worker ids.
	for i := 0; i < len(coords); i++ {
		e := entries[i]
		if e.Op != trace.OpR {
			t.Errorf("entry %d op = %s, want R", i, e.Op.Name())
		}
		if int(e.ThreadID) != i%cfg.NumThreads {
			t.Errorf("entry %d thread = %d, want %d", i, e.ThreadID, i%cfg.NumThreads)
		}
	}
	// First pass, second loop: read then write per element.
	for i := 0; i < len(coords); i++ {
		rd := entries[len(coords)+2*i]
		wr := entries[len(coords)+2*i+1]
		if rd.Op != trace.OpR || wr.Op != trace.OpW {
			t.Errorf("element %d second-loop ops = %s,%s, want R,W", i, rd.Op.Name(), wr.Op.Name())
		}
		if rd.Addr != wr.Addr {
			t.Errorf("element %d read/write addresses differ: 0x%x vs 0x%x", i, rd.Addr, wr.Addr)
		}
	}
}

func TestBuildQueries(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)

	uniq, err := p.UniqueSorted([]coord.Coord3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	traceBefore := p.Recorder().Len()

	offsets := []coord.Coord3D{{X: 1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}}
	qs, err := p.BuildQueries(uniq, offsets)
	if err != nil {
		t.Fatalf("BuildQueries returned error: %v", err)
	}

	if qs.Len() != len(uniq)*len(offsets) {
		t.Fatalf("query count = %d, want %d", qs.Len(), len(uniq)*len(offsets))
	}

	for o := range offsets {
		for i := range uniq {
			g := o*len(uniq) + i
			wantCoord := uniq[i].Coord.Add(offsets[o])
			wantKey, err := wantCoord.Key()
			if err != nil {
				t.Fatal(err)
			}
			if qs.PackedKeys[g] != wantKey {
				t.Errorf("query %d key = 0x%08x, want 0x%08x", g, qs.PackedKeys[g], wantKey)
			}
			if qs.Keys[g].Coord != wantCoord || qs.Keys[g].OrigIdx != uniq[i].OrigIdx {
				t.Errorf("query %d = %+v, want coord %v origIdx %d", g, qs.Keys[g], wantCoord, uniq[i].OrigIdx)
			}
			if qs.InIdx[g] != i || qs.OffIdx[g] != o {
				t.Errorf("query %d indices = (%d,%d), want (%d,%d)", g, qs.InIdx[g], qs.OffIdx[g], i, o)
			}
			if qs.Offsets[g] != offsets[o] {
				t.Errorf("query %d offset = %v, want %v", g, qs.Offsets[g], offsets[o])
			}
		}
	}

	// The query phase deliberately records no accesses.
	if p.Recorder().Len() != traceBefore {
		t.Errorf("query construction recorded %d trace entries, want 0",
			p.Recorder().Len()-traceBefore)
	}
}

func TestTile(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)
	cfg := p.Config()

	var coords []coord.Coord3D
	for i := int32(0); i < 7; i++ {
		coords = append(coords, coord.Coord3D{X: i})
	}
	uniq, err := p.UniqueSorted(coords, 1)
	if err != nil {
		t.Fatal(err)
	}
	traceBefore := p.Recorder().Len()

	tl, err := p.Tile(uniq, 3)
	if err != nil {
		t.Fatalf("Tile returned error: %v", err)
	}

	if len(tl.Tiles) != 3 || len(tl.Pivots) != 3 {
		t.Fatalf("got %d tiles / %d pivots, want 3 / 3", len(tl.Tiles), len(tl.Pivots))
	}

	// Concatenation of all tiles equals the full sorted sequence.
	var flat []coord.Indexed
	for _, tile := range tl.Tiles {
		flat = append(flat, tile...)
	}
	if len(flat) != len(uniq) {
		t.Fatalf("tiles cover %d elements, want %d", len(flat), len(uniq))
	}
	for i := range uniq {
		if flat[i] != uniq[i] {
			t.Errorf("tile concatenation[%d] = %+v, want %+v", i, flat[i], uniq[i])
		}
	}

	// Pivot t is tile t's first element.
	for ti, tile := range tl.Tiles {
		if tl.Pivots[ti] != tile[0] {
			t.Errorf("pivot[%d] = %+v, want %+v", ti, tl.Pivots[ti], tile[0])
		}
		key, _ := tile[0].Key()
		if tl.PivotKeys[ti] != key {
			t.Errorf("pivotKey[%d] = 0x%08x, want 0x%08x", ti, tl.PivotKeys[ti], key)
		}
	}

	// One pivot write each, from worker 0, at the pivot array.
	entries := p.Recorder().Entries()[traceBefore:]
	if len(entries) != len(tl.Pivots) {
		t.Fatalf("tiling recorded %d entries, want %d", len(entries), len(tl.Pivots))
	}
	for i, e := range entries {
		if e.Phase != trace.PhasePVT || e.Op != trace.OpW || e.ThreadID != 0 {
			t.Errorf("pivot entry %d = %+v", i, e)
		}
		if want := cfg.PivBase + uint64(i)*cfg.SizeKey; e.Addr != want {
			t.Errorf("pivot entry %d addr = 0x%x, want 0x%x", i, e.Addr, want)
		}
		if e.Tensor != trace.TensorPIV {
			t.Errorf("pivot entry %d tensor = %s, want PIV", i, e.Tensor.Name())
		}
	}
}

func TestTileFullRange(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)

	uniq, err := p.UniqueSorted([]coord.Coord3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}, 1)
	if err != nil {
		t.Fatal(err)
	}

	for _, tileSize := range []int{0, -5} {
		tl, err := p.Tile(uniq, tileSize)
		if err != nil {
			t.Fatalf("Tile(%d) returned error: %v", tileSize, err)
		}
		if len(tl.Tiles) != 1 {
			t.Errorf("Tile(%d): got %d tiles, want 1", tileSize, len(tl.Tiles))
		}
		if tl.TileSize != len(uniq) {
			t.Errorf("Tile(%d): effective size = %d, want %d", tileSize, tl.TileSize, len(uniq))
		}
	}
}

func TestTileEmpty(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(4)
	tl, err := p.Tile(nil, 4)
	if err != nil {
		t.Fatalf("Tile returned error: %v", err)
	}
	if len(tl.Tiles) != 0 || len(tl.Pivots) != 0 {
		t.Errorf("empty input should produce no tiles, got %d/%d", len(tl.Tiles), len(tl.Pivots))
	}
}

func TestKernelMapSortedGroups(t *testing.T) {
	t.Parallel()
	km := NewKernelMap()
	km.Append(3, Match{0, 0})
	km.Append(1, Match{1, 0})
	km.Append(1, Match{2, 1})
	km.Append(7, Match{3, 2})
	km.Append(5, Match{4, 3})
	km.Append(5, Match{5, 4})

	groups := km.SortedGroups()
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(groups))
	}

	// Descending by length, equal lengths by ascending offset index.
	wantOrder := []int{1, 5, 3, 7}
	for i, g := range groups {
		if g.OffsetIdx != wantOrder[i] {
			t.Errorf("group %d offset = %d, want %d", i, g.OffsetIdx, wantOrder[i])
		}
	}
	if km.TotalMatches() != 6 {
		t.Errorf("TotalMatches = %d, want 6", km.TotalMatches())
	}
}

func TestKernelMapMatchesIsCopy(t *testing.T) {
	t.Parallel()
	km := NewKernelMap()
	km.Append(0, Match{1, 2})

	matches := km.Matches(0)
	matches[0] = Match{9, 9}
	if km.Matches(0)[0] != (Match{1, 2}) {
		t.Error("Matches should return an independent copy")
	}
}
