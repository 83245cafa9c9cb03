package mapper

import (
	"fmt"
	"log"

	"github.com/sbl8/minumap/coord"
	"github.com/sbl8/minumap/trace"
)

// Tiling partitions the sorted unique coordinates into contiguous tiles.
// Tiles and pivots are index-aligned: tile i's pivot is Pivots[i], the
// tile's first element, and PivotKeys[i] its packed key. TileKeys carries
// the packed key of every tile element for the lookup scan.
type Tiling struct {
	Tiles     [][]coord.Indexed
	TileKeys  [][]uint32
	Pivots    []coord.Indexed
	PivotKeys []uint32
	// TileSize is the effective tile size after normalization; a
	// non-positive requested size becomes one tile covering everything.
	TileSize int
}

// Tile partitions uniq into fixed-size tiles and records one pivot write per
// tile (phase PVT). The last tile may be shorter. A tileSize of zero or less
// selects a single tile covering the whole sequence.
func (p *Pipeline) Tile(uniq []coord.Indexed, tileSize int) (*Tiling, error) {
	p.phase = trace.PhasePVT

	tl := &Tiling{TileSize: tileSize}
	if len(uniq) == 0 {
		if p.cfg.Debug {
			log.Printf("PVT: no unique coordinates, skipping tile creation")
		}
		return tl, nil
	}
	if tl.TileSize <= 0 {
		tl.TileSize = len(uniq)
		if p.cfg.Debug {
			log.Printf("PVT: tile size not specified, using full range %d", tl.TileSize)
		}
	}

	for start := 0; start < len(uniq); start += tl.TileSize {
		end := start + tl.TileSize
		if end > len(uniq) {
			end = len(uniq)
		}
		tile := uniq[start:end]
		keys := make([]uint32, len(tile))
		for i, ic := range tile {
			key, err := ic.Key()
			if err != nil {
				return nil, fmt.Errorf("tile element %d: %w", start+i, err)
			}
			keys[i] = key
		}

		tl.Tiles = append(tl.Tiles, tile)
		tl.TileKeys = append(tl.TileKeys, keys)
		tl.Pivots = append(tl.Pivots, tile[0])
		tl.PivotKeys = append(tl.PivotKeys, keys[0])
		p.record(0, trace.OpW, p.cfg.PivBase+uint64(len(tl.Pivots)-1)*p.cfg.SizeKey)
	}

	if p.cfg.Debug {
		log.Printf("PVT: created %d tiles and %d pivots", len(tl.Tiles), len(tl.Pivots))
	}
	return tl, nil
}
