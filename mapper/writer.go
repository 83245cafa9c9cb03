package mapper

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"

	"github.com/sbl8/minumap/coord"
)

// WriteKernelMap writes the kernel map to w as a gzip-compressed
// little-endian stream: a uint32 total match count, then groups in
// SortedGroups order, one {packed offset key, input index, query source
// index} uint32 triple per match.
//
// A group whose offset index is out of bounds for offsets is skipped with a
// logged warning; serialization continues. The header count is the sum of
// all group lengths, counted before skipping, so a skipped group leaves the
// count larger than the number of triples actually written.
//
// The returned checksum is the IEEE CRC32 of the uncompressed payload.
func WriteKernelMap(w io.Writer, km *KernelMap, offsets []coord.Coord3D) (uint32, error) {
	groups := km.SortedGroups()

	// Resolve offset keys up front so a malformed offset aborts before any
	// bytes are written.
	offsetKeys := make([]uint32, len(offsets))
	for i, off := range offsets {
		key, err := off.Key()
		if err != nil {
			return 0, fmt.Errorf("offset %d: %w", i, err)
		}
		offsetKeys[i] = key
	}

	total := uint32(0)
	for _, g := range groups {
		total += uint32(len(g.Matches))
	}

	crc := crc32.NewIEEE()
	zw := gzip.NewWriter(w)
	out := io.MultiWriter(zw, crc)

	var buf [4]byte
	writeU32 := func(v uint32) error {
		binary.LittleEndian.PutUint32(buf[:], v)
		_, err := out.Write(buf[:])
		return err
	}

	if err := writeU32(total); err != nil {
		return 0, fmt.Errorf("failed to write kernel map header: %w", err)
	}

	for _, g := range groups {
		if g.OffsetIdx < 0 || g.OffsetIdx >= len(offsets) {
			log.Printf("kernel map: offset index %d out of bounds for offset list (size %d), skipping group",
				g.OffsetIdx, len(offsets))
			continue
		}
		offKey := offsetKeys[g.OffsetIdx]
		for _, match := range g.Matches {
			if err := writeU32(offKey); err != nil {
				return 0, fmt.Errorf("failed to write kernel map entry: %w", err)
			}
			if err := writeU32(uint32(match.InputIdx)); err != nil {
				return 0, fmt.Errorf("failed to write kernel map entry: %w", err)
			}
			if err := writeU32(uint32(match.QuerySrcIdx)); err != nil {
				return 0, fmt.Errorf("failed to write kernel map entry: %w", err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish kernel map stream: %w", err)
	}
	return crc.Sum32(), nil
}

// WriteKernelMapFile writes the kernel map to path. On any write failure the
// partial file is removed; no partial file is considered valid.
func WriteKernelMapFile(path string, km *KernelMap, offsets []coord.Coord3D) (uint32, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open kernel map file: %w", err)
	}

	crc, err := WriteKernelMap(f, km, offsets)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close kernel map file: %w", err)
	}
	return crc, nil
}

// KernelMapEntry is one decoded record of the kernel-map stream.
type KernelMapEntry struct {
	OffsetKey   uint32
	InputIdx    uint32
	QuerySrcIdx uint32
}

// ReadKernelMap reads back a stream produced by WriteKernelMap, primarily
// for verification tooling and tests. The header count is returned alongside
// the decoded entries because the two may legitimately differ when groups
// were skipped during writing.
func ReadKernelMap(r io.Reader) (uint32, []KernelMapEntry, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open kernel map stream: %w", err)
	}
	defer zr.Close()

	var buf [4]byte
	if _, err := io.ReadFull(zr, buf[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read kernel map header: %w", err)
	}
	total := binary.LittleEndian.Uint32(buf[:])

	var entries []KernelMapEntry
	var rec [12]byte
	for {
		_, err := io.ReadFull(zr, rec[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("failed to read kernel map entry: %w", err)
		}
		entries = append(entries, KernelMapEntry{
			OffsetKey:   binary.LittleEndian.Uint32(rec[0:4]),
			InputIdx:    binary.LittleEndian.Uint32(rec[4:8]),
			QuerySrcIdx: binary.LittleEndian.Uint32(rec[8:12]),
		})
	}
	return total, entries, nil
}
