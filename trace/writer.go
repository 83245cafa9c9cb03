package trace

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// WriteTrace writes entries to w as a gzip-compressed little-endian stream:
// a uint32 entry count, then per entry one byte each of phase, thread id, op,
// and tensor, followed by the address as uint32 or uint64 per addrSize.
// addrSize must be 4 or 8 and is validated before anything is written.
//
// The returned checksum is the IEEE CRC32 of the uncompressed payload, for
// external verification by the trace consumer.
func WriteTrace(w io.Writer, entries []Entry, addrSize int) (uint32, error) {
	if addrSize != 4 && addrSize != 8 {
		return 0, fmt.Errorf("addrSize must be 4 or 8, got %d", addrSize)
	}

	crc := crc32.NewIEEE()
	zw := gzip.NewWriter(w)
	out := io.MultiWriter(zw, crc)

	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(entries)))
	if _, err := out.Write(head[:]); err != nil {
		return 0, fmt.Errorf("failed to write trace header: %w", err)
	}

	rec := make([]byte, 4+addrSize)
	for _, e := range entries {
		rec[0] = uint8(e.Phase)
		rec[1] = e.ThreadID
		rec[2] = uint8(e.Op)
		rec[3] = uint8(e.Tensor)
		if addrSize == 4 {
			binary.LittleEndian.PutUint32(rec[4:], uint32(e.Addr))
		} else {
			binary.LittleEndian.PutUint64(rec[4:], e.Addr)
		}
		if _, err := out.Write(rec); err != nil {
			return 0, fmt.Errorf("failed to write trace entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish trace stream: %w", err)
	}
	return crc.Sum32(), nil
}

// WriteTraceFile writes the trace to path. On any write failure the partial
// file is removed; no partial file is considered valid.
func WriteTraceFile(path string, entries []Entry, addrSize int) (uint32, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace file: %w", err)
	}

	crc, err := WriteTrace(f, entries, addrSize)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close trace file: %w", err)
	}
	return crc, nil
}

// ReadTrace reads back a stream produced by WriteTrace, primarily for
// verification tooling and tests.
func ReadTrace(r io.Reader, addrSize int) ([]Entry, error) {
	if addrSize != 4 && addrSize != 8 {
		return nil, fmt.Errorf("addrSize must be 4 or 8, got %d", addrSize)
	}

	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace stream: %w", err)
	}
	defer zr.Close()

	var head [4]byte
	if _, err := io.ReadFull(zr, head[:]); err != nil {
		return nil, fmt.Errorf("failed to read trace header: %w", err)
	}
	count := binary.LittleEndian.Uint32(head[:])

	entries := make([]Entry, 0, count)
	rec := make([]byte, 4+addrSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(zr, rec); err != nil {
			return nil, fmt.Errorf("failed to read trace entry %d: %w", i, err)
		}
		e := Entry{
			Phase:    Phase(rec[0]),
			ThreadID: rec[1],
			Op:       Op(rec[2]),
			Tensor:   Tensor(rec[3]),
		}
		if addrSize == 4 {
			e.Addr = uint64(binary.LittleEndian.Uint32(rec[4:]))
		} else {
			e.Addr = binary.LittleEndian.Uint64(rec[4:])
		}
		entries = append(entries, e)
	}
	return entries, nil
}
