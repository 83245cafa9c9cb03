// Package minumap builds kernel maps for sparse 3D convolution and models the
// memory traffic of doing so.
//
// Given a set of active input coordinates and a list of kernel offsets, the
// pipeline determines, for every offset, which input points have a neighbor at
// that offset. Alongside the kernel map it produces a replayable memory-access
// trace: every simulated read and write is tagged with the pipeline phase, a
// virtual worker id, the operation kind, and the logical tensor region its
// address falls in, so an external tool can replay the traffic against a
// memory-subsystem model.
//
// # Architecture Overview
//
// The pipeline runs four phases in strict order:
//
//   - RDX: quantize, pack, and deduplicate the input coordinates, driving a
//     simulated radix-sort access pattern over the packed keys
//   - QRY: form the cartesian product of unique coordinates and kernel
//     offsets into query keys
//   - PVT: partition the sorted unique coordinates into fixed-size tiles and
//     record one pivot key per tile
//   - LKP: resolve every query concurrently via pivot binary search plus tile
//     scan, populating the kernel map
//
// Both outputs are written as gzip-compressed little-endian binary streams
// with a CRC32 over the uncompressed payload returned for external
// verification.
//
// # Package Structure
//
//   - coord: 3D coordinate value type, quantization, and the 32-bit key codec
//   - trace: phase/tensor/op code tables, runtime configuration, address
//     classification, the shared access recorder, and the trace writer
//   - mapper: the phase pipeline, the kernel map, and the kernel-map writer
//   - cmd/minumap: command-line driver
//
// All shared state is owned by an explicit pipeline object; there are no
// package-level globals. See the mapper package for the concurrency model of
// the lookup phase.
package minumap
