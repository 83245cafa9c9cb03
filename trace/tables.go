// Package trace models the memory traffic of the mapping pipeline. It
// provides the phase/tensor/operation code tables, the runtime configuration
// describing the simulated address space, address-to-tensor classification,
// a thread-safe access recorder, and the compressed binary trace writer.
package trace

import "fmt"

// Phase identifies a pipeline stage. Phase codes tag trace entries and appear
// verbatim in the binary trace format.
type Phase uint8

const (
	PhaseRDX Phase = iota // deduplication / simulated radix sort
	PhaseQRY              // query construction
	PhaseSRT              // generic sort
	PhasePVT              // tiling and pivot selection
	PhaseLKP              // concurrent lookup
	PhaseGTH              // gather (downstream, not executed here)
	PhaseSCT              // scatter (downstream, not executed here)

	// PhaseNone marks that no phase is executing. It is never recorded.
	PhaseNone Phase = 0xFF
)

var phaseNames = [...]string{"RDX", "QRY", "SRT", "PVT", "LKP", "GTH", "SCT"}

// Name returns the symbolic phase name.
func (p Phase) Name() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// PhaseFromName resolves a symbolic phase name to its code. Unknown names are
// a programming error in pipeline wiring and are reported as such.
func PhaseFromName(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase name %q", name)
}

// Op is a memory operation kind.
type Op uint8

const (
	OpR Op = 0 // read
	OpW Op = 1 // write
)

// Name returns "R" or "W".
func (o Op) Name() string {
	switch o {
	case OpR:
		return "R"
	case OpW:
		return "W"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// OpFromName resolves "R" or "W" to its code.
func OpFromName(name string) (Op, error) {
	switch name {
	case "R":
		return OpR, nil
	case "W":
		return OpW, nil
	}
	return 0, fmt.Errorf("unknown op name %q", name)
}

// Tensor names a logical memory region of the simulated address space. It is
// unrelated to numeric tensor data; it exists only to classify trace
// addresses.
type Tensor uint8

const (
	TensorI    Tensor = iota // input coordinate keys
	TensorQK                 // query keys
	TensorQI                 // query input indices
	TensorQO                 // query offset indices
	TensorPIV                // tile pivots
	TensorKM                 // kernel map
	TensorWC                 // weight coordinates
	TensorTILE               // tile storage (aliases the I region by default)
	TensorIV                 // input values
	TensorGM                 // gathered matrices
	TensorWV                 // weight values

	// TensorUnknown classifies addresses outside every configured region.
	TensorUnknown Tensor = 255
)

var tensorNames = [...]string{"I", "QK", "QI", "QO", "PIV", "KM", "WC", "TILE", "IV", "GM", "WV"}

// Name returns the symbolic tensor name.
func (t Tensor) Name() string {
	if int(t) < len(tensorNames) {
		return tensorNames[t]
	}
	if t == TensorUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("Tensor(%d)", uint8(t))
}
