package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds the read-mostly runtime configuration for a pipeline run:
// the base address of each simulated tensor region, the virtual thread
// count, the element sizes used to scale addresses, and the debug flag.
//
// A Config is supplied fully initialized before the pipeline starts and must
// not be mutated afterwards, with the sole exception of Debug, which only
// gates diagnostic printing and may be toggled (and read) without
// synchronization.
type Config struct {
	NumThreads int

	SizeKey    uint64
	SizeInt    uint64
	SizeWeight uint64

	IBase   uint64
	QKBase  uint64
	QIBase  uint64
	QOBase  uint64
	PivBase uint64
	KMBase  uint64
	WCBase  uint64
	IVBase  uint64
	GMBase  uint64
	WVBase  uint64

	// TileBase is where tile-scan reads are issued. It aliases IBase by
	// default, so those reads classify as tensor I.
	TileBase uint64

	Debug bool
}

// DefaultConfig returns the standard simulated address-space layout.
func DefaultConfig() *Config {
	cfg := &Config{
		NumThreads: 4,
		SizeKey:    4,
		SizeInt:    4,
		SizeWeight: 4,
		IBase:      0x10000000,
		QKBase:     0x20000000,
		QIBase:     0x30000000,
		QOBase:     0x40000000,
		PivBase:    0x50000000,
		KMBase:     0x60000000,
		WCBase:     0x80000000,
		IVBase:     0x100000000,
		GMBase:     0x800000000,
		WVBase:     0xF00000000,
	}
	cfg.TileBase = cfg.IBase
	return cfg
}

// configFile is the on-disk JSON shape. Base addresses may be JSON numbers
// or "0x..." hex strings.
type configFile struct {
	Debug      *bool    `json:"debug"`
	NumThreads *int     `json:"NUM_THREADS"`
	SizeKey    *uint64  `json:"SIZE_KEY"`
	SizeInt    *uint64  `json:"SIZE_INT"`
	SizeWeight *uint64  `json:"SIZE_WEIGHT"`
	IBase      *hexAddr `json:"I_BASE"`
	QKBase     *hexAddr `json:"QK_BASE"`
	QIBase     *hexAddr `json:"QI_BASE"`
	QOBase     *hexAddr `json:"QO_BASE"`
	PivBase    *hexAddr `json:"PIV_BASE"`
	KMBase     *hexAddr `json:"KM_BASE"`
	WCBase     *hexAddr `json:"WO_BASE"`
	IVBase     *hexAddr `json:"IV_BASE"`
	GMBase     *hexAddr `json:"GM_BASE"`
	WVBase     *hexAddr `json:"WV_BASE"`
}

// hexAddr decodes either a JSON number or a "0x"-prefixed string.
type hexAddr uint64

func (h *hexAddr) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", s, err)
		}
		*h = hexAddr(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*h = hexAddr(v)
	return nil
}

// LoadConfig reads a JSON configuration file and overlays it on the
// defaults. Fields absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if file.Debug != nil {
		cfg.Debug = *file.Debug
	}
	if file.NumThreads != nil {
		cfg.NumThreads = *file.NumThreads
	}
	if file.SizeKey != nil {
		cfg.SizeKey = *file.SizeKey
	}
	if file.SizeInt != nil {
		cfg.SizeInt = *file.SizeInt
	}
	if file.SizeWeight != nil {
		cfg.SizeWeight = *file.SizeWeight
	}
	setAddr := func(dst *uint64, src *hexAddr) {
		if src != nil {
			*dst = uint64(*src)
		}
	}
	setAddr(&cfg.IBase, file.IBase)
	setAddr(&cfg.QKBase, file.QKBase)
	setAddr(&cfg.QIBase, file.QIBase)
	setAddr(&cfg.QOBase, file.QOBase)
	setAddr(&cfg.PivBase, file.PivBase)
	setAddr(&cfg.KMBase, file.KMBase)
	setAddr(&cfg.WCBase, file.WCBase)
	setAddr(&cfg.IVBase, file.IVBase)
	setAddr(&cfg.GMBase, file.GMBase)
	setAddr(&cfg.WVBase, file.WVBase)
	cfg.TileBase = cfg.IBase

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.NumThreads <= 0 {
		return fmt.Errorf("NumThreads must be positive, got %d", c.NumThreads)
	}
	if c.NumThreads > 256 {
		return fmt.Errorf("NumThreads %d exceeds the 8-bit thread id space", c.NumThreads)
	}
	if c.SizeKey == 0 || c.SizeInt == 0 {
		return fmt.Errorf("element sizes must be positive")
	}
	return nil
}
