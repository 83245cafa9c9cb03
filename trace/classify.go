package trace

// wvRegionSpan bounds the WV region, which has no following base address to
// terminate it.
const wvRegionSpan = 2 << 32

// Classifier maps raw addresses to logical tensor regions by testing them
// against an ordered list of half-open [base, nextBase) ranges derived from
// the configured base addresses.
//
// The TILE region has no range of its own: TileBase aliases IBase in the
// default layout, so tile-scan reads classify as tensor I. With a layout
// that moves TileBase elsewhere those reads may classify as another tensor
// or Unknown; the range list deliberately preserves that behavior.
type Classifier struct {
	ranges []region
}

type region struct {
	lo, hi uint64
	tensor Tensor
}

// NewClassifier builds a classifier from the configured base addresses.
func NewClassifier(cfg *Config) *Classifier {
	return &Classifier{ranges: []region{
		{cfg.IBase, cfg.QKBase, TensorI},
		{cfg.QKBase, cfg.QIBase, TensorQK},
		{cfg.QIBase, cfg.QOBase, TensorQI},
		{cfg.QOBase, cfg.PivBase, TensorQO},
		{cfg.PivBase, cfg.KMBase, TensorPIV},
		{cfg.KMBase, cfg.WCBase, TensorKM},
		{cfg.WCBase, cfg.IVBase, TensorWC},
		{cfg.IVBase, cfg.GMBase, TensorIV},
		{cfg.GMBase, cfg.WVBase, TensorGM},
		{cfg.WVBase, cfg.WVBase + wvRegionSpan, TensorWV},
	}}
}

// Tensor classifies addr. Addresses outside every configured region return
// TensorUnknown; that is a supported fallback, not an error.
func (c *Classifier) Tensor(addr uint64) Tensor {
	for _, r := range c.ranges {
		if addr >= r.lo && addr < r.hi {
			return r.tensor
		}
	}
	return TensorUnknown
}
