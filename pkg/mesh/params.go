package mesh

// Parameters is a per-conversion configuration snapshot supplied by the
// settings panel. Values are used as given; the caller is responsible for
// supplying finite, non-negative values — no internal clamping happens.
type Parameters struct {
	// DepthScale multiplies the extrusion height. 1.0 means no extra
	// amplification.
	DepthScale float64 `json:"depthScale"`
	// BaseHeight lifts the whole relief by a constant offset ratio.
	BaseHeight float64 `json:"baseHeight"`
	// UseNormalMap reuses the photograph as a normal map input with a
	// fixed strength, purely as a visual approximation.
	UseNormalMap bool `json:"useNormalMap"`
	// AutoCenter recenters the built surface's bounding box at the origin
	// and resets its placement transform.
	AutoCenter bool `json:"autoCenter"`
}

// DefaultParameters returns the settings-panel defaults.
func DefaultParameters() Parameters {
	return Parameters{
		DepthScale:   1.0,
		BaseHeight:   0,
		UseNormalMap: false,
		AutoCenter:   true,
	}
}
