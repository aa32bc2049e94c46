// Package limits exposes the core's fixed capacity constants as explicit,
// overridable defaults rather than compile-time macros. The Default* values
// are only the defaults wired up by config.Default; components take the
// actual values as constructor parameters. TilingsPerGroup is used directly
// by the tile coder.
package limits

const (
	// DefaultNumWeights is the dense weight/trace array capacity.
	DefaultNumWeights = 1 << 20
	// DefaultMaxActions bounds the joint choice space (prod k_i).
	DefaultMaxActions = 256
	// TilingsPerGroup is the number of tilings generated per continuous
	// feature dimension by the tile coder, fixed at 32.
	TilingsPerGroup = 32
	// DefaultMaxStateVars bounds the continuous feature count F.
	DefaultMaxStateVars = 64
	// DefaultMaxNumTilings bounds numTilings = TilingsPerGroup * F.
	DefaultMaxNumTilings = TilingsPerGroup * DefaultMaxStateVars
	// DefaultMaxNZ bounds the sparse eligibility-trace support size.
	DefaultMaxNZ = 1 << 16
	// MaxLabelBytes is the bound on a machine-state label's encoded length.
	// No package checks labels against it.
	MaxLabelBytes = 1023
)
