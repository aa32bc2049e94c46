package tilecoder

import (
	"hash/fnv"
	"math"

	"keepaway/limits"
)

// GetTiles1 hashes a single scaled continuous value plus an integer context
// tuple into tilesPerGroup feature indices in [0, table.Size()), using the
// classic per-tiling displacement scheme (displacement vector of consecutive
// odd integers), so adjacent tilings are offset rather than coincident.
// out must have length tilesPerGroup.
func GetTiles1(out []int, tilesPerGroup int, table *CollisionTable, scaled float64, context [3]int) {
	for tiling := 0; tiling < tilesPerGroup; tiling++ {
		displacement := 2*tiling + 1
		quantized := int(math.Floor((scaled*float64(tilesPerGroup) + float64(tiling*displacement)) / float64(tilesPerGroup)))
		coords := []int{tiling, quantized, context[0], context[1], context[2]}
		out[tiling] = table.Index(coords)
	}
}

// HashLabel folds a joint machine state (the ordered per-agent label vector)
// down to a bounded non-negative int used to disambiguate tile-coded
// features across distinct machine states.
func HashLabel(jointLabels []string) int {
	h := fnv.New64a()
	for _, lbl := range jointLabels {
		_, _ = h.Write([]byte(lbl))
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum64()
	return int(sum % uint64(math.MaxInt32))
}

// ErrTooManyTilings is returned when F*TilingsPerGroup would exceed a
// configured maximum.
type ErrTooManyTilings struct {
	NumTilings, Max int
}

func (e *ErrTooManyTilings) Error() string {
	return "tilecoder: numTilings exceeds configured maximum"
}

// NumTilings returns TilingsPerGroup*F, rejecting it against maxNumTilings
// if one is configured (<= 0 disables the check).
func NumTilings(numStateVars, maxNumTilings int) (int, error) {
	n := limits.TilingsPerGroup * numStateVars
	if maxNumTilings > 0 && n > maxNumTilings {
		return 0, &ErrTooManyTilings{NumTilings: n, Max: maxNumTilings}
	}
	return n, nil
}

// LoadAction fills out with one joint choice's tile indices: the
// concatenation, across all F continuous feature dimensions, of the
// TilingsPerGroup tile indices produced for that dimension, given the joint
// machine state jointLabels and the chosen action index. out must already be
// sized F*TilingsPerGroup.
func LoadAction(out []int, state []float64, widths []float64, jointLabels []string, action int, table *CollisionTable) {
	h := HashLabel(jointLabels)
	F := len(state)
	for v := 0; v < F; v++ {
		scaled := state[v] / widths[v]
		ctx := [3]int{action, v, h}
		GetTiles1(out[v*limits.TilingsPerGroup:(v+1)*limits.TilingsPerGroup], limits.TilingsPerGroup, table, scaled, ctx)
	}
}
