package consensus

import (
	"github.com/holiman/uint256"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/pow"
)

// MaxAdjustmentFactor bounds how much the target may grow or shrink in a
// single retarget: at most 4x easier or 4x harder.
const MaxAdjustmentFactor = 4

// ShouldAdjust reports whether height is a difficulty-retarget boundary.
// Height 0 (genesis) is never a boundary.
func ShouldAdjust(height uint32, interval uint32) bool {
	if height == 0 {
		return false
	}
	return height%interval == 0
}

// ExpectedDifficulty computes the compact difficulty bits a block at height
// must carry. periodFirstTimestamp and periodLastTimestamp are the first and
// last block timestamps of the interval just completed (the interval ending
// at height-1); currentBits is the bits those blocks were mined under. When
// height is not a retarget boundary, ExpectedDifficulty simply returns
// currentBits unchanged.
//
// This is a pure function of its arguments only, never of any mutable
// instance state. The same height and history always produce the same
// expected bits, from any caller.
func ExpectedDifficulty(height uint32, p Params, currentBits uint32, periodFirstTimestamp, periodLastTimestamp uint32) uint32 {
	if !ShouldAdjust(height, p.AdjustmentInterval) {
		return currentBits
	}

	actualTimespan := int64(periodLastTimestamp) - int64(periodFirstTimestamp)
	expectedTimespan := p.ExpectedTimespan()

	minTimespan := expectedTimespan / MaxAdjustmentFactor
	maxTimespan := expectedTimespan * MaxAdjustmentFactor

	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}

	oldTarget := pow.TargetFromCompact(currentBits)
	newTarget := new(uint256.Int).Mul(oldTarget, uint256.NewInt(uint64(actualTimespan)))
	newTarget.Div(newTarget, uint256.NewInt(uint64(expectedTimespan)))

	maxTarget := pow.TargetFromCompact(p.MaxTargetBits)
	if newTarget.Cmp(maxTarget) > 0 {
		newTarget = maxTarget
	}
	if newTarget.IsZero() {
		newTarget = uint256.NewInt(1)
	}

	return pow.CompactFromTarget(newTarget)
}
