// Package consensus holds the chain's consensus parameters and the pure
// rule functions (block reward, coinbase maturity, median-time-past,
// difficulty retargeting) that do not depend on any particular block or
// transaction instance.
package consensus

// Mode selects which of the two built-in parameter profiles a Params value
// was constructed from.
type Mode string

// The two supported profiles.
const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// Params is an immutable value carrying every consensus constant a
// validator, miner, or difficulty calculation needs. It is constructed once
// at coordinator creation and passed by reference from then on, never
// mutated. Pure functions like ExpectedDifficulty can then depend only on
// committed chain state plus this value, never on hidden instance state.
type Params struct {
	Mode               Mode
	MaxTargetBits      uint32 // genesis / easiest-allowed compact target.
	AdjustmentInterval uint32 // blocks between difficulty retargets.
	TargetBlockTimeSec int64
	CoinbaseMaturity   uint32
}

// Dev returns the fast-iterating development profile: easy difficulty,
// short retarget interval, 5-second target block time, shallow maturity.
func Dev() Params {
	return Params{
		Mode:               ModeDev,
		MaxTargetBits:      0x1f0fffff,
		AdjustmentInterval: 10,
		TargetBlockTimeSec: 5,
		CoinbaseMaturity:   5,
	}
}

// Prod returns the production-shaped profile matching Bitcoin's own
// genesis difficulty, retarget interval, and block time.
func Prod() Params {
	return Params{
		Mode:               ModeProd,
		MaxTargetBits:      0x1d00ffff,
		AdjustmentInterval: 2016,
		TargetBlockTimeSec: 600,
		CoinbaseMaturity:   100,
	}
}

// ExpectedTimespan is the total wall-clock time a full adjustment interval
// is supposed to take at the target block time.
func (p Params) ExpectedTimespan() int64 {
	return int64(p.AdjustmentInterval) * p.TargetBlockTimeSec
}

// GenesisTimestamp is the hardcoded unix timestamp every profile's genesis
// block carries. It is Bitcoin's own genesis timestamp, reused here as a
// fixed constant rather than wall-clock time, so construction is
// reproducible.
const GenesisTimestamp = 1231006505
