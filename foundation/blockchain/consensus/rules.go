package consensus

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/bitcoinnode/foundation/blockchain/transaction"
)

// HalvingInterval is the number of blocks between block reward halvings.
const HalvingInterval = 210_000

// InitialReward is the block reward in satoshis at height 0: 50 BTC.
const InitialReward = 50 * 100_000_000

// MedianTimePastWindow is the number of preceding blocks whose timestamps
// are used to compute Median Time Past.
const MedianTimePastWindow = 11

// MaxFutureBlockTimeSec is how far ahead of the validator's clock a block's
// timestamp may be before it is rejected.
const MaxFutureBlockTimeSec = 2 * 60 * 60

// BlockReward returns the block subsidy, in satoshis, for height, following
// the halving schedule: 50 BTC, halved every HalvingInterval blocks, down to
// zero once the shift would exceed 64 bits.
func BlockReward(height uint32) uint64 {
	halvings := height / HalvingInterval
	if halvings >= 64 {
		return 0
	}
	return InitialReward >> halvings
}

// MedianTimePast returns the median of the given timestamps, taking the
// lower of the two middle values when the count is even. This is Bitcoin
// Core's convention, preserved here rather than averaging or taking the
// upper one.
func MedianTimePast(timestamps []uint32) uint32 {
	sorted := make([]uint32, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1]
}

// ValidateTimestamp enforces the Median Time Past rule (only once at least
// MedianTimePastWindow ancestor timestamps are available) and the maximum
// future-time window against now.
func ValidateTimestamp(blockTimestamp uint32, ancestorTimestamps []uint32, now uint32) error {
	if len(ancestorTimestamps) >= MedianTimePastWindow {
		recent := ancestorTimestamps[len(ancestorTimestamps)-MedianTimePastWindow:]
		mtp := MedianTimePast(recent)
		if blockTimestamp <= mtp {
			return fmt.Errorf("%w: timestamp %d does not exceed median time past %d", ErrInvalidTimestamp, blockTimestamp, mtp)
		}
	}

	maxAllowed := now + MaxFutureBlockTimeSec
	if blockTimestamp > maxAllowed {
		return fmt.Errorf("%w: timestamp %d exceeds now+2h (%d)", ErrInvalidTimestamp, blockTimestamp, maxAllowed)
	}

	return nil
}

// ValidateCoinbaseStructure enforces that txs[0] (and only txs[0]) is a
// coinbase, and that the coinbase's total output value does not exceed the
// height's block reward plus the total fees collected from the block's
// other transactions.
func ValidateCoinbaseStructure(txs []transaction.Transaction, height uint32, totalFees int64) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: block has no transactions", ErrBadCoinbase)
	}
	if !txs[0].IsCoinbase() {
		return fmt.Errorf("%w: first transaction is not a coinbase", ErrBadCoinbase)
	}
	for i, tx := range txs[1:] {
		if tx.IsCoinbase() {
			return fmt.Errorf("%w: transaction at index %d is a coinbase", ErrBadCoinbase, i+1)
		}
	}

	var coinbaseTotal int64
	for _, out := range txs[0].Outputs {
		coinbaseTotal += out.Value
	}

	maxAllowed := int64(BlockReward(height)) + totalFees
	if coinbaseTotal > maxAllowed {
		return fmt.Errorf("%w: coinbase claims %d, maximum allowed is %d (reward %d + fees %d)",
			ErrBadCoinbase, coinbaseTotal, maxAllowed, BlockReward(height), totalFees)
	}

	return nil
}

// ValidateCoinbaseMaturity enforces that a spent coinbase output has
// accumulated at least CoinbaseMaturity confirmations by spendHeight.
// Non-coinbase outputs are always mature.
func ValidateCoinbaseMaturity(isCoinbase bool, outputHeight, spendHeight uint32, maturity uint32) error {
	if !isCoinbase {
		return nil
	}

	confirmations := spendHeight - outputHeight
	if confirmations < maturity {
		return fmt.Errorf("%w: has %d confirmations, needs %d", ErrImmatureCoinbase, confirmations, maturity)
	}
	return nil
}

// ValidateOutputAmounts enforces non-negative, individually-bounded, and
// sum-bounded output values against MaxMoney.
func ValidateOutputAmounts(outputs []transaction.Output) error {
	var total int64
	for i, out := range outputs {
		if out.Value < 0 {
			return fmt.Errorf("%w: output %d has negative value %d", ErrOutputOverflow, i, out.Value)
		}
		if out.Value > transaction.MaxMoney {
			return fmt.Errorf("%w: output %d value %d exceeds max money %d", ErrOutputOverflow, i, out.Value, transaction.MaxMoney)
		}
		total += out.Value
		if total > transaction.MaxMoney {
			return fmt.Errorf("%w: running output total %d exceeds max money %d", ErrOutputOverflow, total, transaction.MaxMoney)
		}
	}
	return nil
}

// ValidateNoDuplicateTxIDs enforces that every transaction in txs has a
// distinct TxID.
func ValidateNoDuplicateTxIDs(txs []transaction.Transaction) error {
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		id := tx.TxID().String()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
