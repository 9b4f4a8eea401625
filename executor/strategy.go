package executor

import (
	"context"
	"fmt"
	"math/big"
)

// Gas handling constants shared by both strategies.
const (
	// gasBufferNumerator / gasBufferDenominator apply the fixed +20%
	// safety buffer to gas estimates.
	gasBufferNumerator   = 120
	gasBufferDenominator = 100

	// FeeCappedGasCeiling is the hard gas limit for fee-capped networks.
	// Buffered estimates are clamped here, never exceeded.
	FeeCappedGasCeiling uint64 = 7_000_000

	// DefaultGasLimit is the conservative static fallback used when gas
	// estimation fails. Estimation failure is not fatal.
	DefaultGasLimit uint64 = 3_000_000
)

// strategy is the chain-specific execution behavior: how gas is bounded
// and which transaction fields are populated. Adding a chain family means
// adding a strategy and a map entry, not new conditionals.
type strategy interface {
	name() string

	// gasLimit returns the bounded gas limit for an estimate, or for the
	// static fallback when estimation failed.
	gasLimit(estimate uint64, estimationFailed bool) uint64

	// populate fills the strategy-specific transaction fields.
	populate(ctx context.Context, wallet WalletClient, tx *TxRequest, action Action) error
}

// feeCappedStrategy targets networks with a fixed maximum gas limit and no
// per-unit gas price field (the Hedera JSON-RPC relay). It omits GasPrice
// and Value entirely.
type feeCappedStrategy struct{}

func (feeCappedStrategy) name() string { return "fee-capped" }

func (feeCappedStrategy) gasLimit(estimate uint64, estimationFailed bool) uint64 {
	limit := DefaultGasLimit
	if !estimationFailed {
		limit = estimate * gasBufferNumerator / gasBufferDenominator
	}
	if limit > FeeCappedGasCeiling {
		limit = FeeCappedGasCeiling
	}
	return limit
}

func (feeCappedStrategy) populate(ctx context.Context, wallet WalletClient, tx *TxRequest, action Action) error {
	// No gas price and no native value field on this network family.
	tx.GasPrice = nil
	tx.Value = nil
	return nil
}

// standardEVMStrategy targets ordinary priced-gas EVM networks.
type standardEVMStrategy struct{}

func (standardEVMStrategy) name() string { return "standard-evm" }

func (standardEVMStrategy) gasLimit(estimate uint64, estimationFailed bool) uint64 {
	if estimationFailed {
		return DefaultGasLimit
	}
	return estimate * gasBufferNumerator / gasBufferDenominator
}

func (standardEVMStrategy) populate(ctx context.Context, wallet WalletClient, tx *TxRequest, action Action) error {
	gasPrice, err := wallet.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}
	tx.GasPrice = gasPrice
	if action.Value != nil && action.Value.Sign() > 0 {
		tx.Value = new(big.Int).Set(action.Value)
	}
	return nil
}

// feeCappedChainIDs is the static classification of chain ids onto the
// fee-capped strategy. Unknown chains default to the standard EVM
// strategy.
var feeCappedChainIDs = map[int64]struct{}{
	295: {}, // Hedera mainnet
	296: {}, // Hedera testnet
}

// strategyFor classifies a chain id into exactly one execution strategy.
func strategyFor(chainID *big.Int) strategy {
	if chainID != nil {
		if _, ok := feeCappedChainIDs[chainID.Int64()]; ok {
			return feeCappedStrategy{}
		}
	}
	return standardEVMStrategy{}
}
