// Package executor drives swap and bridge transactions through a
// wallet-connected client: network switch, token approval, bounded gas
// estimation, submission, and confirmation.
//
// The state machine per user action is
//
//	idle → checking → (needs_approval → approving → approved | approved)
//	     → executing → done
//
// with failure reachable from every step. At most one action is in flight
// per session; the executor resets the session before starting a new flow
// and clears in-flight state on completion or failure. Once a transaction
// is broadcast the flow is no longer cancellable; callers can only wait
// for, or fail on, confirmation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// ActionKind distinguishes swaps from bridges. Both follow the same
// pipeline; the kind is carried for logging and events.
type ActionKind string

const (
	// ActionSwap is a token swap.
	ActionSwap ActionKind = "swap"

	// ActionBridge is a cross-chain bridge transfer.
	ActionBridge ActionKind = "bridge"
)

// Action describes one swap or bridge request.
type Action struct {
	// Kind is the action kind.
	Kind ActionKind

	// Chain identifies the source chain and carries the registration
	// parameters used if the wallet does not know it.
	Chain ChainParams

	// Owner is the wallet address executing the action.
	Owner common.Address

	// Contract is the swap router or bridge contract.
	Contract common.Address

	// CallData is the encoded contract call.
	CallData []byte

	// Token is the asset being spent. The zero address means the native
	// asset, which needs no approval.
	Token common.Address

	// Amount is the spend amount in the token's smallest unit, used for
	// the allowance check and the approval request.
	Amount *big.Int

	// Value is the native value attached on priced-gas networks. The
	// fee-capped strategy ignores it.
	Value *big.Int
}

// erc20ABI covers the two calls the approval flow needs.
var erc20ABI = func() abi.ABI {
	const raw = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
	]`
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// errReceiptPending marks a not-yet-mined transaction during polling.
var errReceiptPending = errors.New("receipt not yet available")

// Executor runs swap and bridge actions against a WalletClient.
type Executor struct {
	wallet          WalletClient
	log             *zap.Logger
	onEvent         EventCallback
	receiptAttempts uint
	receiptDelay    time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEventCallback registers a lifecycle event callback.
func WithEventCallback(cb EventCallback) Option {
	return func(e *Executor) { e.onEvent = cb }
}

// WithReceiptPolling overrides the confirmation polling bounds.
func WithReceiptPolling(attempts uint, delay time.Duration) Option {
	return func(e *Executor) {
		if attempts > 0 {
			e.receiptAttempts = attempts
		}
		if delay > 0 {
			e.receiptDelay = delay
		}
	}
}

// New creates an executor for the given wallet client.
func New(wallet WalletClient, opts ...Option) *Executor {
	e := &Executor{
		wallet:          wallet,
		log:             zap.NewNop(),
		receiptAttempts: 30,
		receiptDelay:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute drives one action through the full pipeline. The session is
// reset first, so starting a new action never inherits interleaved
// approval state from a previous one. On failure the session carries the
// error and in-flight state is cleared; nothing is retried automatically
// beyond the single documented network-switch retry.
func (e *Executor) Execute(ctx context.Context, session *Session, action Action) error {
	session.Reset()

	if err := e.ensureChain(ctx, action.Chain); err != nil {
		return e.fail(session, action, err)
	}
	e.emit(Event{Type: EventNetworkSwitched, Kind: action.Kind})

	if action.Token != (common.Address{}) {
		if err := e.ensureApproval(ctx, session, action); err != nil {
			return e.fail(session, action, err)
		}
	} else {
		session.Approval = ApprovalGranted
	}

	session.Execution = ExecutionRunning

	tx := TxRequest{From: action.Owner, To: action.Contract, Data: action.CallData}
	strat := strategyFor(action.Chain.ChainID)

	estimate, estErr := e.wallet.EstimateGas(ctx, CallMsg{
		From:  action.Owner,
		To:    action.Contract,
		Data:  action.CallData,
		Value: action.Value,
	})
	if estErr != nil {
		e.log.Warn("gas estimation failed, using static default",
			zap.String("strategy", strat.name()), zap.Error(estErr))
	}
	tx.Gas = strat.gasLimit(estimate, estErr != nil)

	if err := strat.populate(ctx, e.wallet, &tx, action); err != nil {
		return e.fail(session, action, err)
	}

	hash, err := e.wallet.SendTransaction(ctx, tx)
	if err != nil {
		return e.fail(session, action, err)
	}

	// Recorded before confirmation so the caller can display the hash
	// even when confirmation is slow. From here the flow is no longer
	// cancellable.
	session.TxHash = hash
	e.emit(Event{Type: EventExecutionSubmitted, Kind: action.Kind, Execution: session.Execution, TxHash: hash})
	e.log.Info("action submitted",
		zap.String("kind", string(action.Kind)),
		zap.String("strategy", strat.name()),
		zap.Uint64("gas", tx.Gas),
		zap.String("tx", hash.Hex()),
	)

	receipt, err := e.waitReceipt(ctx, hash)
	if err != nil {
		return e.fail(session, action, err)
	}
	if receipt.Status != ReceiptStatusSuccess {
		return e.fail(session, action, fmt.Errorf("%w: transaction %s reverted",
			hederax402.ErrNetworkSubmission, hash.Hex()))
	}

	session.Execution = ExecutionDone
	session.Approval = ApprovalIdle
	e.emit(Event{Type: EventExecutionConfirmed, Kind: action.Kind, Execution: session.Execution, TxHash: hash})
	return nil
}

// ensureChain brings the wallet to the required chain. On an unrecognized
// chain it registers the chain and retries the switch exactly once; a
// user-rejected switch is terminal.
func (e *Executor) ensureChain(ctx context.Context, chain ChainParams) error {
	if chain.ChainID == nil {
		return fmt.Errorf("%w: action chain id is required", hederax402.ErrValidation)
	}

	current, err := e.wallet.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read connected chain: %w", err)
	}
	if current != nil && current.Cmp(chain.ChainID) == 0 {
		return nil
	}

	err = e.wallet.SwitchChain(ctx, chain.ChainID)
	if err == nil {
		return nil
	}
	if errors.Is(err, hederax402.ErrUserRejected) {
		return err
	}
	if !errors.Is(err, hederax402.ErrChainNotRecognized) {
		return fmt.Errorf("network switch failed: %w", err)
	}

	e.log.Info("registering chain with wallet", zap.String("chain", chain.Name))
	if err := e.wallet.AddChain(ctx, chain); err != nil {
		if errors.Is(err, hederax402.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("chain registration failed: %w", err)
	}

	// Exactly one retried switch after registration; never more.
	if err := e.wallet.SwitchChain(ctx, chain.ChainID); err != nil {
		if errors.Is(err, hederax402.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("network switch failed after registration: %w", err)
	}
	return nil
}

// ensureApproval reads the current allowance and, when insufficient,
// approves exactly the required amount. No implicit infinite approval.
func (e *Executor) ensureApproval(ctx context.Context, session *Session, action Action) error {
	if action.Amount == nil || action.Amount.Sign() <= 0 {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: approval amount must be positive", hederax402.ErrInvalidAmount)
	}

	session.Approval = ApprovalChecking
	allowance, err := e.allowance(ctx, action)
	if err != nil {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: allowance check: %v", hederax402.ErrApproval, err)
	}
	e.emit(Event{Type: EventApprovalChecked, Kind: action.Kind, Approval: session.Approval})

	if allowance.Cmp(action.Amount) >= 0 {
		session.Approval = ApprovalGranted
		return nil
	}

	session.Approval = ApprovalNeeded

	callData, err := erc20ABI.Pack("approve", action.Contract, action.Amount)
	if err != nil {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: encode approve: %v", hederax402.ErrApproval, err)
	}

	tx := TxRequest{From: action.Owner, To: action.Token, Data: callData}
	strat := strategyFor(action.Chain.ChainID)

	estimate, estErr := e.wallet.EstimateGas(ctx, CallMsg{From: action.Owner, To: action.Token, Data: callData})
	tx.Gas = strat.gasLimit(estimate, estErr != nil)
	if err := strat.populate(ctx, e.wallet, &tx, Action{Chain: action.Chain}); err != nil {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: %v", hederax402.ErrApproval, err)
	}

	session.Approval = ApprovalPending
	hash, err := e.wallet.SendTransaction(ctx, tx)
	if err != nil {
		session.Approval = ApprovalErrored
		if errors.Is(err, hederax402.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", hederax402.ErrApproval, err)
	}
	session.ApprovalTxHash = hash
	e.emit(Event{Type: EventApprovalSubmitted, Kind: action.Kind, Approval: session.Approval, TxHash: hash})

	receipt, err := e.waitReceipt(ctx, hash)
	if err != nil {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: %v", hederax402.ErrApproval, err)
	}
	if receipt.Status != ReceiptStatusSuccess {
		session.Approval = ApprovalErrored
		return fmt.Errorf("%w: approval transaction %s reverted", hederax402.ErrApproval, hash.Hex())
	}

	session.Approval = ApprovalGranted
	e.emit(Event{Type: EventApprovalConfirmed, Kind: action.Kind, Approval: session.Approval, TxHash: hash})
	return nil
}

// allowance reads allowance(owner, spender) from the token contract.
func (e *Executor) allowance(ctx context.Context, action Action) (*big.Int, error) {
	callData, err := erc20ABI.Pack("allowance", action.Owner, action.Contract)
	if err != nil {
		return nil, err
	}

	raw, err := e.wallet.CallContract(ctx, CallMsg{From: action.Owner, To: action.Token, Data: callData})
	if err != nil {
		return nil, err
	}

	values, err := erc20ABI.Unpack("allowance", raw)
	if err != nil {
		return nil, err
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance return type %T", values[0])
	}
	return allowance, nil
}

// waitReceipt polls for a receipt with bounded attempts.
func (e *Executor) waitReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var receipt *Receipt
	err := retry.Do(
		func() error {
			r, err := e.wallet.TransactionReceipt(ctx, hash)
			if err != nil {
				return err
			}
			if r == nil {
				return errReceiptPending
			}
			receipt = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.receiptAttempts),
		retry.Delay(e.receiptDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: confirmation for %s: %v", hederax402.ErrNetworkSubmission, hash.Hex(), err)
	}
	return receipt, nil
}

// fail records the terminal error, clears in-flight state, and surfaces
// the failure. No automatic retry.
func (e *Executor) fail(session *Session, action Action, err error) error {
	session.Err = err
	session.Execution = ExecutionIdle
	e.emit(Event{Type: EventFailed, Kind: action.Kind, Approval: session.Approval, Err: err})
	e.log.Warn("action failed", zap.String("kind", string(action.Kind)), zap.Error(err))
	return err
}

// emit dispatches an event to the registered callback.
func (e *Executor) emit(event Event) {
	if e.onEvent == nil {
		return
	}
	event.Timestamp = time.Now()
	e.onEvent(event)
}
