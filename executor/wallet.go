package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// WalletClient is the contract the executor requires from the connected
// wallet and its RPC provider. Implementations wrap a browser wallet
// bridge or a JSON-RPC client; the executor never talks to a node
// directly.
//
// SwitchChain returns ErrChainNotRecognized when the wallet does not know
// the chain, and ErrUserRejected when the user declines; the executor
// relies on both to drive its bounded switch/register/retry sequence.
type WalletClient interface {
	// ChainID returns the currently connected chain id.
	ChainID(ctx context.Context) (*big.Int, error)

	// SwitchChain asks the wallet to switch to the given chain.
	SwitchChain(ctx context.Context, chainID *big.Int) error

	// AddChain registers a chain with the wallet.
	AddChain(ctx context.Context, params ChainParams) error

	// SuggestGasPrice returns the current gas price for priced-gas chains.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates gas for the given call.
	EstimateGas(ctx context.Context, call CallMsg) (uint64, error)

	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, call CallMsg) ([]byte, error)

	// SendTransaction signs and broadcasts a transaction, returning its
	// hash immediately upon submission.
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// TransactionReceipt returns the receipt for a transaction, or nil if
	// it is not yet mined.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// ChainParams describes a chain for wallet registration.
type ChainParams struct {
	// ChainID is the EVM chain id.
	ChainID *big.Int

	// Name is the human-readable chain name.
	Name string

	// RPCURL is the JSON-RPC endpoint.
	RPCURL string

	// ExplorerURL is the block explorer base URL.
	ExplorerURL string

	// CurrencySymbol is the native currency symbol (e.g., "HBAR").
	CurrencySymbol string
}

// HederaChainParams returns wallet registration parameters for a Hedera
// network from the shared network registry.
func HederaChainParams(network string) (ChainParams, error) {
	cfg, err := hederax402.GetNetworkConfig(network)
	if err != nil {
		return ChainParams{}, err
	}
	return ChainParams{
		ChainID:        big.NewInt(cfg.ChainID),
		Name:           cfg.Network,
		RPCURL:         cfg.RPCURL,
		ExplorerURL:    cfg.ExplorerURL,
		CurrencySymbol: hederax402.AssetHBAR,
	}, nil
}

// CallMsg is a read or estimation call.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// TxRequest is a transaction to be signed and broadcast by the wallet.
// Which fields are populated depends on the chain strategy: the fee-capped
// strategy omits GasPrice and Value entirely.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
}

// Receipt is a minimal transaction receipt.
type Receipt struct {
	// TxHash is the transaction hash.
	TxHash common.Hash

	// Status is 1 on success, 0 on revert.
	Status uint64
}

// ReceiptStatusSuccess is the successful receipt status value.
const ReceiptStatusSuccess uint64 = 1
