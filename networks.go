package hederax402

import (
	"fmt"
	"strings"
)

// Network identifiers. The set is closed: any value outside it fails every
// downstream operation with ErrUnsupportedNetwork.
const (
	// NetworkTestnet is the Hedera test network.
	NetworkTestnet = "hedera-testnet"

	// NetworkMainnet is the Hedera main network.
	NetworkMainnet = "hedera-mainnet"
)

// Native asset sentinels. Either form in PaymentRequirements.Asset selects
// an HBAR transfer instead of a token transfer.
const (
	// AssetHBAR is the symbolic native-asset sentinel, matched
	// case-insensitively.
	AssetHBAR = "HBAR"

	// AssetNativeZero is the zero token id, also treated as native.
	AssetNativeZero = "0.0.0"
)

// NetworkConfig holds per-network configuration.
type NetworkConfig struct {
	// Network is the x402 network identifier.
	Network string

	// SDKName is the name the Hedera SDK resolves to a node set
	// ("testnet" or "mainnet").
	SDKName string

	// ChainID is the Hedera JSON-RPC relay (EVM) chain id.
	ChainID int64

	// RPCURL is the public JSON-RPC relay endpoint.
	RPCURL string

	// ExplorerURL is the block explorer base URL, published to wallets
	// during chain registration.
	ExplorerURL string
}

// Predefined network configurations.
var (
	// Testnet is the configuration for the Hedera test network.
	Testnet = NetworkConfig{
		Network:     NetworkTestnet,
		SDKName:     "testnet",
		ChainID:     296,
		RPCURL:      "https://testnet.hashio.io/api",
		ExplorerURL: "https://hashscan.io/testnet",
	}

	// Mainnet is the configuration for the Hedera main network.
	Mainnet = NetworkConfig{
		Network:     NetworkMainnet,
		SDKName:     "mainnet",
		ChainID:     295,
		RPCURL:      "https://mainnet.hashio.io/api",
		ExplorerURL: "https://hashscan.io/mainnet",
	}
)

// networkConfigByName maps network identifiers to configurations.
var networkConfigByName = map[string]NetworkConfig{
	NetworkTestnet: Testnet,
	NetworkMainnet: Mainnet,
}

// SupportedNetworks returns the closed set of recognized network
// identifiers in a stable order.
func SupportedNetworks() []string {
	return []string{NetworkTestnet, NetworkMainnet}
}

// GetNetworkConfig returns the configuration for a network identifier.
// Returns ErrUnsupportedNetwork for any value outside the closed enum.
func GetNetworkConfig(network string) (NetworkConfig, error) {
	config, ok := networkConfigByName[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	return config, nil
}

// ValidateNetwork checks that a network identifier is recognized.
func ValidateNetwork(network string) error {
	if network == "" {
		return fmt.Errorf("%w: network cannot be empty", ErrUnsupportedNetwork)
	}
	if _, ok := networkConfigByName[network]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	return nil
}

// IsNativeAsset reports whether an asset value denotes the network's
// native asset (HBAR). The symbolic sentinel is matched case-insensitively.
func IsNativeAsset(asset string) bool {
	return strings.EqualFold(asset, AssetHBAR) || asset == AssetNativeZero
}
