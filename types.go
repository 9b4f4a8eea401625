// Package hederax402 implements the x402 payment protocol for Hedera.
//
// It covers the facilitator side of the protocol: payment requirements and
// payloads as wire contracts, two authorization modes (direct key custody
// and wallet-signature delegation with a fee-paying facilitator), the
// verify/settle two-phase pipeline, and a chain-aware transaction executor
// for swap and bridge actions.
//
// Import path: github.com/NirajBhattarai/hedera-x402-go
package hederax402

// X402Version is the protocol version this module implements.
const X402Version = 1

// SchemeExact is the only payment scheme currently supported.
// The field exists on the wire so future schemes can be added without
// breaking existing clients.
const SchemeExact = "exact"

// PaymentRequirements defines what is owed: a single acceptable payment.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (currently always "exact").
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier (e.g., "hedera-testnet").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount as an integer string in the
	// smallest unit of the asset (tinybars for HBAR, smallest token unit
	// otherwise). Never a float.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Asset identifies what is being paid. The native sentinel ("HBAR",
	// case-insensitive, or the zero token id "0.0.0") denotes the network's
	// native asset; any other value is a token id (e.g., "0.0.456858").
	Asset string `json:"asset"`

	// PayTo is the recipient account id (e.g., "0.0.5005").
	PayTo string `json:"payTo"`

	// Extra carries scheme-specific additional data. The facilitator's
	// fee-payer account id is published here under "feePayer".
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// FeePayer returns the facilitator fee-payer account id from Extra,
// or the empty string if none is set.
func (r PaymentRequirements) FeePayer() string {
	if r.Extra == nil {
		return ""
	}
	feePayer, _ := r.Extra["feePayer"].(string)
	return feePayer
}

// TransactionPayload carries the serialized transfer transaction inside a
// PaymentPayload. The transaction may be unsigned, partially signed, or
// fully signed depending on pipeline stage.
type TransactionPayload struct {
	// Transaction is the base64-encoded Hedera transaction bytes.
	Transaction string `json:"transaction"`
}

// PaymentPayload is the proof that a payment was authorized (and possibly
// already signed). Scheme and Network must match the PaymentRequirements
// the payload was built for.
type PaymentPayload struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier.
	Network string `json:"network"`

	// Payload contains the serialized transfer transaction.
	Payload TransactionPayload `json:"payload"`
}

// AuthorizationProof is the wallet-signature bundle used in delegated mode.
// The payer proves intent by signing SignedMessage off-chain; the
// facilitator's key executes the on-chain transaction.
type AuthorizationProof struct {
	// WalletSignature is the hex-encoded EIP-191 personal-sign signature.
	WalletSignature string `json:"walletSignature"`

	// WalletAddress is the EVM address the signature must recover to,
	// compared case-insensitively.
	WalletAddress string `json:"walletAddress"`

	// SignedMessage is the canonical authorization message that was signed.
	// It is reconstructible from (network, payer, payee, amount, asset,
	// transaction id); see auth.BuildAuthorizationMessage.
	SignedMessage string `json:"signedMessage"`
}

// Complete reports whether all three fields of the proof are present.
func (p AuthorizationProof) Complete() bool {
	return p.WalletSignature != "" && p.WalletAddress != "" && p.SignedMessage != ""
}

// VerifyResponse is the outcome of payment verification. An authorization
// failure is a business outcome (IsValid false), not a transport error.
type VerifyResponse struct {
	// IsValid indicates whether the payment authorization is valid.
	IsValid bool `json:"isValid"`

	// InvalidReason is a short error code when IsValid is false.
	InvalidReason string `json:"invalidReason,omitempty"`

	// InvalidMessage is a human-readable explanation when IsValid is false.
	InvalidMessage string `json:"invalidMessage,omitempty"`

	// Payer is the authorizing account or address, when known.
	Payer string `json:"payer,omitempty"`
}

// SettleResponse is the outcome of payment settlement. A node rejection is
// reported here as Success false with a reason; it is terminal and never
// retried by the engine.
type SettleResponse struct {
	// Success indicates whether the payment reached the network.
	Success bool `json:"success"`

	// Transaction is the transaction id of the settled payment.
	Transaction string `json:"transaction,omitempty"`

	// Network is the network the payment was settled on.
	Network string `json:"network,omitempty"`

	// ErrorReason is a short error code when Success is false.
	ErrorReason string `json:"errorReason,omitempty"`

	// ErrorMessage is a human-readable explanation when Success is false.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SupportedKind describes one payment type a facilitator supports,
// including the fee-payer account clients should put in Extra.
type SupportedKind struct {
	// X402Version is the protocol version supported.
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the Hedera network identifier.
	Network string `json:"network"`

	// Extra carries scheme-specific data, notably "feePayer".
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// SupportedResponse is returned by the facilitator /supported endpoint.
type SupportedResponse struct {
	// Kinds lists the payment types supported by the facilitator.
	Kinds []SupportedKind `json:"kinds"`
}

// PreparedTransaction is an unsigned, serialized transfer returned for
// client-side signing flows.
type PreparedTransaction struct {
	// Transaction is the base64-encoded unsigned transaction bytes.
	Transaction string `json:"transaction"`

	// TransactionID is the facilitator-scoped transaction id, stable
	// through serialize/deserialize round trips.
	TransactionID string `json:"transactionId"`
}
