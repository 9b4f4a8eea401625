// Package facilitator defines the facilitator contract for payment
// verification and settlement, and a local implementation backed by the
// configured fee-payer account.
//
// A facilitator is a trusted third party that pays network fees and, in
// delegated mode, co-signs on behalf of an authorizing payer.
package facilitator

import (
	"context"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// Interface is the standard facilitator contract. Both the local service
// and the HTTP client satisfy it.
type Interface interface {
	// Verify verifies a payment authorization without executing the
	// transaction.
	Verify(ctx context.Context, req VerifyRequest) (*hederax402.VerifyResponse, error)

	// Settle executes a verified payment on the network. It should only
	// be called after successful verification, and at most once per
	// payload.
	Settle(ctx context.Context, req SettleRequest) (*hederax402.SettleResponse, error)

	// Supported reports the payment kinds the facilitator accepts,
	// including its fee-payer account per network.
	Supported(ctx context.Context) (*hederax402.SupportedResponse, error)
}

// Authorization carries the optional authorization inputs of a request.
// Exactly one mode is selected from them; see auth.SelectMode.
type Authorization struct {
	// PayerAccountID is the payer's Hedera account id. Required in direct
	// mode and for payload creation in delegated mode.
	PayerAccountID string `json:"payerAccountId,omitempty"`

	// PayerPrivateKey is the payer's raw private key (direct mode only).
	PayerPrivateKey string `json:"payerPrivateKey,omitempty"`

	// WalletSignature, WalletAddress, and SignedMessage form the
	// delegated-mode proof bundle.
	WalletSignature string `json:"walletSignature,omitempty"`
	WalletAddress   string `json:"walletAddress,omitempty"`
	SignedMessage   string `json:"signedMessage,omitempty"`

	// PreferDirect selects direct mode explicitly when both a private key
	// and a proof bundle are supplied.
	PreferDirect bool `json:"preferDirect,omitempty"`
}

// Proof assembles the delegated-mode proof bundle.
func (a Authorization) Proof() hederax402.AuthorizationProof {
	return hederax402.AuthorizationProof{
		WalletSignature: a.WalletSignature,
		WalletAddress:   a.WalletAddress,
		SignedMessage:   a.SignedMessage,
	}
}

// VerifyRequest is the request payload for POST /verify.
type VerifyRequest struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// PaymentPayload contains the payment data to verify.
	PaymentPayload hederax402.PaymentPayload `json:"paymentPayload"`

	// PaymentRequirements contains the payment option that was accepted.
	PaymentRequirements hederax402.PaymentRequirements `json:"paymentRequirements"`

	Authorization
}

// SettleRequest is the request payload for POST /settle.
type SettleRequest struct {
	// X402Version is the protocol version.
	X402Version int `json:"x402Version"`

	// PaymentPayload contains the verified payment data.
	PaymentPayload hederax402.PaymentPayload `json:"paymentPayload"`

	// PaymentRequirements contains the payment option that was accepted.
	PaymentRequirements hederax402.PaymentRequirements `json:"paymentRequirements"`

	Authorization
}

// CreatePayloadRequest is the request payload for POST /payload.
type CreatePayloadRequest struct {
	// PaymentRequirements describes the payment to authorize.
	PaymentRequirements hederax402.PaymentRequirements `json:"paymentRequirements"`

	Authorization
}

// PrepareRequest is the request payload for POST /prepare.
type PrepareRequest struct {
	// PaymentRequirements describes the payment to prepare.
	PaymentRequirements hederax402.PaymentRequirements `json:"paymentRequirements"`

	// PayerAccountID is the account the transfer debits.
	PayerAccountID string `json:"payerAccountId"`
}
