// Package auth verifies payment authorizations.
//
// Two mutually exclusive modes exist. In direct mode the caller supplies
// the payer's private key, and signing capability itself is the proof of
// authorization. In delegated mode the payer signs an off-chain message,
// and the facilitator's key executes the transaction; the proof is the
// wallet signature, which must recover to the claimed address.
//
// Verification is idempotent and side-effect-free on the ledger: it never
// submits a transaction.
package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/encoding"
	"github.com/NirajBhattarai/hedera-x402-go/transfer"
	"github.com/NirajBhattarai/hedera-x402-go/validation"
)

// Mode is the authorization mode, represented as an explicit tagged
// variant rather than inferred from which optional fields happen to be
// set. This removes ambiguity when callers supply both a private key and
// a wallet signature.
type Mode interface {
	isMode()
}

// Direct is authorization by key custody: the payer's raw private key is
// the transacting/signing account for this request only.
type Direct struct {
	// AccountID is the payer's account id.
	AccountID string

	// PrivateKey is the payer's raw private key. Request-scoped; never
	// persisted or logged.
	PrivateKey string
}

func (Direct) isMode() {}

// Delegated is authorization by wallet signature: the payer signed an
// off-chain message, and the facilitator account transacts on their
// behalf. The payer's on-chain signature is deliberately deferred to
// settlement.
type Delegated struct {
	// Proof is the wallet-signature bundle.
	Proof hederax402.AuthorizationProof
}

func (Delegated) isMode() {}

// SelectMode applies the mode-precedence rule: when both a private key and
// a complete proof are supplied, direct mode wins only when the caller
// explicitly requested it; a key alone means direct; a proof alone means
// delegated; neither fails with ErrMissingAuthorization.
func SelectMode(accountID, privateKey string, proof hederax402.AuthorizationProof, preferDirect bool) (Mode, error) {
	hasKey := privateKey != "" && accountID != ""
	hasProof := proof.Complete()

	switch {
	case hasKey && hasProof:
		if preferDirect {
			return Direct{AccountID: accountID, PrivateKey: privateKey}, nil
		}
		return Delegated{Proof: proof}, nil
	case hasKey:
		return Direct{AccountID: accountID, PrivateKey: privateKey}, nil
	case hasProof:
		return Delegated{Proof: proof}, nil
	default:
		return nil, hederax402.ErrMissingAuthorization
	}
}

// BuildAuthorizationMessage returns the canonical message a payer signs in
// delegated mode. It is deterministic over its inputs so the facilitator
// can reconstruct and compare it.
func BuildAuthorizationMessage(network, payer, payee, amount, asset, transactionID string) string {
	return fmt.Sprintf(
		"Authorize payment of %s %s from %s to %s on %s (tx: %s)",
		amount, asset, payer, payee, network, transactionID,
	)
}

// authorizationMessageRegex reverses BuildAuthorizationMessage. None of
// the message components contain whitespace.
var authorizationMessageRegex = regexp.MustCompile(
	`^Authorize payment of (\S+) (\S+) from (\S+) to (\S+) on (\S+) \(tx: (\S+)\)$`)

// AuthorizedPayment is the payment a canonical authorization message
// commits to.
type AuthorizedPayment struct {
	// Amount is the authorized amount in the asset's smallest unit.
	Amount string

	// Asset is the authorized asset identifier.
	Asset string

	// Payer is the debited account id.
	Payer string

	// Payee is the credited account id.
	Payee string

	// Network is the network identifier.
	Network string

	// TransactionID is the transaction id the payer authorized.
	TransactionID string
}

// ParseAuthorizationMessage parses a canonical authorization message back
// into its components. Anything that does not match the canonical form is
// rejected; a free-form signed string authorizes nothing.
func ParseAuthorizationMessage(message string) (AuthorizedPayment, error) {
	parts := authorizationMessageRegex.FindStringSubmatch(message)
	if parts == nil {
		return AuthorizedPayment{}, fmt.Errorf("%w: signed message is not a canonical authorization",
			hederax402.ErrInvalidSignature)
	}
	return AuthorizedPayment{
		Amount:        parts[1],
		Asset:         parts[2],
		Payer:         parts[3],
		Payee:         parts[4],
		Network:       parts[5],
		TransactionID: parts[6],
	}, nil
}

// RecoverSigner recovers the EVM address that produced an EIP-191
// personal-sign signature over message. Failure to recover is fatal to the
// authorization, never silently tolerated.
func RecoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable signature: %v", hederax402.ErrInvalidSignature, err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("%w: signature must be 65 bytes, got %d", hederax402.ErrInvalidSignature, len(sig))
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1.
	recovered := make([]byte, 65)
	copy(recovered, sig)
	if recovered[64] >= 27 {
		recovered[64] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), recovered)
	if err != nil {
		return "", fmt.Errorf("%w: recovery failed: %v", hederax402.ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// Verify checks that a payment is properly authorized under the given
// mode. Authorization failures are reported as IsValid false with a
// reason; only malformed input that should map to a transport-level error
// is returned as an error.
func Verify(ctx context.Context, payload hederax402.PaymentPayload, req hederax402.PaymentRequirements, mode Mode) (*hederax402.VerifyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mode == nil {
		return nil, hederax402.ErrMissingAuthorization
	}

	if err := hederax402.ValidateNetwork(req.Network); err != nil {
		return invalid(err), nil
	}
	if err := validation.ValidatePaymentRequirements(req); err != nil {
		return invalid(err), nil
	}
	if err := validation.ValidatePaymentPayload(payload, req); err != nil {
		return invalid(err), nil
	}

	// The embedded transaction must reference exactly the payTo/asset/
	// amount of the matching requirements. A mismatch is a verification
	// failure, not a silent correction.
	tx, err := encoding.DeserializeTransaction(payload.Payload.Transaction)
	if err != nil {
		return invalid(err), nil
	}
	if err := transfer.MatchesRequirements(tx, req); err != nil {
		return invalid(err), nil
	}

	switch m := mode.(type) {
	case Direct:
		// Possession of a parseable payer key is the authorization; no
		// separate signature-recovery step exists in this mode.
		if _, err := hedera.PrivateKeyFromString(m.PrivateKey); err != nil {
			return invalid(fmt.Errorf("%w: unparseable payer key", hederax402.ErrInvalidKey)), nil
		}
		if err := validation.ValidateAccountID(m.AccountID); err != nil {
			return invalid(err), nil
		}
		return &hederax402.VerifyResponse{IsValid: true, Payer: m.AccountID}, nil

	case Delegated:
		if !m.Proof.Complete() {
			return invalid(hederax402.ErrMissingAuthorization), nil
		}
		if err := validation.ValidateEVMAddress(m.Proof.WalletAddress); err != nil {
			return invalid(err), nil
		}

		recovered, err := RecoverSigner(m.Proof.SignedMessage, m.Proof.WalletSignature)
		if err != nil {
			return invalid(err), nil
		}
		if !strings.EqualFold(recovered, m.Proof.WalletAddress) {
			return invalid(fmt.Errorf("%w: recovered %s, claimed %s",
				hederax402.ErrInvalidSignature, recovered, m.Proof.WalletAddress)), nil
		}

		// The signature binds the wallet to one specific payment. The
		// signed message must be exactly the canonical message for THIS
		// transfer, transaction id included; otherwise a signature
		// captured once would authorize arbitrary replays.
		payer, err := transfer.DebitedAccount(tx, req)
		if err != nil {
			return invalid(err), nil
		}
		expected := BuildAuthorizationMessage(req.Network, payer, req.PayTo,
			req.MaxAmountRequired, req.Asset, tx.GetTransactionID().String())
		if m.Proof.SignedMessage != expected {
			return invalid(fmt.Errorf("%w: signed message does not authorize this payment",
				hederax402.ErrInvalidSignature)), nil
		}

		// The facilitator account becomes the transacting account; the
		// payer's on-chain signature stays deferred to settlement.
		return &hederax402.VerifyResponse{IsValid: true, Payer: m.Proof.WalletAddress}, nil

	default:
		return nil, hederax402.ErrMissingAuthorization
	}
}

// invalid maps an authorization failure to a business-outcome response.
func invalid(err error) *hederax402.VerifyResponse {
	return &hederax402.VerifyResponse{
		IsValid:        false,
		InvalidReason:  string(hederax402.CodeFor(err)),
		InvalidMessage: err.Error(),
	}
}
