// Package settle finalizes verified payments: it adds any missing
// signature and submits the transaction to the network.
//
// Settlement is attempted at most once per payload. A node rejection is a
// terminal, reported failure; callers that need a retry must build a new
// payload with a fresh transaction id to avoid double-submission
// ambiguity. The engine never panics through the pipeline and never
// pretends success after a failed submission.
package settle

import (
	"context"
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/auth"
	"github.com/NirajBhattarai/hedera-x402-go/encoding"
	"github.com/NirajBhattarai/hedera-x402-go/signer"
)

// Engine settles verified payments. The zero value is not usable; use New.
type Engine struct {
	cfg hederax402.Config
	log *zap.Logger
}

// New creates a settlement engine. A nil logger disables logging.
func New(cfg hederax402.Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// Settle re-resolves the signing account for the payment's network (the
// facilitator account in delegated mode, the payer account in direct
// mode), signs the embedded transaction if the resolved signature is
// missing, and submits it. The response reports the outcome either way;
// the returned error is reserved for misconfiguration and cancelled
// contexts.
func (e *Engine) Settle(ctx context.Context, payload hederax402.PaymentPayload, req hederax402.PaymentRequirements, mode auth.Mode) (*hederax402.SettleResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	op, err := e.resolveOperator(mode, req.Network)
	if err != nil {
		return nil, err
	}
	defer op.Close()

	tx, err := encoding.DeserializeTransaction(payload.Payload.Transaction)
	if err != nil {
		return failure(req.Network, err), nil
	}

	signed, err := ensureSigned(tx, op.PrivateKey)
	if err != nil {
		return failure(req.Network, err), nil
	}

	txID := tx.GetTransactionID().String()
	e.log.Info("submitting payment",
		zap.String("network", req.Network),
		zap.String("transaction_id", txID),
		zap.Bool("pre_signed", signed),
	)

	resp, err := tx.Execute(op.Client())
	if err != nil {
		e.log.Warn("payment submission rejected",
			zap.String("transaction_id", txID), zap.Error(err))
		return failure(req.Network, fmt.Errorf("%w: %v", hederax402.ErrNetworkSubmission, err)), nil
	}

	receipt, err := resp.GetReceipt(op.Client())
	if err != nil {
		e.log.Warn("payment receipt unavailable",
			zap.String("transaction_id", txID), zap.Error(err))
		return failure(req.Network, fmt.Errorf("%w: %v", hederax402.ErrNetworkSubmission, err)), nil
	}
	if receipt.Status != hedera.StatusSuccess {
		err := fmt.Errorf("%w: status %s", hederax402.ErrNetworkSubmission, receipt.Status)
		return failure(req.Network, err), nil
	}

	e.log.Info("payment settled", zap.String("transaction_id", txID))
	return &hederax402.SettleResponse{
		Success:     true,
		Transaction: resp.TransactionID.String(),
		Network:     req.Network,
	}, nil
}

// resolveOperator binds the signing account for this settlement: the
// payer's key in direct mode, the facilitator's configured key in
// delegated mode. The operator is request-scoped.
func (e *Engine) resolveOperator(mode auth.Mode, network string) (*signer.Operator, error) {
	switch m := mode.(type) {
	case auth.Direct:
		return signer.Resolve(network, m.AccountID, m.PrivateKey)
	case auth.Delegated:
		if err := e.cfg.Validate(); err != nil {
			return nil, err
		}
		return signer.Resolve(network, e.cfg.AccountID, e.cfg.PrivateKey)
	default:
		return nil, hederax402.ErrMissingAuthorization
	}
}

// ensureSigned adds the key's signature unless the transaction already
// carries one from it, and reports whether it was pre-signed. A payload
// signed at creation must never be signed twice.
func ensureSigned(tx *hedera.TransferTransaction, key hedera.PrivateKey) (bool, error) {
	signed, err := alreadySignedBy(tx, key.PublicKey())
	if err != nil {
		return false, err
	}
	if !signed {
		tx.Sign(key)
	}
	return signed, nil
}

// alreadySignedBy reports whether the transaction already carries a
// signature from the given public key. Settlement must not request a
// second signature from an already-signed payload.
func alreadySignedBy(tx *hedera.TransferTransaction, pub hedera.PublicKey) (bool, error) {
	signatures, err := tx.GetSignatures()
	if err != nil {
		return false, fmt.Errorf("%w: unreadable signatures: %v", hederax402.ErrMalformedTransaction, err)
	}
	want := pub.String()
	for _, byKey := range signatures {
		for key := range byKey {
			if key != nil && key.String() == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// failure builds a terminal, reported settlement failure.
func failure(network string, err error) *hederax402.SettleResponse {
	return &hederax402.SettleResponse{
		Success:      false,
		Network:      network,
		ErrorReason:  string(hederax402.CodeFor(err)),
		ErrorMessage: err.Error(),
	}
}
