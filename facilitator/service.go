package facilitator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/auth"
	"github.com/NirajBhattarai/hedera-x402-go/encoding"
	"github.com/NirajBhattarai/hedera-x402-go/settle"
	"github.com/NirajBhattarai/hedera-x402-go/signer"
	"github.com/NirajBhattarai/hedera-x402-go/transfer"
)

// Service is the local facilitator: it verifies and settles payments with
// the configured fee-payer account instead of calling out to a remote
// facilitator.
type Service struct {
	cfg    hederax402.Config
	log    *zap.Logger
	engine *settle.Engine
}

var _ Interface = (*Service)(nil)

// NewService creates a local facilitator service. A nil logger disables
// logging. Credential errors surface per call so transports can map them
// to a 500 instead of failing at construction.
func NewService(cfg hederax402.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		engine: settle.New(cfg, log),
	}
}

// selectMode derives the tagged authorization mode from request inputs.
func selectMode(a Authorization) (auth.Mode, error) {
	return auth.SelectMode(a.PayerAccountID, a.PayerPrivateKey, a.Proof(), a.PreferDirect)
}

// Verify implements Interface. Authorization failures come back as
// IsValid false; errors are reserved for malformed requests and
// misconfiguration.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*hederax402.VerifyResponse, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := selectMode(req.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := auth.Verify(ctx, req.PaymentPayload, req.PaymentRequirements, mode)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment verified",
		zap.Bool("is_valid", resp.IsValid),
		zap.String("network", req.PaymentRequirements.Network),
		zap.String("invalid_reason", resp.InvalidReason),
	)
	return resp, nil
}

// Settle implements Interface. The engine reports node rejections in the
// response; they are terminal and never retried here.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*hederax402.SettleResponse, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := selectMode(req.Authorization)
	if err != nil {
		return nil, err
	}

	return s.engine.Settle(ctx, req.PaymentPayload, req.PaymentRequirements, mode)
}

// Supported implements Interface: one kind per supported network, each
// carrying the facilitator's fee-payer account id for clients to copy
// into PaymentRequirements.Extra.
func (s *Service) Supported(ctx context.Context) (*hederax402.SupportedResponse, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	networks := hederax402.SupportedNetworks()
	kinds := make([]hederax402.SupportedKind, 0, len(networks))
	for _, network := range networks {
		kinds = append(kinds, hederax402.SupportedKind{
			X402Version: hederax402.X402Version,
			Scheme:      hederax402.SchemeExact,
			Network:     network,
			Extra:       map[string]interface{}{"feePayer": s.cfg.AccountID},
		})
	}
	return &hederax402.SupportedResponse{Kinds: kinds}, nil
}

// CreatePayload builds a PaymentPayload for the given requirements.
//
// Direct mode signs the transfer with the payer's key immediately, and the
// payer is its own fee payer of record. Delegated mode checks the wallet
// proof, builds the transfer with the facilitator as fee payer, and leaves
// it unsigned: the payer's authorization is the off-chain signature, and
// on-chain signing is deferred to settlement. The asymmetry is deliberate;
// unifying it would change who custodies the final signature.
func (s *Service) CreatePayload(ctx context.Context, req CreatePayloadRequest) (*hederax402.PaymentPayload, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode, err := selectMode(req.Authorization)
	if err != nil {
		return nil, err
	}
	if req.PayerAccountID == "" {
		return nil, fmt.Errorf("%w: payerAccountId is required", hederax402.ErrValidation)
	}

	switch m := mode.(type) {
	case auth.Direct:
		tx, _, err := transfer.Build(req.PaymentRequirements, m.AccountID, m.AccountID)
		if err != nil {
			return nil, err
		}
		op, err := signer.Resolve(req.PaymentRequirements.Network, m.AccountID, m.PrivateKey)
		if err != nil {
			return nil, err
		}
		defer op.Close()
		tx.Sign(op.PrivateKey)
		return s.wrap(req.PaymentRequirements, tx)

	case auth.Delegated:
		recovered, err := auth.RecoverSigner(m.Proof.SignedMessage, m.Proof.WalletSignature)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(recovered, m.Proof.WalletAddress) {
			return nil, fmt.Errorf("%w: recovered %s, claimed %s",
				hederax402.ErrInvalidSignature, recovered, m.Proof.WalletAddress)
		}

		// The wallet signed a canonical message over one specific payment
		// (typically the transfer returned by Prepare). Check it matches
		// this request and build the transfer with the authorized id, so
		// verification can bind the signature to the embedded transaction.
		authorized, err := auth.ParseAuthorizationMessage(m.Proof.SignedMessage)
		if err != nil {
			return nil, err
		}
		if authorized.Network != req.PaymentRequirements.Network ||
			authorized.Payer != req.PayerAccountID ||
			authorized.Payee != req.PaymentRequirements.PayTo ||
			authorized.Amount != req.PaymentRequirements.MaxAmountRequired ||
			authorized.Asset != req.PaymentRequirements.Asset {
			return nil, fmt.Errorf("%w: signed message does not authorize this payment",
				hederax402.ErrInvalidSignature)
		}
		txID, err := hedera.TransactionIdFromString(authorized.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("%w: authorized transaction id %q: %v",
				hederax402.ErrInvalidSignature, authorized.TransactionID, err)
		}

		tx, _, err := transfer.BuildWithTransactionID(req.PaymentRequirements, req.PayerAccountID, s.cfg.AccountID, txID)
		if err != nil {
			return nil, err
		}
		return s.wrap(req.PaymentRequirements, tx)

	default:
		return nil, hederax402.ErrMissingAuthorization
	}
}

// Prepare builds an unsigned transfer for client-side signing flows and
// returns it with its facilitator-scoped transaction id.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*hederax402.PreparedTransaction, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PayerAccountID == "" {
		return nil, fmt.Errorf("%w: payerAccountId is required", hederax402.ErrValidation)
	}

	tx, txID, err := transfer.Build(req.PaymentRequirements, req.PayerAccountID, s.cfg.AccountID)
	if err != nil {
		return nil, err
	}

	serialized, err := encoding.SerializeTransaction(tx)
	if err != nil {
		return nil, err
	}

	return &hederax402.PreparedTransaction{
		Transaction:   serialized,
		TransactionID: txID.String(),
	}, nil
}

// wrap serializes a transfer into a PaymentPayload matching requirements.
func (s *Service) wrap(req hederax402.PaymentRequirements, tx *hedera.TransferTransaction) (*hederax402.PaymentPayload, error) {
	serialized, err := encoding.SerializeTransaction(tx)
	if err != nil {
		return nil, err
	}
	return &hederax402.PaymentPayload{
		X402Version: hederax402.X402Version,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload:     hederax402.TransactionPayload{Transaction: serialized},
	}, nil
}
