// Package transfer builds unsigned Hedera transfer transactions from
// payment requirements.
package transfer

import (
	"fmt"
	"strconv"

	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/signer"
)

// Build constructs an unsigned two-leg transfer (debit payer, credit
// payTo) for the given requirements, frozen against the target network.
//
// The transaction id is generated for the fee-payer account, not the
// payer: in delegated mode the facilitator is the fee payer of record, and
// the id must stay stable through serialize/deserialize round trips so
// retries and identification keep working. The returned transaction is
// unsigned and its transfer legs are immutable; only a new Build call
// changes them.
func Build(req hederax402.PaymentRequirements, payer, feePayer string) (*hedera.TransferTransaction, hedera.TransactionID, error) {
	feePayerAccount, err := hedera.AccountIDFromString(feePayer)
	if err != nil {
		return nil, hedera.TransactionID{}, fmt.Errorf("%w: feePayer %q: %v", hederax402.ErrValidation, feePayer, err)
	}
	return BuildWithTransactionID(req, payer, feePayer, hedera.TransactionIDGenerate(feePayerAccount))
}

// BuildWithTransactionID is Build with a caller-supplied transaction id,
// used when the payer authorized a specific id off-chain and the built
// transfer must carry exactly that id.
func BuildWithTransactionID(req hederax402.PaymentRequirements, payer, feePayer string, txID hedera.TransactionID) (*hedera.TransferTransaction, hedera.TransactionID, error) {
	var zero hedera.TransactionID

	if err := hederax402.ValidateNetwork(req.Network); err != nil {
		return nil, zero, err
	}

	amount, err := parseAmount(req.MaxAmountRequired)
	if err != nil {
		return nil, zero, err
	}

	payerAccount, err := hedera.AccountIDFromString(payer)
	if err != nil {
		return nil, zero, fmt.Errorf("%w: payer %q: %v", hederax402.ErrValidation, payer, err)
	}

	payeeAccount, err := hedera.AccountIDFromString(req.PayTo)
	if err != nil {
		return nil, zero, fmt.Errorf("%w: payTo %q: %v", hederax402.ErrValidation, req.PayTo, err)
	}

	if _, err := hedera.AccountIDFromString(feePayer); err != nil {
		return nil, zero, fmt.Errorf("%w: feePayer %q: %v", hederax402.ErrValidation, feePayer, err)
	}

	tx := hedera.NewTransferTransaction()
	if hederax402.IsNativeAsset(req.Asset) {
		tx.AddHbarTransfer(payerAccount, hedera.HbarFromTinybar(-amount)).
			AddHbarTransfer(payeeAccount, hedera.HbarFromTinybar(amount))
	} else {
		tokenID, err := hedera.TokenIDFromString(req.Asset)
		if err != nil {
			return nil, zero, fmt.Errorf("%w: %q parses as neither the native sentinel nor a token id",
				hederax402.ErrInvalidAsset, req.Asset)
		}
		tx.AddTokenTransfer(tokenID, payerAccount, -amount).
			AddTokenTransfer(tokenID, payeeAccount, amount)
	}

	tx.SetTransactionID(txID)

	client, err := signer.NewClient(req.Network)
	if err != nil {
		return nil, zero, err
	}
	defer client.Close()

	frozen, err := tx.FreezeWith(client)
	if err != nil {
		return nil, zero, fmt.Errorf("%w: %v", hederax402.ErrTransactionBuild, err)
	}

	return frozen, txID, nil
}

// MatchesRequirements checks that a transfer transaction's legs encode
// exactly the payTo/asset/amount of the given requirements. A mismatch is
// a verification failure, never silently corrected.
func MatchesRequirements(tx *hedera.TransferTransaction, req hederax402.PaymentRequirements) error {
	amount, err := parseAmount(req.MaxAmountRequired)
	if err != nil {
		return err
	}

	payeeAccount, err := hedera.AccountIDFromString(req.PayTo)
	if err != nil {
		return fmt.Errorf("%w: payTo %q: %v", hederax402.ErrValidation, req.PayTo, err)
	}

	if hederax402.IsNativeAsset(req.Asset) {
		transfers := tx.GetHbarTransfers()
		credit, ok := transfers[payeeAccount]
		if !ok || credit.AsTinybar() != amount {
			return fmt.Errorf("%w: transaction does not credit %s with %d tinybar",
				hederax402.ErrValidation, req.PayTo, amount)
		}
		if !hasDebit(transfers, amount) {
			return fmt.Errorf("%w: transaction lacks a matching debit leg", hederax402.ErrValidation)
		}
		return nil
	}

	tokenID, err := hedera.TokenIDFromString(req.Asset)
	if err != nil {
		return fmt.Errorf("%w: %q is not a token id", hederax402.ErrInvalidAsset, req.Asset)
	}

	for _, transfer := range tx.GetTokenTransfers()[tokenID] {
		if transfer.AccountID == payeeAccount && transfer.Amount == amount {
			return nil
		}
	}
	return fmt.Errorf("%w: transaction does not credit %s with %d of token %s",
		hederax402.ErrValidation, req.PayTo, amount, req.Asset)
}

// DebitedAccount returns the account a transfer debits by exactly the
// required amount: the payer of record for the payment.
func DebitedAccount(tx *hedera.TransferTransaction, req hederax402.PaymentRequirements) (string, error) {
	amount, err := parseAmount(req.MaxAmountRequired)
	if err != nil {
		return "", err
	}

	if hederax402.IsNativeAsset(req.Asset) {
		for account, hbar := range tx.GetHbarTransfers() {
			if hbar.AsTinybar() == -amount {
				return account.String(), nil
			}
		}
		return "", fmt.Errorf("%w: transaction lacks a matching debit leg", hederax402.ErrValidation)
	}

	tokenID, err := hedera.TokenIDFromString(req.Asset)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a token id", hederax402.ErrInvalidAsset, req.Asset)
	}
	for _, transfer := range tx.GetTokenTransfers()[tokenID] {
		if transfer.Amount == -amount {
			return transfer.AccountID.String(), nil
		}
	}
	return "", fmt.Errorf("%w: transaction lacks a matching debit leg", hederax402.ErrValidation)
}

// hasDebit reports whether some account is debited by exactly amount.
func hasDebit(transfers map[hedera.AccountID]hedera.Hbar, amount int64) bool {
	for _, hbar := range transfers {
		if hbar.AsTinybar() == -amount {
			return true
		}
	}
	return false
}

// parseAmount parses a smallest-unit integer amount string, rejecting
// non-integers and non-positive values.
func parseAmount(raw string) (int64, error) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer: %q", hederax402.ErrInvalidAmount, raw)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %d", hederax402.ErrInvalidAmount, amount)
	}
	return amount, nil
}
