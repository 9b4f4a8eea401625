// Package encoding provides serialization for Hedera x402 payment data.
// It handles the deterministic transaction byte encoding used inside
// payment payloads, and base64 JSON marshaling for wire types.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// SerializeTransaction encodes a frozen transfer transaction to a base64
// string. The encoding is deterministic over the transaction bytes, so
// DeserializeTransaction(SerializeTransaction(tx)) reproduces the transfer
// legs, transaction id, and any signatures exactly.
func SerializeTransaction(tx *hedera.TransferTransaction) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("%w: nil transaction", hederax402.ErrMalformedTransaction)
	}
	txBytes, err := tx.ToBytes()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(txBytes), nil
}

// DeserializeTransaction decodes a base64 string back into a transfer
// transaction. Bytes that decode but do not parse as a transfer
// transaction fail with ErrMalformedTransaction.
func DeserializeTransaction(encoded string) (*hedera.TransferTransaction, error) {
	txBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", hederax402.ErrMalformedTransaction, err)
	}

	parsed, err := hedera.TransactionFromBytes(txBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hederax402.ErrMalformedTransaction, err)
	}

	tx, ok := parsed.(hedera.TransferTransaction)
	if !ok {
		return nil, fmt.Errorf("%w: not a transfer transaction", hederax402.ErrMalformedTransaction)
	}
	return &tx, nil
}

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string
// for HTTP X-PAYMENT headers and other transport needs.
func EncodePayment(payment hederax402.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
func DecodePayment(encoded string) (hederax402.PaymentPayload, error) {
	var payment hederax402.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("failed to unmarshal payment: %w", err)
	}

	return payment, nil
}

// EncodeSettlement converts a SettleResponse to a base64-encoded JSON
// string for HTTP X-PAYMENT-RESPONSE headers.
func EncodeSettlement(settlement hederax402.SettleResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts a base64-encoded JSON string to a SettleResponse.
func DecodeSettlement(encoded string) (hederax402.SettleResponse, error) {
	var settlement hederax402.SettleResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("failed to unmarshal settlement: %w", err)
	}

	return settlement, nil
}
