// Package validation provides validation utilities for Hedera x402 payment
// data: account ids, amounts, networks, and payment structures.
package validation

import (
	"fmt"
	"math/big"
	"regexp"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

var (
	// accountIDRegex matches Hedera entity ids (shard.realm.num).
	accountIDRegex = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

	// evmAddressRegex matches EVM addresses (0x followed by 40 hex chars).
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ValidateAmount validates that an amount string is a positive integer in
// the smallest unit of the asset. Zero and negative amounts are rejected.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("%w: amount cannot be empty", hederax402.ErrInvalidAmount)
	}

	value := new(big.Int)
	if _, ok := value.SetString(amount, 10); !ok {
		return fmt.Errorf("%w: not an integer: %s", hederax402.ErrInvalidAmount, amount)
	}

	if value.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", hederax402.ErrInvalidAmount, amount)
	}

	return nil
}

// ValidateAccountID validates a Hedera account id (shard.realm.num form).
func ValidateAccountID(accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id cannot be empty", hederax402.ErrValidation)
	}
	if !accountIDRegex.MatchString(accountID) {
		return fmt.Errorf("%w: invalid account id format: %s (expected shard.realm.num)",
			hederax402.ErrValidation, accountID)
	}
	return nil
}

// ValidateEVMAddress validates a 0x-prefixed EVM address, used for the
// wallet address claimed in delegated-mode authorization proofs.
func ValidateEVMAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: address cannot be empty", hederax402.ErrValidation)
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("%w: invalid EVM address format: %s", hederax402.ErrValidation, address)
	}
	return nil
}

// ValidateAsset validates an asset identifier: either the native sentinel
// or a well-formed token id.
func ValidateAsset(asset string) error {
	if asset == "" {
		return fmt.Errorf("%w: asset cannot be empty", hederax402.ErrInvalidAsset)
	}
	if hederax402.IsNativeAsset(asset) {
		return nil
	}
	if !accountIDRegex.MatchString(asset) {
		return fmt.Errorf("%w: %s is neither the native sentinel nor a token id",
			hederax402.ErrInvalidAsset, asset)
	}
	return nil
}

// ValidatePaymentRequirements performs comprehensive validation of payment
// requirements: scheme, network, amount, asset, and recipient.
func ValidatePaymentRequirements(req hederax402.PaymentRequirements) error {
	switch req.Scheme {
	case hederax402.SchemeExact:
	case "":
		return fmt.Errorf("%w: scheme cannot be empty", hederax402.ErrValidation)
	default:
		return fmt.Errorf("%w: unsupported scheme %s", hederax402.ErrValidation, req.Scheme)
	}

	if err := hederax402.ValidateNetwork(req.Network); err != nil {
		return err
	}

	if err := ValidateAmount(req.MaxAmountRequired); err != nil {
		return err
	}

	if err := ValidateAsset(req.Asset); err != nil {
		return err
	}

	if err := ValidateAccountID(req.PayTo); err != nil {
		return fmt.Errorf("payTo: %w", err)
	}

	return nil
}

// ValidatePaymentPayload validates a payment payload against its matching
// requirements: version, scheme/network agreement, and transaction presence.
// The transfer-leg comparison happens later, at verification, once the
// embedded transaction has been deserialized.
func ValidatePaymentPayload(payload hederax402.PaymentPayload, req hederax402.PaymentRequirements) error {
	if payload.X402Version != hederax402.X402Version {
		return fmt.Errorf("%w: unsupported x402 version %d (expected %d)",
			hederax402.ErrValidation, payload.X402Version, hederax402.X402Version)
	}

	if payload.Scheme != req.Scheme {
		return fmt.Errorf("%w: payload scheme %q does not match requirements scheme %q",
			hederax402.ErrValidation, payload.Scheme, req.Scheme)
	}

	if payload.Network != req.Network {
		return fmt.Errorf("%w: payload network %q does not match requirements network %q",
			hederax402.ErrValidation, payload.Network, req.Network)
	}

	if err := hederax402.ValidateNetwork(payload.Network); err != nil {
		return err
	}

	if payload.Payload.Transaction == "" {
		return fmt.Errorf("%w: payload transaction cannot be empty", hederax402.ErrValidation)
	}

	return nil
}
