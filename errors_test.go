package hederax402

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"unsupported network", ErrUnsupportedNetwork, ErrCodeUnsupportedNetwork},
		{"wrapped unsupported network", fmt.Errorf("verify: %w", ErrUnsupportedNetwork), ErrCodeUnsupportedNetwork},
		{"invalid signature", ErrInvalidSignature, ErrCodeInvalidSignature},
		{"invalid asset", ErrInvalidAsset, ErrCodeInvalidAsset},
		{"invalid amount", ErrInvalidAmount, ErrCodeInvalidAmount},
		{"missing authorization", ErrMissingAuthorization, ErrCodeMissingAuthorization},
		{"malformed transaction", ErrMalformedTransaction, ErrCodeTransactionBuild},
		{"build failure", ErrTransactionBuild, ErrCodeTransactionBuild},
		{"submission failure", ErrNetworkSubmission, ErrCodeSubmissionFailed},
		{"plain validation", ErrValidation, ErrCodeValidation},
		{"unknown error", errors.New("something else"), ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeFor(tt.err); got != tt.want {
				t.Errorf("CodeFor(%v) = %s; want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestPaymentErrorUnwrap(t *testing.T) {
	err := NewPaymentError(ErrCodeInvalidSignature, "signature check failed", ErrInvalidSignature)

	if !errors.Is(err, ErrInvalidSignature) {
		t.Error("errors.Is() should find the wrapped sentinel")
	}
	if want := "signature check failed: " + ErrInvalidSignature.Error(); err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}
}

func TestPaymentErrorWithoutCause(t *testing.T) {
	err := NewPaymentError(ErrCodeValidation, "bad request", nil)
	if err.Error() != "bad request" {
		t.Errorf("Error() = %q; want %q", err.Error(), "bad request")
	}
	if errors.Unwrap(err) != nil {
		t.Error("Unwrap() should be nil when no cause is set")
	}
}
