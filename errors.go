package hederax402

import "errors"

// Sentinel errors for payment operations. Verification and settlement never
// swallow these; they surface to the caller with a human-readable reason.
var (
	// ErrValidation indicates malformed or missing input. It never reaches
	// the network and always maps to a 400-class response.
	ErrValidation = errors.New("hederax402: invalid or missing input")

	// ErrUnsupportedNetwork indicates a network outside the closed enum.
	ErrUnsupportedNetwork = errors.New("hederax402: unsupported network")

	// ErrInvalidSignature indicates a recovered address mismatch or an
	// unrecoverable wallet signature.
	ErrInvalidSignature = errors.New("hederax402: invalid wallet signature")

	// ErrInvalidAsset indicates an asset that is neither the native
	// sentinel nor a valid token id.
	ErrInvalidAsset = errors.New("hederax402: invalid asset")

	// ErrInvalidAmount indicates a non-positive or non-integer amount.
	ErrInvalidAmount = errors.New("hederax402: invalid amount")

	// ErrMissingAuthorization indicates neither a private key nor a
	// complete wallet-signature bundle was supplied.
	ErrMissingAuthorization = errors.New("hederax402: missing authorization")

	// ErrInvalidKey indicates an unparseable private key or account id.
	ErrInvalidKey = errors.New("hederax402: invalid key material")

	// ErrMalformedTransaction indicates serialized bytes that do not parse
	// as a transfer transaction.
	ErrMalformedTransaction = errors.New("hederax402: malformed transaction")

	// ErrTransactionBuild indicates a failure constructing or freezing a
	// transfer transaction.
	ErrTransactionBuild = errors.New("hederax402: transaction build failed")

	// ErrNetworkSubmission indicates the node rejected the transaction or
	// the submission timed out. Terminal; never retried automatically.
	ErrNetworkSubmission = errors.New("hederax402: network submission failed")

	// ErrApproval indicates the token allowance flow failed.
	ErrApproval = errors.New("hederax402: token approval failed")

	// ErrUserRejected indicates the wallet declined a signature or a
	// network switch.
	ErrUserRejected = errors.New("hederax402: rejected by user")

	// ErrChainNotRecognized indicates the wallet does not know the
	// requested chain. The executor registers the chain and retries the
	// switch exactly once.
	ErrChainNotRecognized = errors.New("hederax402: chain not recognized by wallet")

	// ErrFacilitatorUnavailable indicates a remote facilitator could not
	// be reached.
	ErrFacilitatorUnavailable = errors.New("hederax402: facilitator unavailable")

	// ErrMissingConfig indicates facilitator credentials are absent from
	// the environment. Fatal; never a silent no-op.
	ErrMissingConfig = errors.New("hederax402: missing facilitator configuration")
)

// ErrorCode represents short error codes used on the wire in
// invalidReason and errorReason fields.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed or missing input.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeUnsupportedNetwork indicates a network outside the enum.
	ErrCodeUnsupportedNetwork ErrorCode = "UNSUPPORTED_NETWORK"

	// ErrCodeInvalidSignature indicates signature recovery mismatch.
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"

	// ErrCodeInvalidAsset indicates a malformed asset identifier.
	ErrCodeInvalidAsset ErrorCode = "INVALID_ASSET"

	// ErrCodeInvalidAmount indicates a malformed amount.
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// ErrCodeMissingAuthorization indicates no usable authorization input.
	ErrCodeMissingAuthorization ErrorCode = "MISSING_AUTHORIZATION"

	// ErrCodeTransactionBuild indicates deserialization or type mismatch.
	ErrCodeTransactionBuild ErrorCode = "TRANSACTION_BUILD_ERROR"

	// ErrCodeSubmissionFailed indicates node rejection or timeout.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
)

// codeByError maps sentinel errors to wire codes.
var codeByError = []struct {
	err  error
	code ErrorCode
}{
	{ErrUnsupportedNetwork, ErrCodeUnsupportedNetwork},
	{ErrInvalidSignature, ErrCodeInvalidSignature},
	{ErrInvalidAsset, ErrCodeInvalidAsset},
	{ErrInvalidAmount, ErrCodeInvalidAmount},
	{ErrMissingAuthorization, ErrCodeMissingAuthorization},
	{ErrMalformedTransaction, ErrCodeTransactionBuild},
	{ErrTransactionBuild, ErrCodeTransactionBuild},
	{ErrNetworkSubmission, ErrCodeSubmissionFailed},
}

// CodeFor returns the wire error code for an error, defaulting to
// VALIDATION_ERROR for anything unrecognized.
func CodeFor(err error) ErrorCode {
	for _, entry := range codeByError {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ErrCodeValidation
}

// PaymentError provides structured error information for API boundaries.
type PaymentError struct {
	// Code is the wire error code.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: err}
}
