package hederax402

import (
	"fmt"
	"os"
	"time"
)

// Environment variable names for facilitator credentials.
const (
	// EnvFacilitatorAccountID holds the facilitator's account id.
	EnvFacilitatorAccountID = "FACILITATOR_ACCOUNT_ID"

	// EnvFacilitatorPrivateKey holds the facilitator's private key.
	EnvFacilitatorPrivateKey = "FACILITATOR_PRIVATE_KEY"

	// EnvListenAddr optionally overrides the HTTP listen address.
	EnvListenAddr = "FACILITATOR_LISTEN_ADDR"
)

// Config holds facilitator credentials and server settings. The account id
// and private key gate every endpoint: their absence is a hard failure,
// never a silent no-op.
type Config struct {
	// AccountID is the facilitator's fee-payer account id (e.g., "0.0.1234").
	AccountID string

	// PrivateKey is the facilitator's private key. Held in memory only;
	// never logged.
	PrivateKey string

	// ListenAddr is the HTTP listen address (default ":8402").
	ListenAddr string

	// Timeouts configures per-operation deadlines.
	Timeouts TimeoutConfig
}

// FromEnv builds a Config from the environment. Credentials may be absent
// here; Validate reports that as ErrMissingConfig so the server can answer
// 500 instead of starting half-configured.
func FromEnv() Config {
	cfg := Config{
		AccountID:  os.Getenv(EnvFacilitatorAccountID),
		PrivateKey: os.Getenv(EnvFacilitatorPrivateKey),
		ListenAddr: os.Getenv(EnvListenAddr),
		Timeouts:   DefaultTimeouts,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8402"
	}
	return cfg
}

// Validate checks that the facilitator credentials are present.
func (c Config) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("%w: %s not set", ErrMissingConfig, EnvFacilitatorAccountID)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("%w: %s not set", ErrMissingConfig, EnvFacilitatorPrivateKey)
	}
	return c.Timeouts.Validate()
}

// TimeoutConfig holds timeout configuration for payment operations.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time for payment verification.
	VerifyTimeout time.Duration

	// SettleTimeout is the maximum time for payment settlement, including
	// receipt retrieval.
	SettleTimeout time.Duration

	// RequestTimeout is the overall timeout for HTTP requests.
	RequestTimeout time.Duration
}

// DefaultTimeouts provides sensible defaults for payment operations.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	SettleTimeout:  60 * time.Second,
	RequestTimeout: 120 * time.Second,
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %v", tc.VerifyTimeout)
	}
	if tc.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive, got %v", tc.SettleTimeout)
	}
	if tc.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", tc.RequestTimeout)
	}
	if tc.SettleTimeout < tc.VerifyTimeout {
		return fmt.Errorf("settle timeout (%v) should be >= verify timeout (%v)",
			tc.SettleTimeout, tc.VerifyTimeout)
	}
	return nil
}
