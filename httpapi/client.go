package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/facilitator"
)

// Client talks to a remote facilitator service over HTTP.
type Client struct {
	// BaseURL is the facilitator service URL.
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, http.DefaultClient.
	HTTPClient *http.Client

	// Timeouts contains per-operation timeout configuration.
	Timeouts hederax402.TimeoutConfig

	// MaxRetries is the number of retries for unavailable facilitators
	// (default 0: no retry). Only connection-level failures are retried;
	// verification and settlement outcomes never are.
	MaxRetries uint
}

var _ facilitator.Interface = (*Client)(nil)

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Verify verifies a payment authorization via the remote facilitator.
func (c *Client) Verify(ctx context.Context, req facilitator.VerifyRequest) (*hederax402.VerifyResponse, error) {
	req.X402Version = hederax402.X402Version
	var resp hederax402.VerifyResponse
	if err := c.post(ctx, "/verify", c.Timeouts.VerifyTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settle executes a verified payment via the remote facilitator.
func (c *Client) Settle(ctx context.Context, req facilitator.SettleRequest) (*hederax402.SettleResponse, error) {
	req.X402Version = hederax402.X402Version
	var resp hederax402.SettleResponse
	if err := c.post(ctx, "/settle", c.Timeouts.SettleTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Supported queries the remote facilitator for supported payment kinds.
func (c *Client) Supported(ctx context.Context) (*hederax402.SupportedResponse, error) {
	reqCtx, cancel := c.withTimeout(ctx, c.Timeouts.VerifyTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.BaseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hederax402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported endpoint failed: status %d", httpResp.StatusCode)
	}

	var supported hederax402.SupportedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&supported); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}
	return &supported, nil
}

// CreatePayload asks the remote facilitator to build a payment payload.
func (c *Client) CreatePayload(ctx context.Context, req facilitator.CreatePayloadRequest) (*hederax402.PaymentPayload, error) {
	var payload hederax402.PaymentPayload
	if err := c.post(ctx, "/payload", c.Timeouts.VerifyTimeout, req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Prepare asks the remote facilitator for an unsigned transaction for
// client-side signing.
func (c *Client) Prepare(ctx context.Context, req facilitator.PrepareRequest) (*hederax402.PreparedTransaction, error) {
	var prepared hederax402.PreparedTransaction
	if err := c.post(ctx, "/prepare", c.Timeouts.VerifyTimeout, req, &prepared); err != nil {
		return nil, err
	}
	return &prepared, nil
}

// post sends a JSON request and decodes the response, retrying only when
// the facilitator is unreachable.
func (c *Client) post(ctx context.Context, path string, timeout time.Duration, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := c.MaxRetries + 1
	return retry.Do(
		func() error {
			reqCtx, cancel := c.withTimeout(ctx, timeout)
			defer cancel()

			httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			httpReq.Header.Set("Content-Type", "application/json")

			httpResp, err := c.httpClient().Do(httpReq)
			if err != nil {
				return fmt.Errorf("%w: %v", hederax402.ErrFacilitatorUnavailable, err)
			}
			defer httpResp.Body.Close()

			if httpResp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(parseErrorResponse(httpResp))
			}

			if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, hederax402.ErrFacilitatorUnavailable)
		}),
	)
}

// withTimeout applies a per-operation timeout unless the caller already
// set a deadline.
func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// parseErrorResponse extracts error details from a non-200 HTTP response.
func parseErrorResponse(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var errBody map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil {
		for _, key := range []string{"invalidReason", "errorReason", "error"} {
			if reason, ok := errBody[key].(string); ok && reason != "" {
				return fmt.Errorf("facilitator returned status %d: %s", resp.StatusCode, reason)
			}
		}
	}

	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		return fmt.Errorf("facilitator returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return fmt.Errorf("facilitator returned status %d", resp.StatusCode)
}
