package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/encoding"
	"github.com/NirajBhattarai/hedera-x402-go/facilitator"
)

// Payment transport headers.
const (
	// HeaderPayment carries the base64-encoded PaymentPayload on requests
	// to payment-gated resources.
	HeaderPayment = "X-PAYMENT"

	// HeaderPaymentAuthorization carries the base64-encoded authorization
	// inputs accompanying the payment.
	HeaderPaymentAuthorization = "X-PAYMENT-AUTHORIZATION"

	// HeaderPaymentResponse carries the base64-encoded SettleResponse on
	// successful responses from payment-gated resources.
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
)

// PaymentContextKey is the gin context key holding the VerifyResponse of
// the settled payment inside gated handlers.
const PaymentContextKey = "x402_payment"

// paymentRequired is the 402 response body: the protocol version, the
// payment option the resource accepts, and a reason.
type paymentRequired struct {
	X402Version int                              `json:"x402Version"`
	Accepts     []hederax402.PaymentRequirements `json:"accepts"`
	Error       string                           `json:"error"`
}

// PaymentMiddleware gates a route behind an x402 payment. Requests without
// an X-PAYMENT header receive a 402 carrying the requirements; requests
// with one are verified and settled through the facilitator before the
// handler runs, and the settlement outcome is attached as an
// X-PAYMENT-RESPONSE header. A facilitator outage is a 503; a payment that
// fails verification or settlement is answered 402 with the reason.
func PaymentMiddleware(req hederax402.PaymentRequirements, fac facilitator.Interface, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader(HeaderPayment)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, paymentRequired{
				X402Version: hederax402.X402Version,
				Accepts:     []hederax402.PaymentRequirements{req},
				Error:       "payment required",
			})
			return
		}

		payload, err := encoding.DecodePayment(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payment header"})
			return
		}

		authz, err := decodeAuthorization(c.GetHeader(HeaderPaymentAuthorization))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payment authorization header"})
			return
		}

		verified, err := fac.Verify(c.Request.Context(), facilitator.VerifyRequest{
			X402Version:         hederax402.X402Version,
			PaymentPayload:      payload,
			PaymentRequirements: req,
			Authorization:       authz,
		})
		if err != nil {
			log.Warn("payment verification unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "payment verification failed"})
			return
		}
		if !verified.IsValid {
			log.Info("payment rejected", zap.String("reason", verified.InvalidReason))
			c.AbortWithStatusJSON(http.StatusPaymentRequired, paymentRequired{
				X402Version: hederax402.X402Version,
				Accepts:     []hederax402.PaymentRequirements{req},
				Error:       verified.InvalidReason,
			})
			return
		}

		settled, err := fac.Settle(c.Request.Context(), facilitator.SettleRequest{
			X402Version:         hederax402.X402Version,
			PaymentPayload:      payload,
			PaymentRequirements: req,
			Authorization:       authz,
		})
		if err != nil {
			log.Warn("payment settlement unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "payment settlement failed"})
			return
		}
		if !settled.Success {
			log.Info("settlement rejected", zap.String("reason", settled.ErrorReason))
			c.AbortWithStatusJSON(http.StatusPaymentRequired, paymentRequired{
				X402Version: hederax402.X402Version,
				Accepts:     []hederax402.PaymentRequirements{req},
				Error:       settled.ErrorReason,
			})
			return
		}

		encoded, err := encoding.EncodeSettlement(*settled)
		if err == nil {
			c.Header(HeaderPaymentResponse, encoded)
		}
		c.Set(PaymentContextKey, verified)
		c.Next()
	}
}

// AttachPayment adds the payment and authorization headers to an outbound
// request to a payment-gated resource.
func AttachPayment(req *http.Request, payload hederax402.PaymentPayload, authz facilitator.Authorization) error {
	encoded, err := encoding.EncodePayment(payload)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderPayment, encoded)

	authzJSON, err := json.Marshal(authz)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization: %w", err)
	}
	req.Header.Set(HeaderPaymentAuthorization, base64.StdEncoding.EncodeToString(authzJSON))
	return nil
}

// SettlementFromResponse extracts the settlement outcome a gated resource
// attached to its response, or nil when none is present.
func SettlementFromResponse(resp *http.Response) (*hederax402.SettleResponse, error) {
	header := resp.Header.Get(HeaderPaymentResponse)
	if header == "" {
		return nil, nil
	}
	settlement, err := encoding.DecodeSettlement(header)
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// decodeAuthorization parses the base64 JSON authorization header. An
// absent header means settlement will rely on the payload alone.
func decodeAuthorization(header string) (facilitator.Authorization, error) {
	var authz facilitator.Authorization
	if header == "" {
		return authz, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return authz, fmt.Errorf("failed to decode base64: %w", err)
	}
	if err := json.Unmarshal(decoded, &authz); err != nil {
		return authz, fmt.Errorf("failed to unmarshal authorization: %w", err)
	}
	return authz, nil
}
