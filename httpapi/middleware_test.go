package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/encoding"
	"github.com/NirajBhattarai/hedera-x402-go/facilitator"
)

// stubFacilitator scripts verify/settle outcomes for middleware tests.
type stubFacilitator struct {
	verify    *hederax402.VerifyResponse
	verifyErr error
	settle    *hederax402.SettleResponse
	settleErr error

	verifyCalls int
	settleCalls int
	lastVerify  facilitator.VerifyRequest
}

func (s *stubFacilitator) Verify(ctx context.Context, req facilitator.VerifyRequest) (*hederax402.VerifyResponse, error) {
	s.verifyCalls++
	s.lastVerify = req
	return s.verify, s.verifyErr
}

func (s *stubFacilitator) Settle(ctx context.Context, req facilitator.SettleRequest) (*hederax402.SettleResponse, error) {
	s.settleCalls++
	return s.settle, s.settleErr
}

func (s *stubFacilitator) Supported(ctx context.Context) (*hederax402.SupportedResponse, error) {
	return &hederax402.SupportedResponse{}, nil
}

func gatedRouter(fac facilitator.Interface) *gin.Engine {
	router := gin.New()
	router.GET("/premium", PaymentMiddleware(testRequirements(), fac, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"content": "paid content"})
	})
	return router
}

func paidRequest(t *testing.T) *http.Request {
	t.Helper()

	payload := hederax402.PaymentPayload{
		X402Version: hederax402.X402Version,
		Scheme:      hederax402.SchemeExact,
		Network:     hederax402.NetworkTestnet,
		Payload:     hederax402.TransactionPayload{Transaction: "dHg="},
	}
	req := httptest.NewRequest(http.MethodGet, "/premium", nil)
	if err := AttachPayment(req, payload, facilitator.Authorization{
		WalletSignature: "0xsig",
		WalletAddress:   "0xaddr",
		SignedMessage:   "msg",
	}); err != nil {
		t.Fatalf("attaching payment: %v", err)
	}
	return req
}

func TestPaymentMiddlewareNoPayment(t *testing.T) {
	fac := &stubFacilitator{}
	router := gatedRouter(fac)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/premium", nil))

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("GET /premium without payment = %d; want 402", w.Code)
	}
	if fac.verifyCalls != 0 {
		t.Error("facilitator consulted without a payment header")
	}

	var body paymentRequired
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding 402 body: %v", err)
	}
	if len(body.Accepts) != 1 || body.Accepts[0].PayTo != "0.0.5005" {
		t.Errorf("402 accepts = %+v; want the gated requirements", body.Accepts)
	}
}

func TestPaymentMiddlewareSettlesAndAttachesResponse(t *testing.T) {
	fac := &stubFacilitator{
		verify: &hederax402.VerifyResponse{IsValid: true, Payer: "0.0.1001"},
		settle: &hederax402.SettleResponse{
			Success:     true,
			Transaction: "0.0.2002@1700000000.000000000",
			Network:     hederax402.NetworkTestnet,
		},
	}
	router := gatedRouter(fac)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, paidRequest(t))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /premium with payment = %d; want 200; body %s", w.Code, w.Body.String())
	}
	if fac.verifyCalls != 1 || fac.settleCalls != 1 {
		t.Errorf("verify/settle calls = %d/%d; want 1/1", fac.verifyCalls, fac.settleCalls)
	}

	// The authorization header round-trips into the facilitator request.
	if fac.lastVerify.WalletAddress != "0xaddr" {
		t.Errorf("authorization wallet address = %q; want 0xaddr", fac.lastVerify.WalletAddress)
	}

	settlement, err := SettlementFromResponse(w.Result())
	if err != nil {
		t.Fatalf("SettlementFromResponse() error = %v", err)
	}
	if settlement == nil || !settlement.Success {
		t.Fatalf("settlement = %+v; want success", settlement)
	}
	if settlement.Transaction != "0.0.2002@1700000000.000000000" {
		t.Errorf("settlement transaction = %s", settlement.Transaction)
	}
}

func TestPaymentMiddlewareInvalidPayment(t *testing.T) {
	fac := &stubFacilitator{
		verify: &hederax402.VerifyResponse{
			IsValid:       false,
			InvalidReason: string(hederax402.ErrCodeInvalidSignature),
		},
	}
	router := gatedRouter(fac)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, paidRequest(t))

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("invalid payment = %d; want 402", w.Code)
	}
	if fac.settleCalls != 0 {
		t.Error("settlement attempted for an invalid payment")
	}
}

func TestPaymentMiddlewareSettlementFailure(t *testing.T) {
	fac := &stubFacilitator{
		verify: &hederax402.VerifyResponse{IsValid: true},
		settle: &hederax402.SettleResponse{
			Success:     false,
			ErrorReason: string(hederax402.ErrCodeSubmissionFailed),
		},
	}
	router := gatedRouter(fac)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, paidRequest(t))

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("failed settlement = %d; want 402", w.Code)
	}
	if w.Header().Get(HeaderPaymentResponse) != "" {
		t.Error("settlement response header attached to a failed settlement")
	}
}

func TestPaymentMiddlewareFacilitatorUnavailable(t *testing.T) {
	fac := &stubFacilitator{verifyErr: errors.New("connection refused")}
	router := gatedRouter(fac)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, paidRequest(t))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unreachable facilitator = %d; want 503", w.Code)
	}
}

func TestPaymentMiddlewareMalformedHeaders(t *testing.T) {
	fac := &stubFacilitator{}
	router := gatedRouter(fac)

	req := httptest.NewRequest(http.MethodGet, "/premium", nil)
	req.Header.Set(HeaderPayment, "not-base64!")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed payment header = %d; want 400", w.Code)
	}

	payload := hederax402.PaymentPayload{
		X402Version: hederax402.X402Version,
		Payload:     hederax402.TransactionPayload{Transaction: "dHg="},
	}
	encoded, err := encoding.EncodePayment(payload)
	if err != nil {
		t.Fatalf("encoding payment: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/premium", nil)
	req.Header.Set(HeaderPayment, encoded)
	req.Header.Set(HeaderPaymentAuthorization, "also-not-base64!")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed authorization header = %d; want 400", w.Code)
	}
}

func TestSettlementFromResponseAbsent(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	settlement, err := SettlementFromResponse(resp)
	if err != nil {
		t.Fatalf("SettlementFromResponse() error = %v", err)
	}
	if settlement != nil {
		t.Errorf("settlement = %+v; want nil without a header", settlement)
	}
}
