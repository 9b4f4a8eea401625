package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
	"github.com/NirajBhattarai/hedera-x402-go/auth"
	"github.com/NirajBhattarai/hedera-x402-go/facilitator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) hederax402.Config {
	t.Helper()

	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return hederax402.Config{
		AccountID:  "0.0.2002",
		PrivateKey: key.String(),
		ListenAddr: ":0",
		Timeouts:   hederax402.DefaultTimeouts,
	}
}

func testRequirements() hederax402.PaymentRequirements {
	return hederax402.PaymentRequirements{
		Scheme:            hederax402.SchemeExact,
		Network:           hederax402.NetworkTestnet,
		MaxAmountRequired: "100000000",
		Asset:             "HBAR",
		PayTo:             "0.0.5005",
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSupportedEndpoint(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	w := doJSON(t, router, http.MethodGet, "/supported", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /supported = %d; want 200; body %s", w.Code, w.Body.String())
	}

	var resp hederax402.SupportedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Kinds) != len(hederax402.SupportedNetworks()) {
		t.Fatalf("got %d kinds; want %d", len(resp.Kinds), len(hederax402.SupportedNetworks()))
	}
	for _, kind := range resp.Kinds {
		if kind.Extra["feePayer"] != "0.0.2002" {
			t.Errorf("feePayer = %v; want 0.0.2002", kind.Extra["feePayer"])
		}
	}
}

func TestSupportedEndpointMissingConfig(t *testing.T) {
	router := NewServer(hederax402.Config{}, nil).Router()

	w := doJSON(t, router, http.MethodGet, "/supported", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("GET /supported without credentials = %d; want 500", w.Code)
	}
}

func TestVerifyEndpointMalformedBody(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /verify malformed = %d; want 400", w.Code)
	}
}

func TestVerifyEndpointMissingFields(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	w := doJSON(t, router, http.MethodPost, "/verify", facilitator.VerifyRequest{
		X402Version: hederax402.X402Version,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /verify incomplete = %d; want 400; body %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["errorReason"] != string(hederax402.ErrCodeValidation) {
		t.Errorf("errorReason = %v; want %s", body["errorReason"], hederax402.ErrCodeValidation)
	}
}

// endpointAuthorization runs the wallet-side flow over the HTTP surface:
// POST /prepare, sign the canonical message for the prepared transfer.
func endpointAuthorization(t *testing.T, router *gin.Engine, req hederax402.PaymentRequirements, payer string) facilitator.Authorization {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/prepare", facilitator.PrepareRequest{
		PaymentRequirements: req,
		PayerAccountID:      payer,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /prepare = %d; want 200; body %s", w.Code, w.Body.String())
	}
	var prepared hederax402.PreparedTransaction
	if err := json.Unmarshal(w.Body.Bytes(), &prepared); err != nil {
		t.Fatalf("decoding prepared transaction: %v", err)
	}

	walletKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	message := auth.BuildAuthorizationMessage(req.Network, payer, req.PayTo,
		req.MaxAmountRequired, req.Asset, prepared.TransactionID)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), walletKey)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	sig[64] += 27

	return facilitator.Authorization{
		PayerAccountID:  payer,
		WalletSignature: hexutil.Encode(sig),
		WalletAddress:   crypto.PubkeyToAddress(walletKey.PublicKey).Hex(),
		SignedMessage:   message,
	}
}

func TestVerifyEndpointDelegated(t *testing.T) {
	cfg := testConfig(t)
	router := NewServer(cfg, nil).Router()

	authz := endpointAuthorization(t, router, testRequirements(), "0.0.1001")

	// Build the payload through the endpoint, then verify it.
	w := doJSON(t, router, http.MethodPost, "/payload", facilitator.CreatePayloadRequest{
		PaymentRequirements: testRequirements(),
		Authorization:       authz,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /payload = %d; want 200; body %s", w.Code, w.Body.String())
	}

	var payload hederax402.PaymentPayload
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}

	w = doJSON(t, router, http.MethodPost, "/verify", facilitator.VerifyRequest{
		X402Version:         hederax402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: testRequirements(),
		Authorization:       authz,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /verify = %d; want 200; body %s", w.Code, w.Body.String())
	}

	var resp hederax402.VerifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding verify response: %v", err)
	}
	if !resp.IsValid {
		t.Fatalf("verify invalid: %s %s", resp.InvalidReason, resp.InvalidMessage)
	}
}

func TestVerifyEndpointTamperedSignatureStaysHTTP200(t *testing.T) {
	cfg := testConfig(t)
	router := NewServer(cfg, nil).Router()

	authz := endpointAuthorization(t, router, testRequirements(), "0.0.1001")

	w := doJSON(t, router, http.MethodPost, "/payload", facilitator.CreatePayloadRequest{
		PaymentRequirements: testRequirements(),
		Authorization:       authz,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /payload = %d; want 200; body %s", w.Code, w.Body.String())
	}
	var payload hederax402.PaymentPayload
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}

	// A tampered signature is a business failure, not a transport error.
	raw, err := hexutil.Decode(authz.WalletSignature)
	if err != nil {
		t.Fatalf("decoding signature: %v", err)
	}
	raw[4] ^= 0xff
	authz.WalletSignature = hexutil.Encode(raw)

	w = doJSON(t, router, http.MethodPost, "/verify", facilitator.VerifyRequest{
		X402Version:         hederax402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: testRequirements(),
		Authorization:       authz,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /verify tampered = %d; want 200; body %s", w.Code, w.Body.String())
	}

	var resp hederax402.VerifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding verify response: %v", err)
	}
	if resp.IsValid {
		t.Fatal("tampered signature verified")
	}
	if resp.InvalidReason != string(hederax402.ErrCodeInvalidSignature) {
		t.Errorf("invalidReason = %s; want %s", resp.InvalidReason, hederax402.ErrCodeInvalidSignature)
	}
}

func TestPrepareEndpoint(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	w := doJSON(t, router, http.MethodPost, "/prepare", facilitator.PrepareRequest{
		PaymentRequirements: testRequirements(),
		PayerAccountID:      "0.0.1001",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /prepare = %d; want 200; body %s", w.Code, w.Body.String())
	}

	var prepared hederax402.PreparedTransaction
	if err := json.Unmarshal(w.Body.Bytes(), &prepared); err != nil {
		t.Fatalf("decoding prepared transaction: %v", err)
	}
	if prepared.Transaction == "" || prepared.TransactionID == "" {
		t.Errorf("incomplete prepared transaction: %+v", prepared)
	}
}

func TestPrepareEndpointMissingPayer(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	w := doJSON(t, router, http.MethodPost, "/prepare", facilitator.PrepareRequest{
		PaymentRequirements: testRequirements(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /prepare without payer = %d; want 400", w.Code)
	}
}

func TestSettleEndpointMissingFields(t *testing.T) {
	router := NewServer(testConfig(t), nil).Router()

	w := doJSON(t, router, http.MethodPost, "/settle", facilitator.SettleRequest{
		X402Version: hederax402.X402Version,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /settle incomplete = %d; want 400", w.Code)
	}
}
