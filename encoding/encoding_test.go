package encoding

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// frozenTransfer builds a frozen test transfer without touching the
// network.
func frozenTransfer(t *testing.T) (*hedera.TransferTransaction, hedera.TransactionID) {
	t.Helper()

	payer, err := hedera.AccountIDFromString("0.0.1001")
	if err != nil {
		t.Fatalf("AccountIDFromString() error = %v", err)
	}
	payee, err := hedera.AccountIDFromString("0.0.5005")
	if err != nil {
		t.Fatalf("AccountIDFromString() error = %v", err)
	}

	client, err := hedera.ClientForName("testnet")
	if err != nil {
		t.Fatalf("ClientForName() error = %v", err)
	}
	defer client.Close()

	txID := hedera.TransactionIDGenerate(payer)
	tx, err := hedera.NewTransferTransaction().
		AddHbarTransfer(payer, hedera.HbarFromTinybar(-100000000)).
		AddHbarTransfer(payee, hedera.HbarFromTinybar(100000000)).
		SetTransactionID(txID).
		FreezeWith(client)
	if err != nil {
		t.Fatalf("FreezeWith() error = %v", err)
	}
	return tx, txID
}

func TestTransactionRoundTrip(t *testing.T) {
	tx, txID := frozenTransfer(t)

	encoded, err := SerializeTransaction(tx)
	if err != nil {
		t.Fatalf("SerializeTransaction() error = %v", err)
	}

	decoded, err := DeserializeTransaction(encoded)
	if err != nil {
		t.Fatalf("DeserializeTransaction() error = %v", err)
	}

	if got := decoded.GetTransactionID().String(); got != txID.String() {
		t.Errorf("transaction id = %s; want %s", got, txID.String())
	}

	wantTransfers := tx.GetHbarTransfers()
	gotTransfers := decoded.GetHbarTransfers()
	if len(gotTransfers) != len(wantTransfers) {
		t.Fatalf("transfer legs = %d; want %d", len(gotTransfers), len(wantTransfers))
	}
	for account, amount := range wantTransfers {
		if gotTransfers[account].AsTinybar() != amount.AsTinybar() {
			t.Errorf("transfer for %s = %d; want %d",
				account.String(), gotTransfers[account].AsTinybar(), amount.AsTinybar())
		}
	}
}

func TestSerializeTransactionNil(t *testing.T) {
	if _, err := SerializeTransaction(nil); !errors.Is(err, hederax402.ErrMalformedTransaction) {
		t.Errorf("SerializeTransaction(nil) error = %v; want ErrMalformedTransaction", err)
	}
}

func TestDeserializeTransactionMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"not a transaction", base64.StdEncoding.EncodeToString([]byte("junk bytes"))},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeTransaction(tt.encoded)
			if !errors.Is(err, hederax402.ErrMalformedTransaction) {
				t.Errorf("DeserializeTransaction() error = %v; want ErrMalformedTransaction", err)
			}
		})
	}
}

func TestEncodeDecodePayment(t *testing.T) {
	payment := hederax402.PaymentPayload{
		X402Version: hederax402.X402Version,
		Scheme:      hederax402.SchemeExact,
		Network:     hederax402.NetworkTestnet,
		Payload:     hederax402.TransactionPayload{Transaction: "dHg="},
	}

	encoded, err := EncodePayment(payment)
	if err != nil {
		t.Fatalf("EncodePayment() error = %v", err)
	}

	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment() error = %v", err)
	}
	if decoded != payment {
		t.Errorf("round-trip failed: got %+v; want %+v", decoded, payment)
	}
}

func TestDecodePaymentInvalid(t *testing.T) {
	if _, err := DecodePayment("not base64 at all!"); err == nil {
		t.Error("DecodePayment() should fail on invalid base64")
	}
	if _, err := DecodePayment(base64.StdEncoding.EncodeToString([]byte("{broken"))); err == nil {
		t.Error("DecodePayment() should fail on invalid JSON")
	}
}

func TestEncodeDecodeSettlement(t *testing.T) {
	settlement := hederax402.SettleResponse{
		Success:     true,
		Transaction: "0.0.1234@1700000000.000000001",
		Network:     hederax402.NetworkTestnet,
	}

	encoded, err := EncodeSettlement(settlement)
	if err != nil {
		t.Fatalf("EncodeSettlement() error = %v", err)
	}

	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("DecodeSettlement() error = %v", err)
	}
	if decoded != settlement {
		t.Errorf("round-trip failed: got %+v; want %+v", decoded, settlement)
	}
}
