package payment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

func successCallback(t *testing.T, ref string, amountMajor string) Callback {
	t.Helper()
	raw := `{
		"checkoutReference": "` + ref + `",
		"resultCode": "0",
		"resultDesc": "The service request is processed successfully.",
		"metadata": [
			{"name": "receiptNumber", "value": "QK12XYZ789"},
			{"name": "amount", "value": ` + amountMajor + `},
			{"name": "transactionDate", "value": "20250601121530"},
			{"name": "payerPhone", "value": "254700000001"}
		]
	}`
	var cb Callback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))
	return cb
}

func failureCallback(t *testing.T, ref string) Callback {
	t.Helper()
	raw := `{"checkoutReference": "` + ref + `", "resultCode": "1032", "resultDesc": "Request cancelled by user"}`
	var cb Callback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))
	return cb
}

func pendingTxn(amountCents uint32) model.PaymentTransaction {
	return model.PaymentTransaction{
		ID:            1,
		CheckoutRef:   "ws_CO_1",
		BookingID:     7,
		AmountCents:   amountCents,
		PaymentStatus: model.TxnPending,
	}
}

func TestResolveSuccess(t *testing.T) {
	cb := successCallback(t, "ws_CO_1", "150.00")
	assert.Equal(t, OutcomeComplete, Resolve(pendingTxn(15000), cb))
}

func TestResolveFailure(t *testing.T) {
	cb := failureCallback(t, "ws_CO_1")
	assert.Equal(t, OutcomeFail, Resolve(pendingTxn(15000), cb))
}

func TestResolveReplayIsDuplicate(t *testing.T) {
	cb := successCallback(t, "ws_CO_1", "150.00")
	txn := pendingTxn(15000)

	require.Equal(t, OutcomeComplete, Resolve(txn, cb))
	txn.PaymentStatus = model.TxnCompleted

	// Redelivering the identical payload must not transition again.
	assert.Equal(t, OutcomeDuplicate, Resolve(txn, cb))
	// Nor may a failure callback undo a terminal state.
	assert.Equal(t, OutcomeDuplicate, Resolve(txn, failureCallback(t, "ws_CO_1")))
}

func TestResolveFailedIsTerminalToo(t *testing.T) {
	txn := pendingTxn(15000)
	txn.PaymentStatus = model.TxnFailed
	assert.Equal(t, OutcomeDuplicate, Resolve(txn, successCallback(t, "ws_CO_1", "150.00")))
}

func TestResolveAmountMismatch(t *testing.T) {
	txn := pendingTxn(15000)
	assert.Equal(t, OutcomeAmountMismatch, Resolve(txn, successCallback(t, "ws_CO_1", "149.99")))
	assert.Equal(t, OutcomeAmountMismatch, Resolve(txn, successCallback(t, "ws_CO_1", "1.00")))
}

func TestResolveSuccessWithoutAmount(t *testing.T) {
	var cb Callback
	require.NoError(t, json.Unmarshal([]byte(`{"checkoutReference":"ws_CO_1","resultCode":"0","resultDesc":"ok"}`), &cb))
	assert.Equal(t, OutcomeAmountMismatch, Resolve(pendingTxn(15000), cb))
}

func TestCallbackMetadata(t *testing.T) {
	cb := successCallback(t, "ws_CO_1", "150.00")

	amount, ok := cb.AmountCents()
	require.True(t, ok)
	assert.Equal(t, uint32(15000), amount)

	assert.Equal(t, "QK12XYZ789", cb.ReceiptNumber())
	assert.Equal(t, "254700000001", cb.PayerPhone())
	assert.Equal(t, "20250601121530", cb.TransactionDate())
	assert.True(t, cb.Succeeded())
}

func TestCallbackAmountAsString(t *testing.T) {
	cb := successCallback(t, "ws_CO_1", `"150.00"`)
	amount, ok := cb.AmountCents()
	require.True(t, ok)
	assert.Equal(t, uint32(15000), amount)
}

func TestAck(t *testing.T) {
	body, err := json.Marshal(Accepted())
	require.NoError(t, err)
	assert.JSONEq(t, `{"resultCode":0,"resultDesc":"Accepted"}`, string(body))
}
