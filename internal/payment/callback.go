// Package payment models the reconciliation of asynchronous gateway
// callbacks against previously issued payment transactions.  The
// decision logic is a pure transition function so the exactly-once
// property can be tested without any transport or database.
package payment

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MaxCallbackBytes caps the accepted webhook body.  Anything larger is
// treated as malformed and silently acknowledged.
const MaxCallbackBytes = 64 << 10

// SuccessResultCode is the gateway's code for a completed payment.
const SuccessResultCode = "0"

// Callback is the JSON body delivered by the mobile-money gateway.  On
// success the metadata list carries the receipt number, the delivered
// amount, the transaction date and the payer phone.
type Callback struct {
	CheckoutReference string         `json:"checkoutReference"`
	ResultCode        string         `json:"resultCode"`
	ResultDesc        string         `json:"resultDesc"`
	Metadata          []MetadataItem `json:"metadata"`
}

// MetadataItem is one name/value pair of the callback metadata list.
// Values arrive as strings or numbers depending on the field.
type MetadataItem struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Ack is the fixed acknowledgment body.  The gateway retries on
// anything else, so every callback, including forged and replayed ones, is
// answered with this exact payload and HTTP 200.
type Ack struct {
	ResultCode int    `json:"resultCode"`
	ResultDesc string `json:"resultDesc"`
}

// Accepted returns the only acknowledgment this service ever sends.
func Accepted() Ack { return Ack{ResultCode: 0, ResultDesc: "Accepted"} }

// Succeeded reports whether the gateway marked the payment complete.
func (cb Callback) Succeeded() bool { return cb.ResultCode == SuccessResultCode }

func (cb Callback) metaString(name string) string {
	for _, it := range cb.Metadata {
		if !strings.EqualFold(it.Name, name) {
			continue
		}
		var s string
		if err := json.Unmarshal(it.Value, &s); err == nil {
			return s
		}
		return strings.Trim(string(it.Value), `"`)
	}
	return ""
}

// AmountCents extracts the delivered amount from the metadata and
// converts it to integer cents.  The gateway reports major units as a
// JSON number; rounding guards against float representation noise.  The
// second return is false when no amount was delivered.
func (cb Callback) AmountCents() (uint32, bool) {
	for _, it := range cb.Metadata {
		if !strings.EqualFold(it.Name, "amount") {
			continue
		}
		var f float64
		if err := json.Unmarshal(it.Value, &f); err != nil {
			var s string
			if err := json.Unmarshal(it.Value, &s); err != nil {
				return 0, false
			}
			parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if perr != nil {
				return 0, false
			}
			f = parsed
		}
		if f < 0 {
			return 0, false
		}
		return uint32(math.Round(f * 100)), true
	}
	return 0, false
}

// ReceiptNumber returns the gateway receipt, empty when absent.
func (cb Callback) ReceiptNumber() string { return cb.metaString("receiptNumber") }

// PayerPhone returns the paying MSISDN, empty when absent.
func (cb Callback) PayerPhone() string { return cb.metaString("payerPhone") }

// TransactionDate returns the gateway's transaction timestamp string.
func (cb Callback) TransactionDate() string { return cb.metaString("transactionDate") }
