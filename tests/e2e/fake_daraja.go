//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// QueryAnswer is what the fake returns for one checkout id on the status query endpoint.
type QueryAnswer struct {
	ResultCode int
	ResultDesc string
	Amount     float64
	Receipt    string
	Phone      string
}

// FakeDaraja stands in for the Safaricom sandbox. Pushes are always accepted; queries answer
// "still processing" until an answer is registered for the checkout id.
type FakeDaraja struct {
	server *httptest.Server
	seq    atomic.Int64

	mu      sync.Mutex
	answers map[string]QueryAnswer
	pushes  []map[string]any
	failAll bool
}

func NewFakeDaraja() *FakeDaraja {
	f := &FakeDaraja{answers: map[string]QueryAnswer{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "e2e-token", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", f.handlePush)
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", f.handleQuery)
	f.server = httptest.NewServer(mux)
	return f
}

func (f *FakeDaraja) URL() string { return f.server.URL }

func (f *FakeDaraja) Close() { f.server.Close() }

// Answer registers the final result the query endpoint reports for a checkout id.
func (f *FakeDaraja) Answer(checkoutID string, a QueryAnswer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[checkoutID] = a
}

// RejectPushes makes every push fail with a gateway error until reset.
func (f *FakeDaraja) RejectPushes(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = reject
}

func (f *FakeDaraja) Pushes() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.pushes...)
}

func (f *FakeDaraja) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = map[string]QueryAnswer{}
	f.pushes = nil
	f.failAll = false
}

func (f *FakeDaraja) handlePush(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorCode": "400.002.02", "errorMessage": err.Error()})
		return
	}

	f.mu.Lock()
	f.pushes = append(f.pushes, body)
	reject := f.failAll
	f.mu.Unlock()

	if reject {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"requestId":    "e2e",
			"errorCode":    "500.001.1001",
			"errorMessage": "Unable to lock subscriber, a transaction is already in process for the current subscriber",
		})
		return
	}

	n := f.seq.Add(1)
	writeJSON(w, http.StatusOK, map[string]string{
		"MerchantRequestID":   fmt.Sprintf("e2e-m-%d", n),
		"CheckoutRequestID":   fmt.Sprintf("ws_CO_E2E_%d", n),
		"ResponseCode":        "0",
		"ResponseDescription": "Success. Request accepted for processing",
		"CustomerMessage":     "Success. Request accepted for processing",
	})
}

func (f *FakeDaraja) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	a, ok := f.answers[body.CheckoutRequestID]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"requestId":    "e2e",
			"errorCode":    "500.001.1001",
			"errorMessage": "The transaction is being processed",
		})
		return
	}

	resp := map[string]any{
		"ResponseCode":        "0",
		"ResponseDescription": "The service request has been accepted successsfully",
		"CheckoutRequestID":   body.CheckoutRequestID,
		"ResultCode":          fmt.Sprint(a.ResultCode),
		"ResultDesc":          a.ResultDesc,
	}
	if a.ResultCode == 0 {
		resp["CallbackMetadata"] = CallbackMetadata(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CallbackMetadata renders the metadata items Daraja attaches to a successful result.
func CallbackMetadata(a QueryAnswer) map[string]any {
	return map[string]any{
		"Item": []map[string]any{
			{"Name": "Amount", "Value": a.Amount},
			{"Name": "MpesaReceiptNumber", "Value": a.Receipt},
			{"Name": "TransactionDate", "Value": 20260301093000},
			{"Name": "PhoneNumber", "Value": a.Phone},
		},
	}
}

// CallbackBody builds the envelope Daraja posts to the callback URL.
func CallbackBody(checkoutID string, a QueryAnswer) map[string]any {
	cb := map[string]any{
		"MerchantRequestID": "e2e-m",
		"CheckoutRequestID": checkoutID,
		"ResultCode":        a.ResultCode,
		"ResultDesc":        a.ResultDesc,
	}
	if a.ResultCode == 0 {
		cb["CallbackMetadata"] = CallbackMetadata(a)
	}
	return map[string]any{"Body": map[string]any{"stkCallback": cb}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
