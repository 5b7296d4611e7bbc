package paygate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateFixture wires a gate against fake upstream servers.
type gateFixture struct {
	gate        *Gate
	meter       *Meter
	priceCalls  func() int64
	lastReceipt *PaymentReceipt
}

func newGateFixture(t *testing.T, verdict verifyResponse, enabled bool) *gateFixture {
	t.Helper()

	gateway, calls := fakeGateway(t, testQuote())
	facilitator, _, _ := fakeFacilitator(t, verdict)

	meter := NewMeter(0)
	gate, err := NewGate(GateConfig{
		MerchantID:     "merchant-1",
		GatewayURL:     gateway.URL,
		FacilitatorURL: facilitator.URL,
		Network:        NetworkTestnet,
		Enabled:        enabled,
	}, GateOptions{Meter: meter})
	require.NoError(t, err)

	return &gateFixture{
		gate:       gate,
		meter:      meter,
		priceCalls: calls.Load,
	}
}

// protected is a handler that records the receipt it saw.
func (f *gateFixture) protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if receipt, ok := ReceiptFrom(r.Context()); ok {
			f.lastReceipt = &receipt
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Hello"}`))
	})
}

func (f *gateFixture) do(req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	f.gate.Middleware(f.protected()).ServeHTTP(w, req)
	return w.Result()
}

func TestGate_NoProofChallenged(t *testing.T) {
	f := newGateFixture(t, verifyResponse{}, true)

	resp := f.do(httptest.NewRequest("GET", "/api/greet", nil))
	defer resp.Body.Close()

	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "338", resp.Header.Get(HeaderChainID))
	assert.Equal(t, "testnet", resp.Header.Get(HeaderPaymentNetwork))
	assert.Equal(t, "GET /api/greet", resp.Header.Get(HeaderRoute))

	var body challengeBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, CodePaymentRequired, body.Error)
	assert.Equal(t, 338, body.PaymentRequest.ChainID)
	assert.Equal(t, testQuote().Price, body.PaymentRequest.Amount)
	assert.Nil(t, f.lastReceipt, "handler must not run on a challenge")
}

func TestGate_NonceDiffersAcrossChallenges(t *testing.T) {
	f := newGateFixture(t, verifyResponse{}, true)

	first := f.do(httptest.NewRequest("GET", "/api/greet", nil))
	first.Body.Close()
	second := f.do(httptest.NewRequest("GET", "/api/greet", nil))
	second.Body.Close()

	n1, n2 := first.Header.Get(HeaderNonce), second.Header.Get(HeaderNonce)
	require.NotEmpty(t, n1)
	assert.NotEqual(t, n1, n2, "each challenge must carry a fresh nonce")
}

func TestGate_VerifiedProofAllowed(t *testing.T) {
	f := newGateFixture(t, verifyResponse{Verified: true, TxHash: "0x1", Payer: "0x2"}, true)

	req := httptest.NewRequest("GET", "/api/greet", nil)
	req.Header.Set(HeaderPaymentProof, "abc")
	resp := f.do(req)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, f.lastReceipt, "handler must see the receipt")
	assert.Equal(t, PaymentReceipt{
		TxHash:   "0x1",
		Payer:    "0x2",
		Amount:   testQuote().Price,
		Currency: testQuote().Currency,
	}, *f.lastReceipt)
}

func TestGate_RejectedProof(t *testing.T) {
	f := newGateFixture(t, verifyResponse{Verified: false}, true)

	req := httptest.NewRequest("GET", "/api/greet", nil)
	req.Header.Set(HeaderPaymentProof, "abc")
	resp := f.do(req)
	defer resp.Body.Close()

	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, CodeVerificationFailed, body.Error)
	assert.Nil(t, f.lastReceipt, "handler must not run on rejection")
}

func TestGate_PricingDownFailsClosed(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gateway.Close()
	facilitator, _, _ := fakeFacilitator(t, verifyResponse{Verified: true})

	gate, err := NewGate(GateConfig{
		MerchantID:     "merchant-1",
		GatewayURL:     gateway.URL,
		FacilitatorURL: facilitator.URL,
		Network:        NetworkTestnet,
		Enabled:        true,
	}, GateOptions{})
	require.NoError(t, err)

	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when pricing is down")
	}))

	// With and without a proof the outcome is the same generic 500.
	for _, withProof := range []bool{false, true} {
		req := httptest.NewRequest("GET", "/api/greet", nil)
		if withProof {
			req.Header.Set(HeaderPaymentProof, "abc")
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		resp := w.Result()
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, CodeGatewayError, body.Error)
		resp.Body.Close()
	}
}

func TestGate_FacilitatorDownFailsClosed(t *testing.T) {
	gateway, _ := fakeGateway(t, testQuote())
	facilitator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	facilitator.Close()

	gate, err := NewGate(GateConfig{
		MerchantID:     "merchant-1",
		GatewayURL:     gateway.URL,
		FacilitatorURL: facilitator.URL,
		Network:        NetworkTestnet,
		Enabled:        true,
	}, GateOptions{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/greet", nil)
	req.Header.Set(HeaderPaymentProof, "abc")
	w := httptest.NewRecorder()
	gate.Middleware(http.NotFoundHandler()).ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, CodeGatewayError, body.Error)
}

func TestGate_DisabledBypasses(t *testing.T) {
	f := newGateFixture(t, verifyResponse{}, false)

	resp := f.do(httptest.NewRequest("GET", "/api/greet", nil))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, f.lastReceipt, "disabled gate must not attach a receipt")
	assert.Equal(t, int64(0), f.priceCalls(), "disabled gate must not price requests")
}

func TestGate_PriceCachedAcrossRequests(t *testing.T) {
	f := newGateFixture(t, verifyResponse{}, true)

	f.do(httptest.NewRequest("GET", "/api/greet", nil)).Body.Close()
	f.do(httptest.NewRequest("GET", "/api/greet", nil)).Body.Close()

	assert.Equal(t, int64(1), f.priceCalls(), "second request within TTL must hit the cache")
}

func TestGate_NonceSingleUse(t *testing.T) {
	f := newGateFixture(t, verifyResponse{Verified: true, TxHash: "0x1", Payer: "0x2"}, true)

	challenge := f.do(httptest.NewRequest("GET", "/api/greet", nil))
	challenge.Body.Close()
	nonce := challenge.Header.Get(HeaderNonce)
	require.NotEmpty(t, nonce)

	retry := httptest.NewRequest("GET", "/api/greet", nil)
	retry.Header.Set(HeaderPaymentProof, "abc")
	retry.Header.Set(HeaderPaymentNonce, nonce)
	first := f.do(retry)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	replay := httptest.NewRequest("GET", "/api/greet", nil)
	replay.Header.Set(HeaderPaymentProof, "abc")
	replay.Header.Set(HeaderPaymentNonce, nonce)
	second := f.do(replay)
	defer second.Body.Close()

	require.Equal(t, http.StatusPaymentRequired, second.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, CodeVerificationFailed, body.Error)
}

func TestGate_MeterRecordsOutcomes(t *testing.T) {
	f := newGateFixture(t, verifyResponse{Verified: true, TxHash: "0x1", Payer: "0x2"}, true)

	f.do(httptest.NewRequest("GET", "/api/greet", nil)).Body.Close()

	paid := httptest.NewRequest("GET", "/api/greet", nil)
	paid.Header.Set(HeaderPaymentProof, "abc")
	f.do(paid).Body.Close()

	report := f.meter.Report()
	assert.Equal(t, int64(2), report.TotalRequests)
	assert.Equal(t, int64(1), report.TotalAllowed)
	assert.Equal(t, testQuote().Price, report.TotalRevenue)
}

func TestGate_InvalidConfigRejectedAtConstruction(t *testing.T) {
	_, err := NewGate(GateConfig{}, GateOptions{})
	assert.ErrorIs(t, err, ErrConfigInvalid)

	cfg := testGateConfig("devnet")
	_, err = NewGate(cfg, GateOptions{})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
