package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ProofVerifier forwards payment proofs to the facilitator service and
// interprets the outcome. The proof itself is opaque to the gate: all
// cryptographic and chain validation happens on the facilitator side.
type ProofVerifier struct {
	merchantID     string
	facilitatorURL string
	client         *http.Client
	log            *zap.Logger
}

// NewProofVerifier creates a verifier for the given merchant. A nil
// client gets a timeout-bound default, a nil logger a no-op logger.
func NewProofVerifier(merchantID, facilitatorURL string, client *http.Client, log *zap.Logger) *ProofVerifier {
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProofVerifier{
		merchantID:     merchantID,
		facilitatorURL: strings.TrimSuffix(facilitatorURL, "/"),
		client:         client,
		log:            log,
	}
}

// verifyRequest is the facilitator request body.
type verifyRequest struct {
	PaymentProof   string `json:"paymentProof"`
	ExpectedAmount string `json:"expectedAmount"`
	Currency       string `json:"currency"`
	Path           string `json:"path"`
	Method         string `json:"method"`
}

// verifyResponse is the facilitator response body.
type verifyResponse struct {
	Verified bool   `json:"verified"`
	TxHash   string `json:"txHash"`
	Payer    string `json:"payer"`
}

// Verify submits a proof with the expected transaction parameters and
// returns a receipt when the facilitator confirms it. A not-verified
// answer maps to ErrPaymentRejected, any transport failure, timeout or
// non-success status to ErrUpstreamUnavailable. Verify never retries;
// retry policy belongs to the client.
func (v *ProofVerifier) Verify(ctx context.Context, proof string, quote PriceQuote, method, path string) (PaymentReceipt, error) {
	body, err := json.Marshal(verifyRequest{
		PaymentProof:   proof,
		ExpectedAmount: quote.Price,
		Currency:       quote.Currency,
		Path:           path,
		Method:         method,
	})
	if err != nil {
		return PaymentReceipt{}, fmt.Errorf("%w: encode verify request: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.facilitatorURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return PaymentReceipt{}, fmt.Errorf("%w: build verify request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Merchant identity travels as a header so the facilitator can
	// authenticate and audit without parsing the body.
	req.Header.Set("x-merchant-id", v.merchantID)

	resp, err := v.client.Do(req)
	if err != nil {
		return PaymentReceipt{}, fmt.Errorf("%w: verify: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PaymentReceipt{}, fmt.Errorf("%w: verify returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return PaymentReceipt{}, fmt.Errorf("%w: decode verify response: %v", ErrUpstreamUnavailable, err)
	}

	if !result.Verified {
		return PaymentReceipt{}, ErrPaymentRejected
	}

	v.log.Debug("payment verified",
		zap.String("txHash", result.TxHash),
		zap.String("payer", result.Payer),
		zap.String("method", method),
		zap.String("path", path),
	)
	return PaymentReceipt{
		TxHash:   result.TxHash,
		Payer:    result.Payer,
		Amount:   quote.Price,
		Currency: quote.Currency,
	}, nil
}
