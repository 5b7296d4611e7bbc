package paygate

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// Request headers consumed by the gate.
const (
	HeaderPaymentProof = "X-Payment-Proof"
	HeaderPaymentPayer = "X-Payment-Payer"
	HeaderPaymentRoute = "X-Payment-Route"
	HeaderPaymentNonce = "X-Payment-Nonce"
)

// Response headers emitted on a 402 challenge.
const (
	HeaderPaymentRequired    = "X-Payment-Required"
	HeaderPaymentAmount      = "X-Payment-Amount"
	HeaderPaymentCurrency    = "X-Payment-Currency"
	HeaderPaymentNetwork     = "X-Payment-Network"
	HeaderPaymentPayTo       = "X-Payment-PayTo"
	HeaderMerchantID         = "X-Merchant-ID"
	HeaderFacilitatorURL     = "X-Facilitator-URL"
	HeaderPaymentDescription = "X-Payment-Description"
	HeaderNonce              = "X-Nonce"
	HeaderChainID            = "X-Chain-ID"
	HeaderRoute              = "X-Route"
)

// PaymentChallenge is the structured payment request placed in the 402
// body for SDK clients. The same values are mirrored into headers for
// clients that only read headers.
type PaymentChallenge struct {
	ChainID    int    `json:"chainId"`
	MerchantID string `json:"merchantId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Receiver   string `json:"receiver"`
	Nonce      string `json:"nonce"`
	Route      string `json:"route"`
}

// challengeBody is the full 402 JSON body.
type challengeBody struct {
	Error          string           `json:"error"`
	Message        string           `json:"message"`
	PaymentRequest PaymentChallenge `json:"paymentRequest"`
}

// errorBody is the JSON body for rejection and gateway-error responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ChallengeGenerator builds 402 challenges. It is stateless apart from
// the config it was built with; a fresh nonce is generated per call, so
// retrying the same route always yields a new challenge.
type ChallengeGenerator struct {
	cfg     GateConfig
	chainID int
}

// NewChallengeGenerator derives the chain id once from the validated
// config; an unknown network never reaches request time.
func NewChallengeGenerator(cfg GateConfig) *ChallengeGenerator {
	chainID, _ := cfg.Network.ChainID()
	return &ChallengeGenerator{cfg: cfg, chainID: chainID}
}

// Challenge builds the payment request for a route at the quoted price.
func (g *ChallengeGenerator) Challenge(quote PriceQuote, method, path string) PaymentChallenge {
	return PaymentChallenge{
		ChainID:    g.chainID,
		MerchantID: g.cfg.MerchantID,
		Amount:     quote.Price,
		Currency:   quote.Currency,
		Receiver:   quote.PayTo,
		Nonce:      uuid.NewString(),
		Route:      method + " " + path,
	}
}

// Write emits the 402 response: headers and JSON body carry identical
// values, a duplication kept deliberately for client compatibility.
func (g *ChallengeGenerator) Write(w http.ResponseWriter, ch PaymentChallenge, quote PriceQuote) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set(HeaderPaymentRequired, "true")
	h.Set(HeaderPaymentAmount, ch.Amount)
	h.Set(HeaderPaymentCurrency, ch.Currency)
	h.Set(HeaderPaymentNetwork, string(g.cfg.Network))
	h.Set(HeaderPaymentPayTo, ch.Receiver)
	h.Set(HeaderMerchantID, ch.MerchantID)
	h.Set(HeaderFacilitatorURL, g.cfg.FacilitatorURL)
	h.Set(HeaderPaymentDescription, quote.Description)
	h.Set(HeaderNonce, ch.Nonce)
	h.Set(HeaderChainID, strconv.Itoa(ch.ChainID))
	h.Set(HeaderRoute, ch.Route)

	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(challengeBody{
		Error:          CodePaymentRequired,
		Message:        "Payment required to access this resource",
		PaymentRequest: ch,
	})
}

// writeError sends a generic JSON error body. Internal detail never
// reaches the caller; operators get it from the logs instead.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}
