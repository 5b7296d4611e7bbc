// Stub pricing gateway and facilitator for local development. Runs the
// two upstream services the payment gate depends on, so the merchant
// server can be exercised end to end without real infrastructure.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strings"

	"github.com/Varada-Bogeswara-Rao/Mer/internal"
)

type priceCheckRequest struct {
	MerchantID string `json:"merchantId"`
	Method     string `json:"method"`
	Path       string `json:"path"`
}

type priceCheckResponse struct {
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	PayTo       string `json:"payTo"`
	Description string `json:"description"`
}

type verifyGatewayRequest struct {
	PaymentProof   string `json:"paymentProof"`
	ExpectedAmount string `json:"expectedAmount"`
	Currency       string `json:"currency"`
	Path           string `json:"path"`
	Method         string `json:"method"`
}

type verifyGatewayResponse struct {
	Verified bool   `json:"verified"`
	TxHash   string `json:"txHash,omitempty"`
	Payer    string `json:"payer,omitempty"`
}

func main() {
	listenAddr := flag.String("listen", ":3002", "Stub listen address")
	price := flag.String("price", "0.05", "Price quoted for every route")
	currency := flag.String("currency", "USDC", "Quoted currency")
	payTo := flag.String("pay-to", "0x000000000000000000000000000000000000dEaD", "Payee address")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"server": "stub-gateway",
		})
	})

	// Pricing gateway stub: quotes the same price for every route.
	mux.HandleFunc("/price-check", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req priceCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		log.Printf("price-check merchant=%s route=%s %s", req.MerchantID, req.Method, req.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(priceCheckResponse{
			Price:       *price,
			Currency:    *currency,
			PayTo:       *payTo,
			Description: "Stub quote for " + req.Method + " " + req.Path,
		})
	})

	// Facilitator stub: any proof verifies unless it starts with "bad".
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req verifyGatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		merchant := r.Header.Get("x-merchant-id")
		log.Printf("verify merchant=%s route=%s %s amount=%s %s",
			merchant, req.Method, req.Path, req.ExpectedAmount, req.Currency)

		w.Header().Set("Content-Type", "application/json")
		if req.PaymentProof == "" || strings.HasPrefix(req.PaymentProof, "bad") {
			json.NewEncoder(w).Encode(verifyGatewayResponse{Verified: false})
			return
		}
		json.NewEncoder(w).Encode(verifyGatewayResponse{
			Verified: true,
			TxHash:   internal.RandomHex("0x"),
			Payer:    internal.RandomHex("0x"),
		})
	})

	log.Println("Stub gateway starting on", *listenAddr)
	log.Println("  POST /price-check - pricing gateway stub")
	log.Println("  POST /verify      - facilitator stub")
	log.Fatal(http.ListenAndServe(*listenAddr, mux))
}
