// Package paygate provides HTTP 402 Payment Required middleware for
// pay-per-call APIs.
//
// The gate resolves a per-route price from an external pricing gateway,
// challenges unpaid callers with a structured 402 payment request, and
// verifies presented payment proofs against a facilitator service. A
// request only reaches the protected handler once a verified payment
// receipt has been attached to its context.
//
// Basic usage:
//
//	gate, err := paygate.NewGate(paygate.GateConfig{
//	    MerchantID:     "de44364a-760e-40d9-8738-183de877b5b9",
//	    GatewayURL:     "https://gateway.example.com",
//	    FacilitatorURL: "https://facilitator.example.com",
//	    Network:        paygate.NetworkTestnet,
//	    Enabled:        true,
//	}, paygate.GateOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/greet", greetHandler)
//	http.ListenAndServe(":3001", gate.Middleware(mux))
//
// Handlers read the receipt with paygate.ReceiptFrom(r.Context()).
package paygate
