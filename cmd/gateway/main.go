// x402 payment gateway - a reverse proxy that fronts any backend with
// the pay-per-call gate.
package main

import (
	"flag"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/Varada-Bogeswara-Rao/Mer/pkg/paygate"
)

func main() {
	listenAddr := flag.String("listen", ":8402", "Gateway listen address")
	backendURL := flag.String("backend", "", "Backend URL to proxy to (e.g., http://localhost:3000)")
	merchantID := flag.String("merchant", "", "Merchant identifier")
	pricingURL := flag.String("pricing-url", "", "Pricing gateway base URL")
	facilitatorURL := flag.String("facilitator-url", "", "Facilitator base URL")
	network := flag.String("network", "testnet", "Target network (mainnet or testnet)")
	flag.Parse()

	// Environment variables override flags so the binary drops into
	// containers without a wrapper script.
	if env := os.Getenv("X402_BACKEND_URL"); env != "" {
		*backendURL = env
	}
	if env := os.Getenv("X402_MERCHANT_ID"); env != "" {
		*merchantID = env
	}
	if env := os.Getenv("X402_GATEWAY_URL"); env != "" {
		*pricingURL = env
	}
	if env := os.Getenv("X402_FACILITATOR_URL"); env != "" {
		*facilitatorURL = env
	}
	if env := os.Getenv("X402_NETWORK"); env != "" {
		*network = env
	}
	if env := os.Getenv("X402_LISTEN_ADDR"); env != "" {
		*listenAddr = env
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *backendURL == "" {
		log.Fatal("backend URL is required; use -backend or X402_BACKEND_URL")
	}
	target, err := url.Parse(*backendURL)
	if err != nil {
		log.Fatal("invalid backend URL", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Header.Set("X-Forwarded-Host", req.Host)
		req.Header.Set("X-Origin-Host", target.Host)
	}

	gate, err := paygate.NewGate(paygate.GateConfig{
		MerchantID:     *merchantID,
		GatewayURL:     *pricingURL,
		FacilitatorURL: *facilitatorURL,
		Network:        paygate.Network(*network),
		Enabled:        true,
	}, paygate.GateOptions{Logger: log})
	if err != nil {
		log.Fatal("payment gate setup failed", zap.Error(err))
	}

	log.Info("x402 gateway starting",
		zap.String("listen", *listenAddr),
		zap.String("backend", *backendURL),
		zap.String("network", *network),
	)
	log.Fatal("server stopped", zap.Error(http.ListenAndServe(*listenAddr, gate.Middleware(proxy))))
}
