// Merchant API server protected by the x402 payment gate.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Varada-Bogeswara-Rao/Mer/internal/config"
	"github.com/Varada-Bogeswara-Rao/Mer/pkg/paygate"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("configuration error", zap.Error(err))
	}

	opts := paygate.GateOptions{
		Logger: log,
		Meter:  paygate.NewMeter(0),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts.Cache = paygate.NewRedisQuoteCache(client, log)
		log.Info("using redis quote cache", zap.String("addr", cfg.RedisAddr))
	}

	gate, err := paygate.NewGate(paygate.GateConfig{
		MerchantID:     cfg.MerchantID,
		GatewayURL:     cfg.GatewayURL,
		FacilitatorURL: cfg.FacilitatorURL,
		Network:        cfg.Network,
		Enabled:        cfg.GateEnabled,
	}, opts)
	if err != nil {
		log.Fatal("payment gate setup failed", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Get("/metrics", paygate.MetricsHandler(opts.Meter))

	r.Route("/api", func(r chi.Router) {
		r.Use(gate.Middleware)
		r.Get("/greet", greetHandler)
	})

	server := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("merchant server listening",
			zap.String("addr", cfg.Addr),
			zap.String("network", string(cfg.Network)),
			zap.Bool("gateEnabled", cfg.GateEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
	}
}

// greetHandler returns the greeting along with the payment receipt the
// gate attached. The receipt is null when the gate is disabled.
func greetHandler(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Message string                  `json:"message"`
		Receipt *paygate.PaymentReceipt `json:"receipt"`
	}{Message: "Hello"}

	if receipt, ok := paygate.ReceiptFrom(r.Context()); ok {
		response.Receipt = &receipt
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
