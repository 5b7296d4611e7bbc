// Package config loads process configuration for the merchant binaries
// from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Varada-Bogeswara-Rao/Mer/pkg/paygate"
)

// Config is the full process configuration for cmd/merchantd.
type Config struct {
	Addr            string
	MerchantID      string
	GatewayURL      string
	FacilitatorURL  string
	Network         paygate.Network
	GateEnabled     bool
	RedisAddr       string
	ShutdownTimeout time.Duration
}

// Load reads the environment, with an optional .env file for local
// development. Required values fail fast; the gate re-validates its own
// fields in paygate.NewGate.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Addr:            getEnv("X402_LISTEN_ADDR", ":3001"),
		MerchantID:      getEnv("X402_MERCHANT_ID", ""),
		GatewayURL:      getEnv("X402_GATEWAY_URL", ""),
		FacilitatorURL:  getEnv("X402_FACILITATOR_URL", ""),
		Network:         paygate.Network(getEnv("X402_NETWORK", string(paygate.NetworkTestnet))),
		RedisAddr:       getEnv("X402_REDIS_ADDR", ""),
		ShutdownTimeout: 15 * time.Second,
	}

	if cfg.MerchantID == "" {
		return Config{}, fmt.Errorf("X402_MERCHANT_ID is required")
	}
	if cfg.GatewayURL == "" {
		return Config{}, fmt.Errorf("X402_GATEWAY_URL is required")
	}
	if cfg.FacilitatorURL == "" {
		return Config{}, fmt.Errorf("X402_FACILITATOR_URL is required")
	}

	enabled, err := getEnvBool("X402_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	cfg.GateEnabled = enabled

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %v", key, raw, err)
	}
	return value, nil
}
