package paygate

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GateOptions carries the optional collaborators of a Gate. Zero values
// get sensible defaults in NewGate.
type GateOptions struct {
	// Logger receives operator-facing detail for failed requests. The
	// caller never sees it. Defaults to a no-op logger.
	Logger *zap.Logger

	// Cache holds resolved price quotes. Defaults to an in-process
	// TTL cache; swap in a RedisQuoteCache for multi-process setups.
	Cache QuoteCache

	// HTTPClient is used for both upstream calls. Defaults to a client
	// with a 15 second timeout.
	HTTPClient *http.Client

	// Meter, when set, records every gate decision.
	Meter *Meter

	// NonceTTL bounds how long an issued challenge nonce stays
	// redeemable. Defaults to DefaultNonceTTL.
	NonceTTL time.Duration
}

// Gate enforces pay-per-call access. It prices each request, challenges
// unpaid callers with a 402, verifies presented proofs against the
// facilitator, and attaches a receipt to requests that pass. Any
// upstream or internal failure fails the request closed with a 500; a
// broken dependency never grants access.
type Gate struct {
	cfg        GateConfig
	resolver   *PriceResolver
	challenges *ChallengeGenerator
	verifier   *ProofVerifier
	nonces     *NonceLedger
	meter      *Meter
	log        *zap.Logger
}

// NewGate validates the config and wires the gate's components. It is
// the only place configuration errors can surface; request handling
// assumes a valid config.
func NewGate(cfg GateConfig, opts GateOptions) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}

	return &Gate{
		cfg:        cfg,
		resolver:   NewPriceResolver(cfg.MerchantID, cfg.GatewayURL, opts.Cache, client, log),
		challenges: NewChallengeGenerator(cfg),
		verifier:   NewProofVerifier(cfg.MerchantID, cfg.FacilitatorURL, client, log),
		nonces:     NewNonceLedger(opts.NonceTTL),
		meter:      opts.Meter,
		log:        log,
	}, nil
}

// Middleware wraps next with the payment gate. When the gate is
// disabled the request passes through untouched and no receipt is
// attached.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.cfg.Enabled {
			g.record(GateMetric{Route: routeOf(r), Outcome: OutcomeBypassed})
			next.ServeHTTP(w, r)
			return
		}
		g.serve(w, r, next)
	})
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	method := strings.ToUpper(r.Method)
	path := CanonicalPath(r.URL.Path)
	route := method + " " + path

	// A panic anywhere in the pipeline must deny access, not crash the
	// process or fall through to the handler.
	defer func() {
		if cause := recover(); cause != nil {
			g.log.Error("payment gate panic",
				zap.String("route", route),
				zap.Any("cause", cause),
			)
			g.record(GateMetric{Route: route, Outcome: OutcomeErrored})
			writeError(w, http.StatusInternalServerError, CodeGatewayError,
				"An internal error occurred during payment processing.")
		}
	}()

	quote, err := g.resolver.Resolve(r.Context(), method, path)
	if err != nil {
		g.fail(w, route, err)
		return
	}

	proof := r.Header.Get(HeaderPaymentProof)
	if proof == "" {
		ch := g.challenges.Challenge(quote, method, path)
		g.nonces.Issue(ch.Nonce)
		g.challenges.Write(w, ch, quote)
		g.record(GateMetric{Route: route, Outcome: OutcomeChallenged})
		return
	}

	payer := r.Header.Get(HeaderPaymentPayer)
	g.log.Debug("payment proof received",
		zap.String("route", route),
		zap.String("payer", payer),
		zap.String("claimedRoute", r.Header.Get(HeaderPaymentRoute)),
	)

	// Nonce redemption is enforced only when the client echoes the
	// challenge nonce; SDK clients that omit the header still verify
	// through the facilitator alone.
	if nonce := r.Header.Get(HeaderPaymentNonce); nonce != "" && !g.nonces.Redeem(nonce) {
		g.log.Warn("challenge nonce replayed or unknown",
			zap.String("route", route),
			zap.String("payer", payer),
		)
		g.reject(w, route)
		return
	}

	receipt, err := g.verifier.Verify(r.Context(), proof, quote, method, path)
	switch {
	case errors.Is(err, ErrPaymentRejected):
		g.reject(w, route)
	case err != nil:
		g.fail(w, route, err)
	default:
		g.record(GateMetric{
			Route:    route,
			Outcome:  OutcomeAllowed,
			Payer:    receipt.Payer,
			Amount:   receipt.Amount,
			Currency: receipt.Currency,
		})
		next.ServeHTTP(w, r.WithContext(withReceipt(r.Context(), receipt)))
	}
}

// reject answers a failed verification with the generic 402 body.
func (g *Gate) reject(w http.ResponseWriter, route string) {
	g.record(GateMetric{Route: route, Outcome: OutcomeRejected})
	writeError(w, http.StatusPaymentRequired, CodeVerificationFailed,
		"Invalid or insufficient payment")
}

// fail answers an upstream or internal failure with the generic 500
// body, logging the cause for operators only.
func (g *Gate) fail(w http.ResponseWriter, route string, err error) {
	g.log.Error("payment gate failure",
		zap.String("route", route),
		zap.Error(err),
	)
	g.record(GateMetric{Route: route, Outcome: OutcomeErrored})
	writeError(w, http.StatusInternalServerError, CodeGatewayError,
		"An internal error occurred during payment processing.")
}

func (g *Gate) record(metric GateMetric) {
	if g.meter != nil {
		g.meter.Record(metric)
	}
}

func routeOf(r *http.Request) string {
	return strings.ToUpper(r.Method) + " " + CanonicalPath(r.URL.Path)
}
