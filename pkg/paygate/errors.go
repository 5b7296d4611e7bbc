package paygate

import "errors"

// Error taxonomy for the payment gate. Every failure inside the pipeline
// collapses to one of these so the middleware can map it to a generic
// client-facing response without leaking upstream detail.
var (
	// ErrConfigInvalid indicates a missing or malformed required
	// configuration field. Raised at construction time only.
	ErrConfigInvalid = errors.New("paygate: invalid configuration")

	// ErrUpstreamUnavailable indicates the pricing gateway or the
	// facilitator was unreachable, timed out, or returned a non-success
	// status. The gate fails closed on it.
	ErrUpstreamUnavailable = errors.New("paygate: upstream unavailable")

	// ErrPaymentMissing indicates the request carried no payment proof.
	ErrPaymentMissing = errors.New("paygate: payment proof missing")

	// ErrPaymentRejected indicates the facilitator did not verify the
	// presented proof.
	ErrPaymentRejected = errors.New("paygate: payment rejected")

	// ErrInternal indicates an unexpected failure inside the pipeline.
	ErrInternal = errors.New("paygate: internal error")
)

// Client-facing error codes used in JSON error bodies.
const (
	CodePaymentRequired    = "PAYMENT_REQUIRED"
	CodeVerificationFailed = "PAYMENT_VERIFICATION_FAILED"
	CodeGatewayError       = "PAYMENT_GATEWAY_ERROR"
)
