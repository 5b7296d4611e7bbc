package paygate

import "context"

// PaymentReceipt is attached to the request context once a proof has
// been verified. It lives for one request and is never persisted.
type PaymentReceipt struct {
	TxHash   string `json:"txHash"`
	Payer    string `json:"payer"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type receiptContextKey struct{}

// withReceipt attaches a receipt to the context. Only the gate
// middleware calls this; a handler seeing a receipt can rely on the
// payment having been verified in this request's lifecycle.
func withReceipt(ctx context.Context, receipt PaymentReceipt) context.Context {
	return context.WithValue(ctx, receiptContextKey{}, receipt)
}

// ReceiptFrom returns the verified payment receipt for this request,
// if the gate attached one.
func ReceiptFrom(ctx context.Context) (PaymentReceipt, bool) {
	receipt, ok := ctx.Value(receiptContextKey{}).(PaymentReceipt)
	return receipt, ok
}
