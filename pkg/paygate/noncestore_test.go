package paygate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNonceLedger_SingleUse(t *testing.T) {
	ledger := NewNonceLedger(time.Minute)
	ledger.Issue("n1")

	assert.True(t, ledger.Redeem("n1"))
	assert.False(t, ledger.Redeem("n1"), "nonce must not be redeemable twice")
}

func TestNonceLedger_UnknownNonce(t *testing.T) {
	ledger := NewNonceLedger(time.Minute)

	assert.False(t, ledger.Redeem("never-issued"))
	assert.False(t, ledger.Redeem(""))
}

func TestNonceLedger_Expiry(t *testing.T) {
	ledger := NewNonceLedger(time.Minute)
	current := time.Now()
	ledger.now = func() time.Time { return current }

	ledger.Issue("n1")
	current = current.Add(2 * time.Minute)

	assert.False(t, ledger.Redeem("n1"), "expired nonce must not be redeemable")
}

func TestNonceLedger_SweepDropsExpired(t *testing.T) {
	ledger := NewNonceLedger(time.Minute)
	current := time.Now()
	ledger.now = func() time.Time { return current }

	ledger.Issue("old")
	current = current.Add(5 * time.Minute)
	ledger.Issue("new")

	assert.Len(t, ledger.nonces, 1)
	assert.True(t, ledger.Redeem("new"))
}
