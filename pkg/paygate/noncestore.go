package paygate

import (
	"sync"
	"time"
)

// DefaultNonceTTL is how long an issued challenge nonce stays
// redeemable. A client has this long to pay and retry.
const DefaultNonceTTL = 10 * time.Minute

// NonceLedger tracks challenge nonces for single-use redemption. Each
// 402 challenge issues a nonce; a retry that echoes the nonce header
// may redeem it exactly once. Expired entries are swept opportunistically
// on writes, at most once a minute.
type NonceLedger struct {
	mu        sync.Mutex
	ttl       time.Duration
	nonces    map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewNonceLedger creates a ledger; a non-positive TTL falls back to
// DefaultNonceTTL.
func NewNonceLedger(ttl time.Duration) *NonceLedger {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &NonceLedger{
		ttl:    ttl,
		nonces: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue records a freshly generated challenge nonce.
func (l *NonceLedger) Issue(nonce string) {
	if nonce == "" {
		return
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		l.sweepLocked(now)
		l.lastSweep = now
	}
	l.nonces[nonce] = now.Add(l.ttl)
}

// Redeem consumes a nonce. It reports true only for a nonce that was
// issued, has not expired, and has not been redeemed before.
func (l *NonceLedger) Redeem(nonce string) bool {
	if nonce == "" {
		return false
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.nonces[nonce]
	if !ok || !expiresAt.After(now) {
		return false
	}
	delete(l.nonces, nonce)
	return true
}

func (l *NonceLedger) sweepLocked(now time.Time) {
	for nonce, expiresAt := range l.nonces {
		if !expiresAt.After(now) {
			delete(l.nonces, nonce)
		}
	}
}
