package prefs

import (
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/jacentio/lattice/store"
)

// outcome is a terminal write result, replayed when its token repeats.
type outcome struct {
	result int64
	err    error
}

// ledger remembers write outcomes by (owner, token) so a retried request
// returns its original result instead of mutating twice.
type ledger struct {
	outcomes *ttlcache.Cache[string, outcome]
}

func newLedger(ttl time.Duration, capacity int) *ledger {
	outcomes := ttlcache.New(
		ttlcache.WithTTL[string, outcome](ttl),
		ttlcache.WithDisableTouchOnHit[string, outcome](),
		ttlcache.WithCapacity[string, outcome](uint64(capacity)),
	)
	go outcomes.Start()
	return &ledger{outcomes: outcomes}
}

// lookup returns the recorded outcome for the token, if any.
func (l *ledger) lookup(ownerID, token string) (outcome, bool) {
	if token == "" {
		return outcome{}, false
	}
	item := l.outcomes.Get(ledgerKey(ownerID, token))
	if item == nil {
		return outcome{}, false
	}
	return item.Value(), true
}

// record stores the outcomes a replay can answer for: successes and
// version conflicts. Anything else (storage failures, context errors,
// validation errors) is left unrecorded so a retry executes for real.
func (l *ledger) record(ownerID, token string, result int64, err error) {
	if token == "" {
		return
	}
	if err != nil && !errors.Is(err, store.ErrVersionConflict) {
		return
	}
	l.outcomes.Set(ledgerKey(ownerID, token), outcome{result: result, err: err}, ttlcache.DefaultTTL)
}

func (l *ledger) close() {
	l.outcomes.Stop()
}

func ledgerKey(ownerID, token string) string {
	return ownerID + "#" + token
}
