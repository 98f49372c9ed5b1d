package otp

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttlePruneAt = 10_000

// Throttle limita intentos de verificación por (requester, subject).
// Token bucket: burst = maxAttempts, se recarga completo en window.
type Throttle struct {
	mu     sync.Mutex
	every  rate.Limit
	burst  int
	bucket map[throttleKey]*rate.Limiter
}

type throttleKey struct {
	requesterID string
	subjectID   string
}

// NewThrottle devuelve nil si maxAttempts <= 0 (sin límite).
func NewThrottle(maxAttempts int, window time.Duration) *Throttle {
	if maxAttempts <= 0 || window <= 0 {
		return nil
	}
	return &Throttle{
		every:  rate.Every(window / time.Duration(maxAttempts)),
		burst:  maxAttempts,
		bucket: make(map[throttleKey]*rate.Limiter),
	}
}

func (t *Throttle) Allow(requesterID, subjectID string, now time.Time) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	k := throttleKey{requesterID: requesterID, subjectID: subjectID}
	lim, ok := t.bucket[k]
	if !ok {
		if len(t.bucket) >= throttlePruneAt {
			t.pruneLocked(now)
		}
		lim = rate.NewLimiter(t.every, t.burst)
		t.bucket[k] = lim
	}
	return lim.AllowN(now, 1)
}

// Reset olvida el historial del par (tras una verificación exitosa).
func (t *Throttle) Reset(requesterID, subjectID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.bucket, throttleKey{requesterID: requesterID, subjectID: subjectID})
}

// pruneLocked descarta buckets que ya se recargaron por completo.
func (t *Throttle) pruneLocked(now time.Time) {
	for k, lim := range t.bucket {
		if lim.TokensAt(now) >= float64(t.burst) {
			delete(t.bucket, k)
		}
	}
}
