// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"sync/atomic"

	"github.com/pdiddy/landscape-engine/internal/metrics"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// ErrBreakerOpen is the cause attached to calls refused by a tripped Breaker.
var ErrBreakerOpen = errors.New("rate-limit breaker is open")

// Breaker is a one-way switch. Once tripped it stays tripped for the life
// of the process, and guarded calls fail fast without reaching the API.
// The zero value is a closed breaker and is safe for concurrent use.
type Breaker struct {
	tripped atomic.Bool
	metrics *metrics.Metrics
}

// NewBreaker returns a closed breaker that exports its state to m.
func NewBreaker(m *metrics.Metrics) *Breaker {
	b := &Breaker{metrics: m}
	m.SetBreakerTripped(false)
	return b
}

// Tripped reports whether the breaker has tripped.
func (b *Breaker) Tripped() bool {
	return b.tripped.Load()
}

// Trip opens the breaker. It reports true only for the call that changed
// the state.
func (b *Breaker) Trip() bool {
	if !b.tripped.CompareAndSwap(false, true) {
		return false
	}
	b.metrics.SetBreakerTripped(true)
	return true
}

// Guard runs fn unless the breaker is open. A rate-limit error from fn
// trips the breaker and is returned as KindSummarizerRateLimited.
func (b *Breaker) Guard(op string, fn func() error) error {
	if b.Tripped() {
		return types.RateLimited(op, ErrBreakerOpen)
	}
	err := fn()
	if err == nil {
		return nil
	}
	if IsRateLimited(err) {
		b.Trip()
		if errors.Is(err, types.ErrSummarizerRateLimited) {
			return err
		}
		return types.RateLimited(op, err)
	}
	return err
}
