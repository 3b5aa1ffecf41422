package wizard

import (
	"errors"
	"sync/atomic"
)

// ErrDiscarded is returned when a load finished after its guard was released.
var ErrDiscarded = errors.New("wizard: result discarded, guard released")

// Guard is a caller-owned token for in-flight loads. Once released, results
// that arrive later are dropped instead of applied. Pair it with a context
// when the request itself should also be abandoned.
type Guard struct {
	released atomic.Bool
}

// NewGuard returns an active guard.
func NewGuard() *Guard { return &Guard{} }

// Release marks the owner as torn down.
func (g *Guard) Release() { g.released.Store(true) }

// Active reports whether results should still be applied. A nil guard is
// always active.
func (g *Guard) Active() bool {
	return g == nil || !g.released.Load()
}
