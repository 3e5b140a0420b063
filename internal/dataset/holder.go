package dataset

import (
	"sync"
)

// Holder owns the published state of one dataset. Writers replace the shared
// pointers under the lock, readers take snapshots; published values are
// immutable so snapshots stay valid across later swaps.
type Holder struct {
	mu       sync.RWMutex
	base     *Dataset
	baseErr  error
	realtime *RealTimeDataset
}

// NewHolder seeds a holder with the initial base build result and an empty
// realtime overlay bound to it.
func NewHolder(base *Dataset, baseErr error, providerURLs []string) *Holder {
	return &Holder{
		base:     base,
		baseErr:  baseErr,
		realtime: NewRealTimeDataset(base, baseErr, providerURLs),
	}
}

// Dataset returns a snapshot of the current base schedule, or the error that
// its last build produced.
func (h *Holder) Dataset() (*Dataset, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.base, h.baseErr
}

// RealtimeDataset returns a snapshot of the current realtime overlay. The
// returned value carries its own base pointer and stays self-consistent even
// if a new base is published immediately after.
func (h *Holder) RealtimeDataset() *RealTimeDataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.realtime
}

// SetBaseSchedule atomically replaces the base schedule. A failed build is
// published as the error itself; consumers surface it instead of stale data.
func (h *Holder) SetBaseSchedule(base *Dataset, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = base
	h.baseErr = err
}

// SetRealtime atomically replaces the realtime overlay.
func (h *Holder) SetRealtime(rt *RealTimeDataset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.realtime = rt
}
