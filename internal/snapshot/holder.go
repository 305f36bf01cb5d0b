package snapshot

import (
	"sync/atomic"

	"github.com/hyperjump/tansaku/internal/retriever"
)

// Holder hands the currently-live retriever to serving readers. Swap
// publishes a freshly-built snapshot atomically: in-flight queries keep
// the snapshot they started with, new queries see the replacement.
type Holder struct {
	current atomic.Pointer[retriever.Retriever]
}

// NewHolder creates a holder, optionally seeded with an initial retriever.
func NewHolder(r *retriever.Retriever) *Holder {
	h := &Holder{}
	if r != nil {
		h.current.Store(r)
	}
	return h
}

// Get returns the live retriever, or nil when none has been loaded yet.
func (h *Holder) Get() *retriever.Retriever {
	return h.current.Load()
}

// Swap replaces the live retriever.
func (h *Holder) Swap(r *retriever.Retriever) {
	h.current.Store(r)
}
