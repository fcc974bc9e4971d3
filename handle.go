package ddscert

import (
	"go.uber.org/atomic"
)

// noCopy marks a struct that must not be copied after first use. go vet's
// copylocks check reports value copies of structs embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// handle is a shared-ownership wrapper around a decoded object. Holders call
// acquire to share it and release when done; the object is dropped when the
// last holder releases. Count updates are atomic so holders may live on
// different goroutines.
type handle struct {
	obj     *Decoded
	refs    *atomic.Int32
	onFinal func(*Decoded)
}

func newHandle(obj *Decoded, onFinal func(*Decoded)) *handle {
	return &handle{obj: obj, refs: atomic.NewInt32(1), onFinal: onFinal}
}

// alive reports whether the object has not yet been dropped.
func (h *handle) alive() bool {
	return h != nil && h.refs.Load() > 0
}

// acquire adds a holder and returns the same handle, or nil if the object
// was already dropped.
func (h *handle) acquire() *handle {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return nil
		}
		if h.refs.CAS(n, n+1) {
			return h
		}
	}
}

// release drops a holder. The last release runs the finalizer and clears
// the object pointer; releasing a dropped handle does nothing.
func (h *handle) release() {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return
		}
		if h.refs.CAS(n, n-1) {
			if n > 1 {
				return
			}
			break
		}
	}
	obj := h.obj
	h.obj = nil
	if h.onFinal != nil {
		h.onFinal(obj)
	}
}

func (h *handle) count() int32 {
	return h.refs.Load()
}
