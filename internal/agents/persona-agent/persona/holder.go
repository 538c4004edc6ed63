package persona

import "sync/atomic"

// Holder publishes the current persona to concurrent readers.
type Holder struct {
	p atomic.Pointer[Persona]
}

func NewHolder(p Persona) *Holder {
	h := &Holder{}
	h.Set(p)
	return h
}

func (h *Holder) Set(p Persona) {
	h.p.Store(&p)
}

func (h *Holder) Get() Persona {
	if p := h.p.Load(); p != nil {
		return *p
	}
	return Persona{}
}

func (h *Holder) Name() string { return h.Get().Name }

func (h *Holder) Preamble() string { return h.Get().Render() }

func (h *Holder) ImageStyle() string { return h.Get().ImageStyle }
