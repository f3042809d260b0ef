package canlight

import "sync"

// Capability names the typed command surface a Proxy exposes. get_proxy
// uses it to pick the concrete proxy implementation and to detect
// capability mismatches against an existing proxy for the same DID.
type Capability string

// CapabilityDimmer is the reference capability: a five-channel dimmer.
const CapabilityDimmer Capability = "dimmer"

// AvailabilityHandle is returned by Proxy.OnAvailability and passed back
// to Proxy.Unregister to remove a previously registered observer.
type AvailabilityHandle struct {
	id uint64
}

// Proxy is the interface by which callers issue typed commands to a
// discovered device. Every proxy tracks its own current TID (possibly
// null/unassigned) and a set of availability observers.
type Proxy interface {
	// DID returns the 32-character hex device identity this proxy was
	// created for.
	DID() string
	// Capability returns the capability this proxy was created with.
	Capability() Capability
	// Available reports whether this proxy currently has an assigned TID.
	Available() bool
	// OnAvailability registers an observer fired exactly once per
	// availability transition, synchronously, in registration order.
	// Observers registered after a transition do not retroactively see
	// it; callers needing initial state must read Available() directly.
	OnAvailability(fn func(available bool)) AvailabilityHandle
	// Unregister removes a previously registered observer.
	Unregister(h AvailabilityHandle)

	// setTID is called by the registry on enumeration commit; it is not
	// part of the public capability surface.
	setTID(tid *uint16)
}

// observer is one registered availability callback, kept in a slice
// rather than a map so notification order matches registration order as
// §5 requires.
type observer struct {
	id uint64
	fn func(bool)
}

// baseProxy implements the Proxy bookkeeping (TID, availability,
// observers) shared by every capability; concrete proxies embed it.
type baseProxy struct {
	bus        *Bus
	did        string
	capability Capability

	mu         sync.Mutex
	tid        *uint16
	nextHandle uint64
	observers  []observer
}

func newBaseProxy(bus *Bus, did string, cap Capability) baseProxy {
	return baseProxy{
		bus:        bus,
		did:        did,
		capability: cap,
	}
}

func (p *baseProxy) DID() string            { return p.did }
func (p *baseProxy) Capability() Capability { return p.capability }

func (p *baseProxy) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tid != nil
}

func (p *baseProxy) currentTID() (uint16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tid == nil {
		return 0, false
	}
	return *p.tid, true
}

func (p *baseProxy) OnAvailability(fn func(bool)) AvailabilityHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextHandle++
	h := p.nextHandle
	p.observers = append(p.observers, observer{id: h, fn: fn})
	return AvailabilityHandle{id: h}
}

func (p *baseProxy) Unregister(h AvailabilityHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.observers {
		if o.id == h.id {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// setTID updates the proxy's TID and, on an availability transition, fires
// every registered observer synchronously in registration order. Observer
// panics are recovered and logged; they never interrupt the notification.
func (p *baseProxy) setTID(tid *uint16) {
	p.mu.Lock()
	wasAvail := p.tid != nil
	p.tid = tid
	isAvail := p.tid != nil
	var fns []func(bool)
	if wasAvail != isAvail {
		fns = make([]func(bool), len(p.observers))
		for i, o := range p.observers {
			fns[i] = o.fn
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		notifyObserver(fn, isAvail)
	}
}

func notifyObserver(fn func(bool), available bool) {
	defer func() {
		if r := recover(); r != nil {
			_lg.Errorf("canlight: availability observer panicked: %v", r)
		}
	}()
	fn(available)
}

// DimmerProxy is the reference five-channel dimmer capability.
type DimmerProxy struct {
	baseProxy
}

func newDimmerProxy(bus *Bus, did string) *DimmerProxy {
	return &DimmerProxy{baseProxy: newBaseProxy(bus, did, CapabilityDimmer)}
}

// Set clamps each channel to [0.0, 1.0], maps it linearly to a 12-bit
// integer, and sends a DimmerSet frame. If the proxy currently has no TID
// the call is a silent no-op.
func (p *DimmerProxy) Set(c0, c1, c2, c3, c4 float64) {
	tid, ok := p.currentTID()
	if !ok {
		return
	}
	channels := [5]uint16{
		clampChannel(c0),
		clampChannel(c1),
		clampChannel(c2),
		clampChannel(c3),
		clampChannel(c4),
	}
	frame := EncodeDimmerSet(tid, channels)
	if err := p.bus.drv.send(frame, sendDeadline); err != nil {
		_lg.Errorf("canlight: dimmer set to tid %d: %v", tid, err)
	}
}

func clampChannel(c float64) uint16 {
	if c < 0.0 {
		c = 0.0
	}
	if c > 1.0 {
		c = 1.0
	}
	return uint16(c * 4095.0)
}
