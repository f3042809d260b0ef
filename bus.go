package canlight

import (
	"context"
	"fmt"
)

// Bus is the entrypoint to the core: it owns a driver, an enumeration
// engine, and an address registry, and is the caller's only handle onto
// the fieldbus. Construct one with New, call Enumerate once at start-up,
// then obtain proxies and issue commands.
type Bus struct {
	device string
	drv    transport
	reg    *registry

	queryRetries int
}

// New opens device (e.g. "can0") and returns a Bus ready for Enumerate.
// It does not itself enumerate; callers choose when to run discovery.
func New(device string, opts ...Option) (*Bus, error) {
	d, err := openDriver(device)
	if err != nil {
		return nil, err
	}

	return newBus(device, d, opts...), nil
}

// newBus wires a Bus over an already-open transport; factored out of New
// so tests can substitute a simulated transport without a real device.
func newBus(device string, t transport, opts ...Option) *Bus {
	b := &Bus{
		device: device,
		drv:    t,
		reg:    newRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enumerate runs the full discovery protocol (§4.3) to completion and
// commits the result to the registry. A cancelled or failed run leaves
// the registry exactly as it was before the call; the commit is the
// single linearisation point.
func (b *Bus) Enumerate(ctx context.Context) error {
	e := &enumerator{d: b.drv, queryRetries: b.queryRetries}
	out, err := e.run(ctx)
	if err != nil {
		return err
	}
	b.reg.commit(out)
	return nil
}

// GetProxy returns the proxy for didHex, creating it if absent. Any
// capability other than CapabilityDimmer is rejected with an
// unknown-capability error before the proxy directory is consulted. If a
// proxy already exists for didHex it must expose capability, else the
// call fails with ErrCapabilityMismatch.
func (b *Bus) GetProxy(didHex string, capability Capability) (Proxy, error) {
	if capability != CapabilityDimmer {
		return nil, fmt.Errorf("canlight: unknown capability %q", capability)
	}
	return b.reg.getOrCreateProxy(didHex, capability, func() Proxy {
		return newDimmerProxy(b, didHex)
	})
}

// Command is applied to a single Proxy by Cast, or to every known proxy
// by Broadcast.
type Command func(Proxy)

// Broadcast applies cmd to every proxy currently known to the registry.
func (b *Bus) Broadcast(cmd Command) {
	for _, p := range b.reg.allProxies() {
		cmd(p)
	}
}

// Cast applies cmd to the proxy for didHex, if one has been created.
func (b *Bus) Cast(didHex string, cmd Command) {
	for _, p := range b.reg.allProxies() {
		if p.DID() == didHex {
			cmd(p)
			return
		}
	}
}

// Close releases the underlying fieldbus device.
func (b *Bus) Close() {
	b.drv.close()
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithQueryRetries sets the bounded-retry extension permitted by §9: an
// empty query round is retried up to n additional times before the
// prefix is declared childless. The reference behavior, and the default,
// is n=0 (exactly one round per prefix).
func WithQueryRetries(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queryRetries = n
		}
	}
}

// DefaultSendDeadline and DefaultQueryRetries document the reference
// tuning from §4.2/§9; exported so glue code and tests can reference them
// instead of duplicating magic numbers.
const (
	DefaultSendDeadline = sendDeadline
	DefaultQueryRetries = 0
)
