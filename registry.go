package canlight

import "sync"

// registry holds the bidirectional tid<->did mapping plus the directory
// of per-device proxies created on demand. It has no knowledge of the
// driver or the enumeration engine; Bus wires the two together.
type registry struct {
	mu sync.Mutex

	tidToDID map[uint16]string
	didToTID map[string]uint16

	proxies map[string]Proxy
}

func newRegistry() *registry {
	return &registry{
		tidToDID: map[uint16]string{},
		didToTID: map[string]uint16{},
		proxies:  map[string]Proxy{},
	}
}

// getOrCreateProxy returns the proxy for did, creating it via factory if
// absent. If a proxy already exists it must carry capability, else the
// call fails with ErrCapabilityMismatch. A freshly created proxy is
// immediately given its current TID, if any, before this call returns.
func (r *registry) getOrCreateProxy(did string, capability Capability, factory func() Proxy) (Proxy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.proxies[did]; ok {
		if p.Capability() != capability {
			return nil, &ErrCapabilityMismatch{DID: did, Want: string(capability), Existing: string(p.Capability())}
		}
		return p, nil
	}

	p := factory()
	if tid, ok := r.didToTID[did]; ok {
		t := tid
		p.setTID(&t)
	}
	r.proxies[did] = p
	return p, nil
}

// commit installs newOut as the authoritative tid->did map, and pushes
// setTID transitions to every known proxy: discovered DIDs get their new
// TID, proxies whose DID dropped out of newOut get set to null.
func (r *registry) commit(newOut map[uint16]string) {
	r.mu.Lock()

	newDIDToTID := make(map[string]uint16, len(newOut))
	for tid, did := range newOut {
		newDIDToTID[did] = tid
	}

	type update struct {
		proxy Proxy
		tid   *uint16
	}
	var updates []update

	for did, p := range r.proxies {
		if tid, ok := newDIDToTID[did]; ok {
			t := tid
			updates = append(updates, update{proxy: p, tid: &t})
		} else {
			updates = append(updates, update{proxy: p, tid: nil})
		}
	}

	r.tidToDID = newOut
	r.didToTID = newDIDToTID
	r.mu.Unlock()

	for _, u := range updates {
		u.proxy.setTID(u.tid)
	}
}

func (r *registry) lookupTID(did string) (uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tid, ok := r.didToTID[did]
	return tid, ok
}

func (r *registry) lookupDID(tid uint16) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	did, ok := r.tidToDID[tid]
	return did, ok
}

func (r *registry) allProxies() []Proxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Proxy, 0, len(r.proxies))
	for _, p := range r.proxies {
		out = append(out, p)
	}
	return out
}
