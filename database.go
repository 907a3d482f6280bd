package nhdp

import "sync"

// Database is the neighborhood database (component C): in-memory tables of
// Neighbor, Link, NeighborAddress, LinkAddress, and TwoHopNeighbor, with the
// cross-indexes kept consistent by every mutating method here.
//
// The core HELLO-processing pipeline is single-threaded cooperative
// (spec.md §5); mu exists only to guard the narrow boundary where another
// subsystem takes a read-only snapshot concurrently (SnapshotNeighbors).
type Database struct {
	mu sync.RWMutex

	Ifaces  *InterfaceRegistry
	Domains *DomainRegistry

	neighbors       map[NeighborID]*Neighbor
	neighborAddrIdx map[Address]*NeighborAddress
	nextNeighborID  NeighborID

	links       map[LinkID]*Link
	linkAddrIdx map[string]map[Address]*LinkAddress // per-interface index
	nextLinkID  LinkID

	originatorIdx map[Address]NeighborID
}

// NewDatabase constructs an empty neighborhood database bound to the given
// interface and domain registries.
func NewDatabase(ifaces *InterfaceRegistry, domains *DomainRegistry) *Database {
	return &Database{
		Ifaces:          ifaces,
		Domains:         domains,
		neighbors:       make(map[NeighborID]*Neighbor),
		neighborAddrIdx: make(map[Address]*NeighborAddress),
		links:           make(map[LinkID]*Link),
		linkAddrIdx:     make(map[string]map[Address]*LinkAddress),
		originatorIdx:   make(map[Address]NeighborID),
	}
}

// Lock/RLock/Unlock/RUnlock expose the narrow synchronization boundary
// described above; Reader wraps each phase-callback entry point with
// Lock/Unlock, and a read-only subsystem wraps a snapshot with
// RLock/RUnlock (SnapshotNeighbors).
func (db *Database) Lock()    { db.mu.Lock() }
func (db *Database) Unlock()  { db.mu.Unlock() }
func (db *Database) RLock()   { db.mu.RLock() }
func (db *Database) RUnlock() { db.mu.RUnlock() }

// ---- Neighbor operations ----------------------------------------------

// NeighborAdd allocates a new, empty Neighbor.
func (db *Database) NeighborAdd() *Neighbor {
	db.nextNeighborID++
	n := newNeighbor(db.nextNeighborID)
	db.neighbors[n.ID] = n
	return n
}

// NeighborRemove deletes a Neighbor and everything it owns: its Links (and
// their LinkAddresses/TwoHopNeighbors), and its NeighborAddresses.
func (db *Database) NeighborRemove(n *Neighbor) {
	if n == nil {
		return
	}
	for lid := range n.LinkIDs {
		if l, ok := db.links[lid]; ok {
			db.LinkRemove(l)
		}
	}
	for addr, na := range n.Addrs {
		delete(db.neighborAddrIdx, addr)
		_ = na
	}
	if !n.Originator.IsUnspecified() {
		delete(db.originatorIdx, n.Originator)
	}
	if n.DualstackPartner != 0 {
		if partner, ok := db.neighbors[n.DualstackPartner]; ok {
			partner.DualstackPartner = 0
		}
	}
	delete(db.neighbors, n.ID)
}

// NeighborGet resolves a NeighborID to its Neighbor.
func (db *Database) NeighborGet(id NeighborID) (*Neighbor, bool) {
	n, ok := db.neighbors[id]
	return n, ok
}

// AllNeighbors enumerates every Neighbor in the database.
func (db *Database) AllNeighbors() []*Neighbor {
	out := make([]*Neighbor, 0, len(db.neighbors))
	for _, n := range db.neighbors {
		out = append(out, n)
	}
	return out
}

// NeighborAddrGet looks up the globally-unique NeighborAddress for addr.
func (db *Database) NeighborAddrGet(addr Address) (*NeighborAddress, bool) {
	na, ok := db.neighborAddrIdx[addr]
	return na, ok
}

// NeighborAddrAdd attaches addr to n. Fails with ErrAddressConflict if addr
// is already indexed against a different Neighbor; the caller must resolve
// the conflict (NeighborAddrMove, or choosing a different Neighbor) before
// retrying. The cross-index and the Neighbor's own set are updated
// atomically: either both change, or neither does.
func (db *Database) NeighborAddrAdd(n *Neighbor, addr Address) (*NeighborAddress, error) {
	if existing, ok := db.neighborAddrIdx[addr]; ok {
		if existing.Owner != n.ID {
			return nil, ErrAddressConflict
		}
		return existing, nil
	}
	na := &NeighborAddress{Addr: addr, Owner: n.ID}
	n.Addrs[addr] = na
	db.neighborAddrIdx[addr] = na
	return na, nil
}

// NeighborAddrRemove detaches addr from its owning Neighbor entirely.
func (db *Database) NeighborAddrRemove(na *NeighborAddress) {
	if na == nil {
		return
	}
	if owner, ok := db.neighbors[na.Owner]; ok {
		delete(owner.Addrs, na.Addr)
	}
	delete(db.neighborAddrIdx, na.Addr)
}

// NeighborAddrMove re-parents na onto target, preserving the global index.
func (db *Database) NeighborAddrMove(target *Neighbor, na *NeighborAddress) {
	if na == nil || target == nil || na.Owner == target.ID {
		return
	}
	old, hadOld := db.neighbors[na.Owner]
	if hadOld {
		delete(old.Addrs, na.Addr)
	}
	na.Owner = target.ID
	target.Addrs[na.Addr] = na
	db.neighborAddrIdx[na.Addr] = na
	if hadOld {
		db.maybeGC(old)
	}
}

// NeighborSetOriginator sets n's originator address, maintaining the
// originator index. Setting to the unspecified address clears the binding.
func (db *Database) NeighborSetOriginator(n *Neighbor, addr Address) {
	if !n.Originator.IsUnspecified() {
		delete(db.originatorIdx, n.Originator)
	}
	n.Originator = addr
	if !addr.IsUnspecified() {
		db.originatorIdx[addr] = n.ID
	}
}

// NeighborGetByOriginator resolves a Neighbor by its advertised originator
// address.
func (db *Database) NeighborGetByOriginator(addr Address) (*Neighbor, bool) {
	id, ok := db.originatorIdx[addr]
	if !ok {
		return nil, false
	}
	n, ok := db.neighbors[id]
	return n, ok
}

// maybeGC removes n if it owns zero Links and zero addresses (spec.md §3
// invariant 3).
func (db *Database) maybeGC(n *Neighbor) {
	if n == nil {
		return
	}
	if len(n.LinkIDs) == 0 && len(n.Addrs) == 0 {
		db.NeighborRemove(n)
	}
}

// ---- Link operations ----------------------------------------------------

// LinkAdd allocates a new Link on iface pointing at n.
func (db *Database) LinkAdd(iface *LocalInterface, n *Neighbor) *Link {
	db.nextLinkID++
	l := newLink(db.nextLinkID, iface, n.ID)
	iface.links[l.ID] = l
	db.links[l.ID] = l
	n.LinkIDs[l.ID] = struct{}{}
	if db.linkAddrIdx[iface.Name] == nil {
		db.linkAddrIdx[iface.Name] = make(map[Address]*LinkAddress)
	}
	return l
}

// LinkRemove deletes l, its LinkAddresses, and its TwoHopNeighbors, and
// detaches it from its owning interface and neighbor.
func (db *Database) LinkRemove(l *Link) {
	if l == nil {
		return
	}
	idx := db.linkAddrIdx[l.Iface.Name]
	for addr := range l.Addrs {
		delete(idx, addr)
	}
	if l.DualstackPartner != 0 {
		if partner, ok := db.links[l.DualstackPartner]; ok {
			partner.DualstackPartner = 0
		}
	}
	delete(l.Iface.links, l.ID)
	delete(db.links, l.ID)
	if n, ok := db.neighbors[l.NeighborID]; ok {
		delete(n.LinkIDs, l.ID)
		db.maybeGC(n)
	}
}

// LinkGet resolves a LinkID to its Link.
func (db *Database) LinkGet(id LinkID) (*Link, bool) {
	l, ok := db.links[id]
	return l, ok
}

// LinkAddrGet looks up the LinkAddress for addr within iface's index.
func (db *Database) LinkAddrGet(iface *LocalInterface, addr Address) (*LinkAddress, bool) {
	la, ok := db.linkAddrIdx[iface.Name][addr]
	return la, ok
}

// LinkAddrAdd attaches addr to l within l's interface. Fails with
// ErrAddressConflict if addr is already indexed to a different Link on the
// same interface.
func (db *Database) LinkAddrAdd(l *Link, addr Address) (*LinkAddress, error) {
	idx := db.linkAddrIdx[l.Iface.Name]
	if idx == nil {
		idx = make(map[Address]*LinkAddress)
		db.linkAddrIdx[l.Iface.Name] = idx
	}
	if _, ok := l.Addrs[addr]; ok {
		return l.Addrs[addr], nil
	}
	if _, exists := idx[addr]; exists {
		return nil, ErrAddressConflict
	}
	la := &LinkAddress{Addr: addr, Link: l.ID}
	l.Addrs[addr] = la
	idx[addr] = la
	return la, nil
}

// LinkAddrRemove detaches addr from l entirely.
func (db *Database) LinkAddrRemove(l *Link, addr Address) {
	delete(l.Addrs, addr)
	delete(db.linkAddrIdx[l.Iface.Name], addr)
}

// LinkAddrMove re-parents a LinkAddress from its current owning Link onto
// target, which must be on the same interface.
func (db *Database) LinkAddrMove(target *Link, addr Address) *LinkAddress {
	idx := db.linkAddrIdx[target.Iface.Name]
	la, ok := idx[addr]
	if !ok {
		la, err := db.LinkAddrAdd(target, addr)
		if err != nil {
			return nil
		}
		return la
	}
	for _, l := range target.Iface.links {
		if _, has := l.Addrs[addr]; has && l.ID != target.ID {
			delete(l.Addrs, addr)
			break
		}
	}
	la.Link = target.ID
	target.Addrs[addr] = la
	idx[addr] = la
	return la
}

// ---- Two-hop operations --------------------------------------------------

// Link2HopGet looks up the TwoHopNeighbor keyed addr on l.
func (db *Database) Link2HopGet(l *Link, addr Address) (*TwoHopNeighbor, bool) {
	th, ok := l.TwoHop[addr]
	return th, ok
}

// Link2HopAdd inserts (or returns the existing) TwoHopNeighbor keyed addr on
// l.
func (db *Database) Link2HopAdd(l *Link, addr Address) *TwoHopNeighbor {
	if th, ok := l.TwoHop[addr]; ok {
		return th
	}
	th := newTwoHopNeighbor(addr)
	l.TwoHop[addr] = th
	return th
}

// Link2HopRemove deletes the TwoHopNeighbor keyed addr on l, if any.
func (db *Database) Link2HopRemove(l *Link, addr Address) {
	l.removeTwoHopByAddr(addr)
}

// Link2HopSetVtime updates th's expiry deadline.
func (db *Database) Link2HopSetVtime(th *TwoHopNeighbor, vtime uint64) {
	th.Vtime = vtime
}

// ---- Dualstack operations -------------------------------------------------

// DualstackConnectNeighbors makes a and b mutual dualstack partners,
// breaking any prior partnership on either side first (invariant 7: partner
// pointers are mutual or both absent).
func (db *Database) DualstackConnectNeighbors(a, b *Neighbor) {
	if a == nil || b == nil || a.ID == b.ID {
		return
	}
	db.DualstackDisconnectNeighbor(a)
	db.DualstackDisconnectNeighbor(b)
	a.DualstackPartner = b.ID
	b.DualstackPartner = a.ID
}

// DualstackDisconnectNeighbor clears n's dualstack partnership, if any.
func (db *Database) DualstackDisconnectNeighbor(n *Neighbor) {
	if n == nil || n.DualstackPartner == 0 {
		return
	}
	if partner, ok := db.neighbors[n.DualstackPartner]; ok {
		partner.DualstackPartner = 0
	}
	n.DualstackPartner = 0
}

// DualstackConnectLinks makes a and b mutual dualstack partners.
func (db *Database) DualstackConnectLinks(a, b *Link) {
	if a == nil || b == nil || a.ID == b.ID {
		return
	}
	db.DualstackDisconnectLink(a)
	db.DualstackDisconnectLink(b)
	a.DualstackPartner = b.ID
	b.DualstackPartner = a.ID
}

// DualstackDisconnectLink clears l's dualstack partnership, if any.
func (db *Database) DualstackDisconnectLink(l *Link) {
	if l == nil || l.DualstackPartner == 0 {
		return
	}
	if partner, ok := db.links[l.DualstackPartner]; ok {
		partner.DualstackPartner = 0
	}
	l.DualstackPartner = 0
}

// SnapshotNeighbors returns a shallow copy of the neighbor list for a
// concurrent read-only consumer (e.g. a TC exporter). Safe to call from a
// goroutine other than the one driving HELLO processing, per the
// synchronization boundary documented on Database.
func (db *Database) SnapshotNeighbors() []*Neighbor {
	db.RLock()
	defer db.RUnlock()
	return db.AllNeighbors()
}
