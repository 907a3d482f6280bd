package nhdp

// LinkID is a stable arena handle for a Link. The zero value is never
// issued and denotes "no link".
type LinkID uint64

// LinkState is the derived status of a Link (spec.md §3 invariant 4, §4.F
// "Link status recomputation").
type LinkState uint8

const (
	LinkPending LinkState = iota
	LinkSymmetric
	LinkHeard
	LinkLost
)

func (s LinkState) String() string {
	switch s {
	case LinkPending:
		return "pending"
	case LinkSymmetric:
		return "symmetric"
	case LinkHeard:
		return "heard"
	case LinkLost:
		return "lost"
	default:
		return "unknown"
	}
}

// LinkAddress is an address that appears on one specific Link, owned by
// exactly that Link.
type LinkAddress struct {
	Addr Address
	Link LinkID

	// MightBeRemoved is an epoch flag valid only during the HELLO session
	// currently being processed.
	MightBeRemoved bool
}

// TwoHopNeighbor (L2Hop) is an address reachable via exactly one Link.
type TwoHopNeighbor struct {
	Addr          Address
	SameInterface bool
	Vtime         uint64
	Domain        map[DomainExt]*L2HopDomainData
}

func newTwoHopNeighbor(addr Address) *TwoHopNeighbor {
	return &TwoHopNeighbor{Addr: addr, Domain: make(map[DomainExt]*L2HopDomainData)}
}

func (t *TwoHopNeighbor) domainData(ext DomainExt) *L2HopDomainData {
	d, ok := t.Domain[ext]
	if !ok {
		d = &L2HopDomainData{}
		t.Domain[ext] = d
	}
	return d
}

// Link is a (local-interface, remote-neighbor) relation.
type Link struct {
	ID LinkID

	Iface      *LocalInterface
	NeighborID NeighborID

	// Addrs and TwoHop are owned by this Link (spec.md §9: "LocalInterface
	// ⊃ Link ⊃ {LinkAddress, TwoHopNeighbor}").
	Addrs  map[Address]*LinkAddress
	TwoHop map[Address]*TwoHopNeighbor

	SourceAddr SocketAddr
	RemoteMAC  *[6]byte

	// SymTime, HeardTime, Vtime are absolute deadlines on the injected
	// Clock's timeline; zero means inactive.
	SymTime   uint64
	HeardTime uint64
	Vtime     uint64

	// ItimeMsg/VtimeMsg are the itime/vtime the peer itself advertised, in
	// decoded milliseconds.
	ItimeMsg uint64
	VtimeMsg uint64

	Status LinkState

	// DualstackPartner is a weak, symmetric handle to the sibling Link on
	// the paired address family; zero means none.
	DualstackPartner LinkID

	Domain map[DomainExt]*LinkDomainData

	// timerHandle is the single outstanding Timers handle tracking this
	// Link's soonest relevant deadline (see status.go rescheduleLinkTimer).
	timerHandle TimerHandle
}

func newLink(id LinkID, iface *LocalInterface, neighborID NeighborID) *Link {
	return &Link{
		ID:         id,
		Iface:      iface,
		NeighborID: neighborID,
		Addrs:      make(map[Address]*LinkAddress),
		TwoHop:     make(map[Address]*TwoHopNeighbor),
		Domain:     make(map[DomainExt]*LinkDomainData),
		Status:     LinkPending,
	}
}

func (l *Link) domainData(ext DomainExt) *LinkDomainData {
	d, ok := l.Domain[ext]
	if !ok {
		d = &LinkDomainData{}
		l.Domain[ext] = d
	}
	return d
}

// removeTwoHopByAddr deletes every TwoHopNeighbor on this Link keyed by
// addr. spec.md §9 calls out that the source implementation replicates this
// with an intricate manual AVL walk; here TwoHop is keyed by address, so a
// single map delete removes it.
func (l *Link) removeTwoHopByAddr(addr Address) {
	delete(l.TwoHop, addr)
}
