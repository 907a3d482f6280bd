package nhdp

// NeighborID is a stable arena handle for a Neighbor. The zero value is
// never issued and denotes "no neighbor".
type NeighborID uint64

// NeighborAddress is an address attributed to a Neighbor, globally unique
// across the whole database (invariant 1 in spec.md §3). It is owned by
// exactly one Neighbor but indexed globally by address for O(1) lookup.
type NeighborAddress struct {
	Addr  Address
	Owner NeighborID

	// MightBeRemoved is an epoch flag valid only during the HELLO session
	// currently being processed (spec.md §3 scratch fields).
	MightBeRemoved bool

	// Lost marks an address NHDP no longer believes belongs to a live link
	// of its neighbor, but still advertises as LOST until LostVtime.
	Lost      bool
	LostVtime uint64
}

// Neighbor is the abstract identity of a remote node.
type Neighbor struct {
	ID NeighborID

	// Addrs is owned by this Neighbor (spec.md §9: "GlobalNeighborList ⊃
	// Neighbor ⊃ NeighborAddress").
	Addrs map[Address]*NeighborAddress

	Originator Address

	// DualstackPartner is a weak, symmetric handle to a sibling Neighbor in
	// the other address family; zero means none.
	DualstackPartner NeighborID

	// LinkIDs is a non-owning set of the Links pointing at this neighbor
	// (LocalInterface owns the Link; this is a handle-only back-reference
	// used to cascade-delete the neighbor once its last link is gone).
	LinkIDs map[LinkID]struct{}

	Domain map[DomainExt]*NeighborDomainData
}

func newNeighbor(id NeighborID) *Neighbor {
	return &Neighbor{
		ID:      id,
		Addrs:   make(map[Address]*NeighborAddress),
		LinkIDs: make(map[LinkID]struct{}),
		Domain:  make(map[DomainExt]*NeighborDomainData),
	}
}

// HasAddrLength reports whether n owns any address of the same byte length
// as family (the same family test EndPass1 applies inline when scoping its
// might_be_removed marking to "only those matching the current address
// length").
func (n *Neighbor) HasAddrLength(family Family) bool {
	for a := range n.Addrs {
		if a.Family() == family {
			return true
		}
	}
	return false
}

// domainData returns (creating if necessary) the per-domain scratch state
// for this neighbor.
func (n *Neighbor) domainData(ext DomainExt) *NeighborDomainData {
	d, ok := n.Domain[ext]
	if !ok {
		d = &NeighborDomainData{}
		n.Domain[ext] = d
	}
	return d
}
