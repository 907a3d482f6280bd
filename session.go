package nhdp

import "github.com/google/uuid"

// Session holds the scratch state for exactly one HELLO-processing pass
// (spec.md §9: "a cleaner design threads an explicit Session value through
// the callbacks"). Reader itself carries only the long-lived database,
// registries, and collaborators; every field below is undefined once
// EndPass2 returns.
type Session struct {
	// TraceID is attached as the "trace" logrus field to the log line
	// emitted when this HELLO is dropped; link-status-change log lines do
	// not carry it.
	TraceID uuid.UUID

	Iface *LocalInterface

	AddrLen int
	Family  Family

	Now   uint64
	Vtime uint64
	Itime uint64

	MPRTypes    []DomainExt
	Willingness map[DomainExt]Willingness

	Originator          Address
	OriginatorV4        Address
	OriginatorInAddrBlk bool

	RemoteMAC *[6]byte

	SourceAddr SocketAddr

	NeighborAddrConflict bool
	LinkAddrConflict     bool
	HasThisIf            bool
	LinkHeard            bool
	LinkLost             bool

	Neighbor          *Neighbor
	Link              *Link
	NeighborAllocated bool
	LinkAllocated     bool

	// processCountNeighbor/processCountLink are the epoch-scoped counters
	// from spec.md §9's design note, re-architected off the entities and
	// onto this per-session value.
	processCountNeighbor map[NeighborID]int
	processCountLink     map[LinkID]int

	dropped bool
}

func newSession(iface *LocalInterface, now uint64) *Session {
	return &Session{
		TraceID:              uuid.New(),
		Iface:                iface,
		Now:                  now,
		Willingness:          make(map[DomainExt]Willingness),
		processCountNeighbor: make(map[NeighborID]int),
		processCountLink:     make(map[LinkID]int),
	}
}

func (s *Session) incNeighborProcessCount(id NeighborID) {
	s.processCountNeighbor[id]++
}

func (s *Session) neighborProcessCount(id NeighborID) int {
	return s.processCountNeighbor[id]
}

func (s *Session) incLinkProcessCount(id LinkID) {
	s.processCountLink[id]++
}

func (s *Session) decLinkProcessCount(id LinkID) {
	s.processCountLink[id]--
}

func (s *Session) linkProcessCount(id LinkID) int {
	return s.processCountLink[id]
}
