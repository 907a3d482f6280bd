package nhdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticMessageContext is a test double standing in for the external RFC
// 5444 parser's decoded message-level view.
type staticMessageContext struct {
	ifaceName string
	addrLen   int
	source    SocketAddr
	vtimeByte uint8
	hasVtime  bool
	itimeByte uint8
	hasItime  bool
}

func (c staticMessageContext) InterfaceName() string           { return c.ifaceName }
func (c staticMessageContext) AddrLength() int                 { return c.addrLen }
func (c staticMessageContext) SourceAddr() SocketAddr           { return c.source }
func (c staticMessageContext) Originator() (Address, bool)     { return Address{}, false }
func (c staticMessageContext) ValidityTimeByte() (uint8, bool)  { return c.vtimeByte, c.hasVtime }
func (c staticMessageContext) IntervalTimeByte() (uint8, bool)  { return c.itimeByte, c.hasItime }
func (c staticMessageContext) MPRTypes() ([]DomainExt, bool)    { return nil, false }
func (c staticMessageContext) MPRWillingness() ([]uint8, bool)  { return nil, false }
func (c staticMessageContext) OriginatorV4() (Address, bool)    { return Address{}, false }
func (c staticMessageContext) MAC() ([6]byte, bool)             { return [6]byte{}, false }

func newTestReader(t *testing.T) (*Reader, *LocalInterface, *ManualClock) {
	t.Helper()
	ifaces := NewInterfaceRegistry()
	iface := ifaces.AddInterface("wlan0")
	iface.SetActive(FamilyIPv4, true)
	local, _ := ParseIPv4([]byte{10, 0, 0, 254})
	iface.AddLocalAddress(local)

	domains := NewDomainRegistry()
	db := NewDatabase(ifaces, domains)
	clock := NewManualClock(1_000_000)
	timers := NewHeapTimers(clock)
	r := NewReader(db, ifaces, domains, clock, timers, NoopHysteresis{}, nil)
	return r, iface, clock
}

func driveHello(t *testing.T, r *Reader, ctx staticMessageContext, addrs []AddressInput) *Session {
	t.Helper()
	s, outcome := r.BeginMessage(ctx)
	require.Equal(t, Okay, outcome)

	for _, a := range addrs {
		outcome = r.Pass1Address(s, a)
		require.Equal(t, Okay, outcome)
	}
	outcome = r.EndPass1(s, false)
	require.Equal(t, Okay, outcome)

	for _, a := range addrs {
		outcome = r.Pass2Address(s, a)
		require.Equal(t, Okay, outcome)
	}
	outcome = r.EndPass2(s, false)
	require.Equal(t, Okay, outcome)
	return s
}

// identityTLV is the address entry a well-behaved peer repeats on every
// HELLO to advertise its own primary address, keeping Neighbor/Link identity
// stable across messages without relying on an ORIGINATOR TLV.
func identityTLV(peer Address) AddressInput {
	return AddressInput{Addr: peer, HasLocalIf: true, LocalIf: LocalIfThisIf}
}

// TestFirstContact covers scenario 1 from the ingestion spec: a HELLO from a
// never-before-seen neighbor allocates a fresh Neighbor and Link, defaulting
// to Heard status purely from heard_time being set to now+vtime.
func TestFirstContact(t *testing.T) {
	r, _, _ := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(6000),
		hasVtime:  true,
	}
	s := driveHello(t, r, ctx, []AddressInput{identityTLV(peer)})

	require.NotNil(t, s.Neighbor)
	assert.True(t, s.NeighborAllocated)
	assert.True(t, s.LinkAllocated)
	assert.Equal(t, LinkHeard, s.Link.Status)

	_, ok := s.Neighbor.Addrs[peer]
	assert.True(t, ok)
}

// TestBecomingSymmetric covers scenario 2: a second HELLO repeating the
// peer's identity and carrying a symmetric LINK_STATUS for our own address
// reuses the existing neighbor/link and promotes it to Symmetric.
func TestBecomingSymmetric(t *testing.T) {
	r, _, clock := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})
	us, _ := ParseIPv4([]byte{10, 0, 0, 254})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	driveHello(t, r, ctx, []AddressInput{identityTLV(peer)})

	clock.Advance(100)
	s2 := driveHello(t, r, ctx, []AddressInput{
		identityTLV(peer),
		{Addr: us, HasLinkStatus: true, LinkStatus: WireLinkStatusSymmetric},
	})

	assert.False(t, s2.NeighborAllocated, "second HELLO must reuse the existing neighbor")
	assert.False(t, s2.LinkAllocated, "second HELLO must reuse the existing link")
	assert.Equal(t, LinkSymmetric, s2.Link.Status)
}

// TestLinkLoss covers scenario 3: a LOST LINK_STATUS for our own address
// tears sym_time back down even though it had been active.
func TestLinkLoss(t *testing.T) {
	r, _, clock := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})
	us, _ := ParseIPv4([]byte{10, 0, 0, 254})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	s1 := driveHello(t, r, ctx, []AddressInput{
		identityTLV(peer),
		{Addr: us, HasLinkStatus: true, LinkStatus: WireLinkStatusSymmetric},
	})
	require.Equal(t, LinkSymmetric, s1.Link.Status)

	clock.Advance(100)
	s2 := driveHello(t, r, ctx, []AddressInput{
		identityTLV(peer),
		{Addr: us, HasLinkStatus: true, LinkStatus: WireLinkStatusLost},
	})

	assert.Equal(t, uint64(0), s2.Link.SymTime)
}

// TestTwoHopInsertion covers scenario 5: an address marked symmetric that is
// neither ours nor the peer's own identity address becomes a two-hop
// neighbor on the link.
func TestTwoHopInsertion(t *testing.T) {
	r, _, _ := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})
	other, _ := ParseIPv4([]byte{10, 0, 0, 2})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	s := driveHello(t, r, ctx, []AddressInput{
		identityTLV(peer),
		{Addr: other, HasOtherNeighb: true, OtherNeighbSymmetric: true},
	})

	_, ok := s.Link.TwoHop[other]
	assert.True(t, ok)
}

// TestLostAddressCascade covers scenario 6: when a previously-known address
// disappears from a HELLO's address block, it is marked lost rather than
// deleted outright, and any two-hop neighbor keyed by it on this link is
// removed.
func TestLostAddressCascade(t *testing.T) {
	r, _, clock := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})
	// peerAlt is simultaneously one of N's own additional addresses and the
	// key of a TwoHopNeighbor on N's Link, matching spec.md §8 scenario 6
	// exactly: "Neighbor N has addresses {a,b} and a TwoHopNeighbor keyed b
	// on N's Link".
	peerAlt, _ := ParseIPv4([]byte{10, 0, 0, 3})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	driveHello(t, r, ctx, []AddressInput{
		identityTLV(peer),
		{
			Addr:                 peerAlt,
			HasLocalIf:           true,
			LocalIf:              LocalIfOtherIf,
			HasOtherNeighb:       true,
			OtherNeighbSymmetric: true,
		},
	})

	clock.Advance(100)
	s2 := driveHello(t, r, ctx, []AddressInput{identityTLV(peer)})

	na, ok := s2.Neighbor.Addrs[peerAlt]
	require.True(t, ok, "lost address stays present, marked lost, until its hold time expires")
	assert.True(t, na.Lost)

	_, ok = s2.Link.TwoHop[peerAlt]
	assert.False(t, ok, "two-hop neighbor keyed by a no-longer-advertised address must be removed")
}

// TestDriveHelloIsIdempotentWithinVtime covers the idempotence testable
// property: replaying the exact same HELLO within its validity window must
// leave the Neighbor/Link/address-map state unchanged, not allocate a second
// time or flip status.
func TestDriveHelloIsIdempotentWithinVtime(t *testing.T) {
	r, _, clock := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})
	us, _ := ParseIPv4([]byte{10, 0, 0, 254})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	addrs := []AddressInput{
		identityTLV(peer),
		{Addr: us, HasLinkStatus: true, LinkStatus: WireLinkStatusSymmetric},
	}

	s1 := driveHello(t, r, ctx, addrs)
	require.Equal(t, LinkSymmetric, s1.Link.Status)
	neighborID := s1.Neighbor.ID
	linkID := s1.Link.ID
	symTime := s1.Link.SymTime
	heardTime := s1.Link.HeardTime

	clock.Advance(10)
	s2 := driveHello(t, r, ctx, addrs)

	assert.False(t, s2.NeighborAllocated, "replaying the same HELLO must not allocate a new neighbor")
	assert.False(t, s2.LinkAllocated, "replaying the same HELLO must not allocate a new link")
	assert.Equal(t, neighborID, s2.Neighbor.ID)
	assert.Equal(t, linkID, s2.Link.ID)
	assert.Equal(t, LinkSymmetric, s2.Link.Status)
	assert.Equal(t, symTime+10, s2.Link.SymTime, "sym_time advances with now, but status/identity stay put")
	assert.Equal(t, heardTime+10, s2.Link.HeardTime)

	_, ok := s2.Neighbor.Addrs[peer]
	assert.True(t, ok)
	assert.Equal(t, 1, len(r.DB.SnapshotNeighbors()), "no duplicate neighbor created")
}

// TestDropMidProcessingLeavesDatabaseUnchanged covers the drop-mid-processing
// testable property: a message that allocates a fresh Neighbor/Link and then
// is dropped (e.g. by a malformed later TLV) must leave the database exactly
// as it was before the message arrived.
func TestDropMidProcessingLeavesDatabaseUnchanged(t *testing.T) {
	r, iface, _ := newTestReader(t)
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}

	before := len(r.DB.SnapshotNeighbors())

	s, outcome := r.BeginMessage(ctx)
	require.Equal(t, Okay, outcome)

	outcome = r.Pass1Address(s, identityTLV(peer))
	require.Equal(t, Okay, outcome)

	outcome = r.EndPass1(s, false)
	require.Equal(t, Okay, outcome)
	require.True(t, s.NeighborAllocated, "this HELLO must have provisionally allocated a fresh neighbor")
	require.True(t, s.LinkAllocated, "this HELLO must have provisionally allocated a fresh link")
	allocatedNeighbor := s.Neighbor.ID
	allocatedLink := s.Link.ID

	outcome = r.EndPass2(s, true)
	assert.Equal(t, DropMessage, outcome)

	_, ok := r.DB.NeighborGet(allocatedNeighbor)
	assert.False(t, ok, "provisionally allocated neighbor must be rolled back on drop")
	_, ok = r.DB.LinkGet(allocatedLink)
	assert.False(t, ok, "provisionally allocated link must be rolled back on drop")
	_, ok = r.DB.NeighborAddrGet(peer)
	assert.False(t, ok, "the identity address must not remain bound to the rolled-back neighbor")
	assert.Equal(t, before, len(r.DB.SnapshotNeighbors()), "database must be exactly as before the dropped message")
	assert.True(t, iface.ActiveFor(FamilyIPv4), "unrelated interface state must be untouched")
}

// TestIdentityConflict covers scenario 4: two addresses in one address
// block that resolve to two different existing Neighbors is a conflict, so
// Pass1 does not adopt either and a fresh Neighbor is allocated instead.
func TestIdentityConflict(t *testing.T) {
	r, _, _ := newTestReader(t)
	a1, _ := ParseIPv4([]byte{10, 0, 0, 10})
	a2, _ := ParseIPv4([]byte{10, 0, 0, 11})
	peer, _ := ParseIPv4([]byte{10, 0, 0, 1})

	n1 := r.DB.NeighborAdd()
	_, err := r.DB.NeighborAddrAdd(n1, a1)
	require.NoError(t, err)
	n2 := r.DB.NeighborAdd()
	_, err = r.DB.NeighborAddrAdd(n2, a2)
	require.NoError(t, err)

	ctx := staticMessageContext{
		ifaceName: "wlan0",
		addrLen:   4,
		source:    SocketAddr{Addr: peer, Port: 698},
		vtimeByte: EncodeLogarithmic(30000),
		hasVtime:  true,
	}
	s := driveHello(t, r, ctx, []AddressInput{
		{Addr: a1, HasLocalIf: true, LocalIf: LocalIfOtherIf},
		{Addr: a2, HasLocalIf: true, LocalIf: LocalIfOtherIf},
	})

	assert.True(t, s.NeighborAddrConflict)
	assert.True(t, s.NeighborAllocated)
	assert.NotEqual(t, n1.ID, s.Neighbor.ID)
	assert.NotEqual(t, n2.ID, s.Neighbor.ID)

	_, ok := s.Neighbor.Addrs[a1]
	assert.True(t, ok, "both addresses must migrate to the newly created neighbor")
	_, ok = s.Neighbor.Addrs[a2]
	assert.True(t, ok)

	_, ok = r.DB.NeighborGet(n1.ID)
	assert.False(t, ok, "A must be garbage-collected once its only address migrated away")
	_, ok = r.DB.NeighborGet(n2.ID)
	assert.False(t, ok, "B must be garbage-collected once its only address migrated away")
}
