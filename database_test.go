package nhdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*Database, *LocalInterface) {
	t.Helper()
	ifaces := NewInterfaceRegistry()
	iface := ifaces.AddInterface("wlan0")
	iface.SetActive(FamilyIPv4, true)
	domains := NewDomainRegistry()
	return NewDatabase(ifaces, domains), iface
}

func TestNeighborAddrAddConflict(t *testing.T) {
	db, _ := newTestDB(t)
	a, _ := ParseIPv4([]byte{10, 0, 0, 1})

	n1 := db.NeighborAdd()
	n2 := db.NeighborAdd()

	_, err := db.NeighborAddrAdd(n1, a)
	require.NoError(t, err)

	_, err = db.NeighborAddrAdd(n2, a)
	assert.ErrorIs(t, err, ErrAddressConflict)
}

func TestNeighborRemoveCascadesLinksAndAddrs(t *testing.T) {
	db, iface := newTestDB(t)
	a, _ := ParseIPv4([]byte{10, 0, 0, 1})

	n := db.NeighborAdd()
	_, err := db.NeighborAddrAdd(n, a)
	require.NoError(t, err)
	l := db.LinkAdd(iface, n)

	db.NeighborRemove(n)

	_, ok := db.NeighborGet(n.ID)
	assert.False(t, ok)
	_, ok = db.LinkGet(l.ID)
	assert.False(t, ok)
	_, ok = db.NeighborAddrGet(a)
	assert.False(t, ok)
}

func TestLinkRemoveGCsOrphanedNeighbor(t *testing.T) {
	db, iface := newTestDB(t)
	n := db.NeighborAdd()
	l := db.LinkAdd(iface, n)

	db.LinkRemove(l)

	_, ok := db.NeighborGet(n.ID)
	assert.False(t, ok, "neighbor with zero links and zero addresses must be garbage-collected")
}

func TestLinkAddrMoveReparentsAcrossLinks(t *testing.T) {
	db, iface := newTestDB(t)
	n1 := db.NeighborAdd()
	n2 := db.NeighborAdd()
	l1 := db.LinkAdd(iface, n1)
	l2 := db.LinkAdd(iface, n2)

	a, _ := ParseIPv4([]byte{192, 168, 1, 1})
	_, err := db.LinkAddrAdd(l1, a)
	require.NoError(t, err)

	la := db.LinkAddrMove(l2, a)
	require.NotNil(t, la)
	assert.Equal(t, l2.ID, la.Link)
	_, ok := l1.Addrs[a]
	assert.False(t, ok)
	_, ok = l2.Addrs[a]
	assert.True(t, ok)
}

func TestDualstackConnectIsMutual(t *testing.T) {
	db, _ := newTestDB(t)
	n1 := db.NeighborAdd()
	n2 := db.NeighborAdd()

	db.DualstackConnectNeighbors(n1, n2)
	assert.Equal(t, n2.ID, n1.DualstackPartner)
	assert.Equal(t, n1.ID, n2.DualstackPartner)

	db.DualstackDisconnectNeighbor(n1)
	assert.Equal(t, NeighborID(0), n1.DualstackPartner)
	assert.Equal(t, NeighborID(0), n2.DualstackPartner)
}

func TestNeighborSetOriginatorAndLookup(t *testing.T) {
	db, _ := newTestDB(t)
	n := db.NeighborAdd()
	a, _ := ParseIPv4([]byte{203, 0, 113, 1})

	db.NeighborSetOriginator(n, a)
	got, ok := db.NeighborGetByOriginator(a)
	require.True(t, ok)
	assert.Equal(t, n.ID, got.ID)

	db.NeighborSetOriginator(n, Unspecified())
	_, ok = db.NeighborGetByOriginator(a)
	assert.False(t, ok)
}
