package nhdp

import (
	"strconv"
	"strings"
)

// separatedAddrs joins a slice of addresses with sep, in the style of the
// space-joined neighbor lists a HELLO text dump prints for each status
// bucket.
func separatedAddrs(addrs []Address, sep string) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, sep)
}

// DumpNeighbor renders a one-line human-readable summary of a Neighbor and
// its address set, for debug output.
func DumpNeighbor(db *Database, n *Neighbor) string {
	var b strings.Builder
	b.WriteString("neighbor ")
	b.WriteString(strconv.FormatUint(uint64(n.ID), 10))
	if !n.Originator.IsUnspecified() {
		b.WriteString(" originator ")
		b.WriteString(n.Originator.String())
	}
	b.WriteString(" addrs [")
	addrs := make([]Address, 0, len(n.Addrs))
	for a := range n.Addrs {
		addrs = append(addrs, a)
	}
	b.WriteString(separatedAddrs(addrs, " "))
	b.WriteString("] links [")
	links := make([]string, 0, len(n.LinkIDs))
	for lid := range n.LinkIDs {
		if l, ok := db.LinkGet(lid); ok {
			links = append(links, l.Iface.Name+":"+l.Status.String())
		}
	}
	b.WriteString(strings.Join(links, " "))
	b.WriteString("]")
	return b.String()
}

// DumpLink renders a one-line human-readable summary of a Link's status and
// address set, in the same terse "* src TYPE fields..." style the teacher's
// message formatter used for wire messages.
func DumpLink(l *Link) string {
	addrs := make([]Address, 0, len(l.Addrs))
	for a := range l.Addrs {
		addrs = append(addrs, a)
	}
	twoHop := make([]Address, 0, len(l.TwoHop))
	for a := range l.TwoHop {
		twoHop = append(twoHop, a)
	}
	var b strings.Builder
	b.WriteString("* link ")
	b.WriteString(l.Iface.Name)
	b.WriteString(" ")
	b.WriteString(l.Status.String())
	b.WriteString(" ADDRS ")
	b.WriteString(separatedAddrs(addrs, " "))
	b.WriteString(" 2HOP ")
	b.WriteString(separatedAddrs(twoHop, " "))
	return b.String()
}
