//go:build linux

package nhdp

import (
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// DiscoverInterfaces populates reg with every non-loopback network interface
// on the host matching one of the given names (every one when names is
// empty), along with their currently assigned IPv4/IPv6 addresses, using the
// real netlink socket. An interface is marked active for a family only when
// it is up and has an address of that family; interfaces that are down are
// still registered, inactive (component D's real binding; a test double
// satisfies the same role in unit tests without needing root or network
// namespaces).
func DiscoverInterfaces(reg *InterfaceRegistry, names []string) error {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	links, err := netlink.LinkList()
	if err != nil {
		return err
	}

	for _, link := range links {
		attrs := link.Attrs()
		if len(wanted) > 0 && !wanted[attrs.Name] {
			continue
		}
		if attrs.Flags&net.FlagLoopback != 0 {
			continue
		}

		li := reg.AddInterface(attrs.Name)

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return err
		}
		var haveV4, haveV6 bool
		for _, a := range addrs {
			ip, ok := netip.AddrFromSlice(a.IP)
			if !ok {
				continue
			}
			addr := FromNetIP(ip.Unmap())
			li.AddLocalAddress(addr)
			switch addr.Family() {
			case FamilyIPv4:
				haveV4 = true
			case FamilyIPv6:
				haveV6 = true
			}
		}
		up := attrs.Flags&net.FlagUp != 0
		li.SetActive(FamilyIPv4, up && haveV4)
		li.SetActive(FamilyIPv6, up && haveV6)
	}

	return nil
}
