package nhdp

import (
	"errors"
	"net/netip"
)

// ErrBadLength is returned when a byte buffer does not match the length
// required by the address family being parsed.
var ErrBadLength = errors.New("nhdp: bad address length")

// ErrBadFamily is returned when an address family tag is not one of
// IPv4, IPv6, or MAC-48.
var ErrBadFamily = errors.New("nhdp: bad address family")

// Family identifies the kind of value an Address holds.
type Family uint8

const (
	FamilyUnspec Family = iota
	FamilyIPv4
	FamilyIPv6
	FamilyMAC
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyMAC:
		return "mac"
	default:
		return "unspec"
	}
}

// AddrLengthToFamily maps the RFC 5444 address-length byte (4 or 16) to a
// Family. Any other length is rejected by the caller per spec.md Phase 0:
// "address length (4 ⇒ IPv4, 16 ⇒ IPv6, else drop)".
func AddrLengthToFamily(n int) (Family, bool) {
	switch n {
	case 4:
		return FamilyIPv4, true
	case 16:
		return FamilyIPv6, true
	default:
		return FamilyUnspec, false
	}
}

// Address is an immutable value covering IPv4, IPv6, MAC-48, and the
// unspecified sentinel. It is comparable and safe to use as a map key, which
// the neighborhood database's cross-indexes rely on.
type Address struct {
	family Family
	ip     netip.Addr
	mac    [6]byte
}

// Unspecified returns the unspecified-address sentinel.
func Unspecified() Address {
	return Address{family: FamilyUnspec}
}

// FromNetIP wraps a netip.Addr as an Address, inferring IPv4 vs IPv6.
func FromNetIP(ip netip.Addr) Address {
	if !ip.IsValid() {
		return Unspecified()
	}
	if ip.Is4() || ip.Is4In6() {
		return Address{family: FamilyIPv4, ip: ip.Unmap()}
	}
	return Address{family: FamilyIPv6, ip: ip}
}

// ParseAddress decodes a wire byte buffer of the given family.
func ParseAddress(family Family, b []byte) (Address, error) {
	switch family {
	case FamilyIPv4:
		return ParseIPv4(b)
	case FamilyIPv6:
		return ParseIPv6(b)
	case FamilyMAC:
		return ParseMAC(b)
	default:
		return Address{}, ErrBadFamily
	}
}

// ParseIPv4 decodes a 4-byte IPv4 address.
func ParseIPv4(b []byte) (Address, error) {
	if len(b) != 4 {
		return Address{}, ErrBadLength
	}
	addr := netip.AddrFrom4([4]byte(b))
	return Address{family: FamilyIPv4, ip: addr}, nil
}

// ParseIPv6 decodes a 16-byte IPv6 address.
func ParseIPv6(b []byte) (Address, error) {
	if len(b) != 16 {
		return Address{}, ErrBadLength
	}
	addr := netip.AddrFrom16([16]byte(b))
	return Address{family: FamilyIPv6, ip: addr}, nil
}

// ParseMAC decodes a 6-byte MAC-48 address.
func ParseMAC(b []byte) (Address, error) {
	if len(b) != 6 {
		return Address{}, ErrBadLength
	}
	var a Address
	a.family = FamilyMAC
	copy(a.mac[:], b)
	return a, nil
}

// Family reports which kind of value this Address holds.
func (a Address) Family() Family { return a.family }

// IsUnspecified reports whether a is the unspecified sentinel.
func (a Address) IsUnspecified() bool { return a.family == FamilyUnspec }

// Equal reports whether a and b hold the same value.
func (a Address) Equal(b Address) bool { return a == b }

// Less gives a total, lexicographic ordering over addresses: by family first
// (unspec < ipv4 < ipv6 < mac), then by byte content.
func (a Address) Less(b Address) bool {
	if a.family != b.family {
		return a.family < b.family
	}
	switch a.family {
	case FamilyIPv4, FamilyIPv6:
		return a.ip.Less(b.ip)
	case FamilyMAC:
		return lessBytes(a.mac[:], b.mac[:])
	default:
		return false
	}
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Bytes returns the canonical wire representation of the address.
func (a Address) Bytes() []byte {
	switch a.family {
	case FamilyIPv4:
		b := a.ip.As4()
		return b[:]
	case FamilyIPv6:
		b := a.ip.As16()
		return b[:]
	case FamilyMAC:
		out := make([]byte, 6)
		copy(out, a.mac[:])
		return out
	default:
		return nil
	}
}

// NetIP returns the netip.Addr view of a, valid for IPv4/IPv6 families only.
func (a Address) NetIP() (netip.Addr, bool) {
	if a.family != FamilyIPv4 && a.family != FamilyIPv6 {
		return netip.Addr{}, false
	}
	return a.ip, true
}

// String renders the canonical text form of the address.
func (a Address) String() string {
	switch a.family {
	case FamilyIPv4, FamilyIPv6:
		return a.ip.String()
	case FamilyMAC:
		const hex = "0123456789abcdef"
		buf := make([]byte, 0, 17)
		for i, b := range a.mac {
			if i > 0 {
				buf = append(buf, ':')
			}
			buf = append(buf, hex[b>>4], hex[b&0xf])
		}
		return string(buf)
	default:
		return "unspec"
	}
}

// Prefix is a CIDR-style address range used for prefix-containment checks.
type Prefix struct {
	prefix netip.Prefix
	family Family
}

// NewPrefix builds a Prefix from a base Address and bit length.
func NewPrefix(base Address, bits int) (Prefix, error) {
	ip, ok := base.NetIP()
	if !ok {
		return Prefix{}, ErrBadFamily
	}
	p := netip.PrefixFrom(ip, bits)
	if !p.IsValid() {
		return Prefix{}, ErrBadLength
	}
	return Prefix{prefix: p.Masked(), family: base.family}, nil
}

// Contains reports whether addr falls within the prefix.
func (p Prefix) Contains(addr Address) bool {
	ip, ok := addr.NetIP()
	if !ok || addr.family != p.family {
		return false
	}
	return p.prefix.Contains(ip)
}

func (p Prefix) String() string { return p.prefix.String() }

// SocketAddr pairs an Address with a transport port, used to record the
// source a HELLO physically arrived from.
type SocketAddr struct {
	Addr Address
	Port uint16
}

func (s SocketAddr) String() string {
	return s.Addr.String()
}
