package nhdp

import "fmt"

// Default per-interface hold times, matching RFC 6130's suggested defaults
// for N_HOLD_TIME / L_HOLD_TIME (a few times the HELLO interval).
const (
	DefaultNHoldTimeMS uint64 = 30000
	DefaultLHoldTimeMS uint64 = 30000
)

// LocalInterface is this node's own view of one of its network interfaces:
// the links heard on it, the addresses it owns, and its hold times.
type LocalInterface struct {
	Name string

	addrsV4 map[Address]struct{}
	addrsV6 map[Address]struct{}

	activeV4 bool
	activeV6 bool

	// links is owned by this LocalInterface per the ownership tree in
	// spec.md §9 ("LocalInterface ⊃ Link").
	links map[LinkID]*Link

	NHoldTimeMS uint64
	LHoldTimeMS uint64
}

func newLocalInterface(name string) *LocalInterface {
	return &LocalInterface{
		Name:        name,
		addrsV4:     make(map[Address]struct{}),
		addrsV6:     make(map[Address]struct{}),
		links:       make(map[LinkID]*Link),
		NHoldTimeMS: DefaultNHoldTimeMS,
		LHoldTimeMS: DefaultLHoldTimeMS,
	}
}

// AddLocalAddress registers addr as one of this interface's own addresses.
func (li *LocalInterface) AddLocalAddress(addr Address) {
	switch addr.Family() {
	case FamilyIPv4:
		li.addrsV4[addr] = struct{}{}
	case FamilyIPv6:
		li.addrsV6[addr] = struct{}{}
	}
}

// RemoveLocalAddress un-registers addr.
func (li *LocalInterface) RemoveLocalAddress(addr Address) {
	delete(li.addrsV4, addr)
	delete(li.addrsV6, addr)
}

// HasLocalAddress reports whether addr belongs to this interface.
func (li *LocalInterface) HasLocalAddress(addr Address) bool {
	switch addr.Family() {
	case FamilyIPv4:
		_, ok := li.addrsV4[addr]
		return ok
	case FamilyIPv6:
		_, ok := li.addrsV6[addr]
		return ok
	default:
		return false
	}
}

// LocalAddresses enumerates this interface's own addresses.
func (li *LocalInterface) LocalAddresses() []Address {
	out := make([]Address, 0, len(li.addrsV4)+len(li.addrsV6))
	for a := range li.addrsV4 {
		out = append(out, a)
	}
	for a := range li.addrsV6 {
		out = append(out, a)
	}
	return out
}

// SetActive marks whether this interface currently carries traffic for the
// given family (get_address_family_active in spec.md §6).
func (li *LocalInterface) SetActive(family Family, active bool) {
	switch family {
	case FamilyIPv4:
		li.activeV4 = active
	case FamilyIPv6:
		li.activeV6 = active
	}
}

// ActiveFor reports whether this interface is active for family.
func (li *LocalInterface) ActiveFor(family Family) bool {
	switch family {
	case FamilyIPv4:
		return li.activeV4
	case FamilyIPv6:
		return li.activeV6
	default:
		return false
	}
}

// Links enumerates the Links owned by this interface.
func (li *LocalInterface) Links() []*Link {
	out := make([]*Link, 0, len(li.links))
	for _, l := range li.links {
		out = append(out, l)
	}
	return out
}

// InterfaceRegistry is the per-local-interface registry (component D):
// get_by_name, get_address_family_active, and local-address enumeration.
type InterfaceRegistry struct {
	byName map[string]*LocalInterface
}

// NewInterfaceRegistry builds an empty registry.
func NewInterfaceRegistry() *InterfaceRegistry {
	return &InterfaceRegistry{byName: make(map[string]*LocalInterface)}
}

// AddInterface registers a new LocalInterface, or returns the existing one
// if name is already registered.
func (r *InterfaceRegistry) AddInterface(name string) *LocalInterface {
	if li, ok := r.byName[name]; ok {
		return li
	}
	li := newLocalInterface(name)
	r.byName[name] = li
	return li
}

// GetByName resolves a receive-interface name to its LocalInterface.
func (r *InterfaceRegistry) GetByName(name string) (*LocalInterface, bool) {
	li, ok := r.byName[name]
	return li, ok
}

// RemoveInterface drops a LocalInterface from the registry entirely.
func (r *InterfaceRegistry) RemoveInterface(name string) {
	delete(r.byName, name)
}

// All enumerates every registered LocalInterface.
func (r *InterfaceRegistry) All() []*LocalInterface {
	out := make([]*LocalInterface, 0, len(r.byName))
	for _, li := range r.byName {
		out = append(out, li)
	}
	return out
}

// IsLocalAddress reports whether addr belongs to any registered interface.
func (r *InterfaceRegistry) IsLocalAddress(addr Address) bool {
	for _, li := range r.byName {
		if li.HasLocalAddress(addr) {
			return true
		}
	}
	return false
}

func (li *LocalInterface) String() string {
	return fmt.Sprintf("iface(%s)", li.Name)
}
