package nhdp

import "errors"

// Outcome is the result of a single reader callback invocation, mirroring
// the three-way result the external RFC 5444 parser expects back: continue
// normally, skip just this address TLV block, or abort the whole message.
type Outcome int

const (
	Okay Outcome = iota
	DropAddressTLV
	DropMessage
)

func (o Outcome) String() string {
	switch o {
	case Okay:
		return "okay"
	case DropAddressTLV:
		return "drop-address-tlv"
	case DropMessage:
		return "drop-message"
	default:
		return "unknown"
	}
}

// Sentinel errors of this package. BeginMessage logs ErrNoInterface and
// ErrMalformedMessage when it returns DropMessage; it drops before touching
// the database, so there is no provisional state to unwind.
// ErrAddressConflict comes from the database methods and is not a drop
// condition (see below).
var (
	// ErrNoInterface is returned when the receive interface is unknown or
	// inactive for the HELLO's address family.
	ErrNoInterface = errors.New("nhdp: no active local interface for this HELLO")

	// ErrMalformedMessage is returned when a mandatory TLV (VALIDITY_TIME)
	// is missing or fails to decode.
	ErrMalformedMessage = errors.New("nhdp: malformed HELLO message")

	// ErrResourceExhausted names an allocation failure in the neighborhood
	// database. Nothing in this package returns it: NeighborAdd, LinkAdd,
	// LinkAddrAdd, NeighborAddrAdd and Link2HopAdd have no allocation
	// failure path.
	ErrResourceExhausted = errors.New("nhdp: resource exhausted")

	// ErrAddressConflict is returned by NeighborAddrAdd/LinkAddrAdd when the
	// address is already indexed against a different owner; this is a
	// semantic non-error the caller (reader.go) is expected to resolve
	// before retrying, not a DropMessage condition on its own.
	ErrAddressConflict = errors.New("nhdp: address already owned by a different entity")
)
