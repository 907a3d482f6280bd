package nhdp

// MaxDomains bounds MPR_TYPES lists decoded from a single HELLO
// (NHDP_MAXIMUM_DOMAINS in spec.md §4.F Phase 0).
const MaxDomains = 32

// DomainExt is the one-byte RFC 5444 TLV extension identifying a routing
// domain (topology).
type DomainExt uint8

// Willingness is a 4-bit MPR-willingness value (RFC 6130 §5.2.1).
type Willingness uint8

// MetricInfinite is the reset value a domain's link/neighbor/two-hop metric
// is set to before a HELLO's LINK_METRIC TLVs are applied (mirrors
// RFC7181_METRIC_INFINITE in
// original_source/src-plugins/nhdp/nhdp/nhdp_reader.c's
// _process_domainspecific_linkdata/_process_domainspecific_2hopdata): a
// domain that stops being advertised on a later HELLO must not keep the
// metric value from an earlier one.
const MetricInfinite uint32 = 0xffffffff

const (
	WillingnessNever   Willingness = 0
	WillingnessDefault Willingness = 7
	WillingnessAlways  Willingness = 15
)

// MetricPlugin converts between a domain's internal metric representation
// and the 2-byte LINK_METRIC wire encoding. The outgoing-link-metric
// computation itself is the responsibility of the domain, not this package;
// a nil MetricPlugin is a valid domain with no outgoing-metric handling
// (NoDefaultHandling should be set in that case).
type MetricPlugin interface {
	// Encode packs an internal metric value into the low 12 bits used by
	// the wire LINK_METRIC encoding (the selector nibble is handled by
	// EncodeLinkMetric in tlv.go, not here).
	Encode(value uint32) uint16
	// Decode unpacks the low 12 bits back into an internal metric value.
	Decode(raw uint16) uint32
}

// Domain is a routing topology attached to Neighbor/Link/TwoHopNeighbor
// entities, indexed by its one-byte extension.
type Domain struct {
	Ext               DomainExt
	Name              string
	Metric            MetricPlugin
	NoDefaultHandling bool
}

// NeighborDomainData is the per-domain state NHDP attaches to a Neighbor.
type NeighborDomainData struct {
	Willingness Willingness
	LocalIsMPR  bool
	MetricOut   uint32
}

// LinkDomainData is the per-domain state NHDP attaches to a Link.
type LinkDomainData struct {
	MetricOut uint32
}

// L2HopDomainData is the per-domain state NHDP attaches to a TwoHopNeighbor.
type L2HopDomainData struct {
	MetricIn  uint32
	MetricOut uint32
}

// DomainRegistry enumerates the routing domains configured on this node,
// keyed by their wire extension byte.
type DomainRegistry struct {
	byExt map[DomainExt]*Domain
	order []DomainExt
}

// NewDomainRegistry builds an empty registry.
func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{byExt: make(map[DomainExt]*Domain)}
}

// Register adds a domain, keyed by its extension byte. Re-registering the
// same extension replaces the previous domain.
func (r *DomainRegistry) Register(d *Domain) {
	if _, exists := r.byExt[d.Ext]; !exists {
		r.order = append(r.order, d.Ext)
	}
	r.byExt[d.Ext] = d
}

// ByExt looks up a domain by its wire extension byte.
func (r *DomainRegistry) ByExt(ext DomainExt) (*Domain, bool) {
	d, ok := r.byExt[ext]
	return d, ok
}

// All enumerates every registered domain in registration order.
func (r *DomainRegistry) All() []*Domain {
	out := make([]*Domain, 0, len(r.order))
	for _, ext := range r.order {
		out = append(out, r.byExt[ext])
	}
	return out
}
