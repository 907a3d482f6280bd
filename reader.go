package nhdp

import "github.com/sirupsen/logrus"

// MessageContext is the subset of a parsed HELLO message BeginMessage needs
// from the external RFC 5444 parser (out of scope here): the
// receive interface, the message's own address length, and its message-level
// TLVs. A real binding implements this directly over the parser's decoded
// TLV list; tests implement it with a plain struct literal.
type MessageContext interface {
	InterfaceName() string
	AddrLength() int
	SourceAddr() SocketAddr

	// Originator reports the message's ORIGINATOR address, if present.
	Originator() (Address, bool)

	// ValidityTimeByte is the mandatory VALIDITY_TIME TLV value. ok is false
	// if the TLV is absent or malformed, which drops the whole message.
	ValidityTimeByte() (b uint8, ok bool)

	// IntervalTimeByte is the optional INTERVAL_TIME TLV value.
	IntervalTimeByte() (b uint8, ok bool)

	// MPRTypes/Willingness report the optional MPR_TYPES/MPR_WILLING TLVs,
	// parallel slices indexed by domain.
	MPRTypes() ([]DomainExt, bool)
	MPRWillingness() ([]uint8, bool)

	// OriginatorV4 is the optional dualstack companion address carried in an
	// IPv6 HELLO (spec.md §4.F Phase 0, dualstack reconciliation input).
	OriginatorV4() (Address, bool)

	// MAC is the optional link-layer source address.
	MAC() (mac [6]byte, ok bool)
}

// LinkMetricValue is one decoded LINK_METRIC address-TLV value, tagged with
// the routing domain it belongs to.
type LinkMetricValue struct {
	Ext DomainExt
	Raw uint16
}

// AddressInput is one address and its attached TLVs from an address block,
// as Pass1Address/Pass2Address need them.
type AddressInput struct {
	Addr Address

	HasLocalIf bool
	LocalIf    LocalIfType

	HasLinkStatus bool
	LinkStatus    LinkStatusType

	HasOtherNeighb       bool
	OtherNeighbSymmetric bool

	HasMPR      bool
	MPRRouting  bool
	MPRFlooding bool

	LinkMetrics []LinkMetricValue
}

// Reader is the HELLO-ingestion pipeline (component F): it drives the
// neighborhood database through the two-pass protocol an external RFC 5444
// parser calls back into (BeginMessage, Pass1Address, EndPass1, Pass2Address,
// EndPass2), per spec.md §4.F.
type Reader struct {
	DB      *Database
	Ifaces  *InterfaceRegistry
	Domains *DomainRegistry

	Clock      Clock
	Timers     Timers
	Hysteresis Hysteresis

	Log *logrus.Entry

	// OnLinkStatusChange is invoked whenever a Link's recomputed status
	// differs from its previous one (status.go).
	OnLinkStatusChange LinkStatusListener
}

// NewReader builds a Reader bound to the given database and collaborators.
// A nil timers/hysteresis/log is valid. clock must not be nil: EndPass2 and
// the link timers read it, and Reader substitutes no default.
func NewReader(db *Database, ifaces *InterfaceRegistry, domains *DomainRegistry, clock Clock, timers Timers, hyst Hysteresis, log *logrus.Entry) *Reader {
	return &Reader{
		DB:         db,
		Ifaces:     ifaces,
		Domains:    domains,
		Clock:      clock,
		Timers:     timers,
		Hysteresis: hyst,
		Log:        log,
	}
}

// BeginMessage is Phase 0: resolve the receive interface, decode the
// message-level TLVs, and build a fresh Session scratch value. Returns
// DropMessage if the message cannot be processed at all: with a nil Session
// when the interface or address length is rejected, and with the Session
// (for logging context only, otherwise unusable) when VALIDITY_TIME is
// missing.
func (r *Reader) BeginMessage(ctx MessageContext) (*Session, Outcome) {
	r.DB.Lock()
	defer r.DB.Unlock()

	now := uint64(0)
	if r.Clock != nil {
		now = r.Clock.NowMS()
	}

	iface, ok := r.Ifaces.GetByName(ctx.InterfaceName())
	if !ok {
		r.logDrop(nil, ctx.SourceAddr(), ErrNoInterface)
		return nil, DropMessage
	}

	family, ok := AddrLengthToFamily(ctx.AddrLength())
	if !ok {
		r.logDrop(nil, ctx.SourceAddr(), ErrMalformedMessage)
		return nil, DropMessage
	}
	if !iface.ActiveFor(family) {
		r.logDrop(nil, ctx.SourceAddr(), ErrNoInterface)
		return nil, DropMessage
	}

	s := newSession(iface, now)
	s.AddrLen = ctx.AddrLength()
	s.Family = family
	s.SourceAddr = ctx.SourceAddr()

	vb, ok := ctx.ValidityTimeByte()
	if !ok {
		r.logDrop(s, s.SourceAddr, ErrMalformedMessage)
		return s, DropMessage
	}
	s.Vtime = DecodeLogarithmic(vb)

	if ib, ok := ctx.IntervalTimeByte(); ok {
		s.Itime = DecodeLogarithmic(ib)
	}

	if exts, ok := ctx.MPRTypes(); ok {
		if len(exts) > MaxDomains {
			exts = exts[:MaxDomains]
		}
		willing, _ := ctx.MPRWillingness()
		s.MPRTypes = exts
		for i, ext := range exts {
			if i < len(willing) {
				routing, _ := DecodeWillingness(willing[i])
				s.Willingness[ext] = routing
			}
		}
	}

	if v4, ok := ctx.OriginatorV4(); ok {
		s.OriginatorV4 = v4
	}
	if mac, ok := ctx.MAC(); ok {
		m := mac
		s.RemoteMAC = &m
	}
	if org, ok := ctx.Originator(); ok {
		s.Originator = org
	}

	return s, Okay
}

// Pass1Address is Phase 1's per-address callback: it only observes the
// address block to resolve which Neighbor/Link this HELLO refers to; no
// database mutation happens here.
func (r *Reader) Pass1Address(s *Session, a AddressInput) Outcome {
	r.DB.Lock()
	defer r.DB.Unlock()

	if !s.OriginatorInAddrBlk && !s.Originator.IsUnspecified() && s.Originator.Equal(a.Addr) {
		s.OriginatorInAddrBlk = true
	}

	if a.HasLocalIf {
		if na, ok := r.DB.NeighborAddrGet(a.Addr); ok {
			s.incNeighborProcessCount(na.Owner)
			if !s.NeighborAddrConflict {
				if s.Neighbor == nil {
					if n, ok := r.DB.NeighborGet(na.Owner); ok {
						s.Neighbor = n
					}
				} else if s.Neighbor.ID != na.Owner {
					s.Neighbor = nil
					s.NeighborAddrConflict = true
				}
			}
		}

		if a.LocalIf == LocalIfThisIf {
			s.HasThisIf = true
			if la, ok := r.DB.LinkAddrGet(s.Iface, a.Addr); ok {
				s.incLinkProcessCount(la.Link)
				if !s.LinkAddrConflict {
					if s.Link == nil {
						if l, ok := r.DB.LinkGet(la.Link); ok {
							s.Link = l
						}
					} else if s.Link.ID != la.Link {
						s.Link = nil
						s.LinkAddrConflict = true
					}
				}
			}
		}
	}

	if a.HasLinkStatus && s.Iface.HasLocalAddress(a.Addr) {
		if a.LinkStatus == WireLinkStatusLost {
			s.LinkLost = true
		} else {
			s.LinkHeard = true
		}
	}

	return Okay
}

// EndPass1 is Phase 1's end callback: resolve the originator, allocate or
// mark-for-update the Neighbor/Link this HELLO refers to, synthesize a
// THIS_IF address if the peer never sent one, and reconcile dualstack
// partnerships.
func (r *Reader) EndPass1(s *Session, dropped bool) Outcome {
	r.DB.Lock()
	defer r.DB.Unlock()

	if dropped {
		r.cleanupSession(s)
		return DropMessage
	}

	if !s.Originator.IsUnspecified() && !s.OriginatorInAddrBlk {
		if on, ok := r.DB.NeighborGetByOriginator(s.Originator); ok {
			if s.Neighbor == nil && !s.NeighborAddrConflict {
				s.Neighbor = on
			}
			if s.Neighbor == nil || s.Neighbor.ID != on.ID {
				if s.neighborProcessCount(on.ID) == 0 {
					r.DB.NeighborSetOriginator(on, Unspecified())
				}
			}
		}
	}

	if s.Neighbor == nil {
		s.Neighbor = r.DB.NeighborAdd()
		s.NeighborAllocated = true
	} else {
		for _, na := range s.Neighbor.Addrs {
			if na.Addr.Family() == s.Family {
				na.MightBeRemoved = true
			}
		}
	}

	if s.Link == nil {
		s.Link = r.DB.LinkAdd(s.Iface, s.Neighbor)
		s.LinkAllocated = true
	} else {
		for _, la := range s.Link.Addrs {
			la.MightBeRemoved = true
		}
	}

	s.Link.SourceAddr = s.SourceAddr
	if s.RemoteMAC != nil {
		s.Link.RemoteMAC = s.RemoteMAC
	}

	if !s.HasThisIf {
		// The peer never labeled any address THIS_IF; synthesize one from
		// the address the HELLO physically arrived from (spec.md §9 open
		// question decision: the source address is already known to be of
		// the session's family, since it came in on this socket).
		r.pass2Address(s, AddressInput{
			Addr:       s.SourceAddr.Addr,
			HasLocalIf: true,
			LocalIf:    LocalIfThisIf,
		})
	}

	s.Link.ItimeMsg = s.Itime
	s.Link.VtimeMsg = s.Vtime
	if r.Hysteresis != nil {
		r.Hysteresis.Update(s.Link, s.Now)
	}

	r.reconcileDualstack(s)

	return Okay
}

func (r *Reader) reconcileDualstack(s *Session) {
	if !s.OriginatorV4.IsUnspecified() {
		sibling, ok := r.DB.NeighborGetByOriginator(s.OriginatorV4)
		if !ok || sibling.ID == s.Neighbor.ID {
			return
		}
		r.DB.DualstackConnectNeighbors(s.Neighbor, sibling)
		for lid := range sibling.LinkIDs {
			if l, ok := r.DB.LinkGet(lid); ok && l.Iface == s.Iface {
				r.DB.DualstackConnectLinks(s.Link, l)
				break
			}
		}
	} else if s.Family == FamilyIPv6 {
		r.DB.DualstackDisconnectNeighbor(s.Neighbor)
		r.DB.DualstackDisconnectLink(s.Link)
	}
}

// Pass2Address is Phase 2's per-address callback: it commits database
// mutations for this address (neighbor/link address bookkeeping, two-hop
// neighbor maintenance, domain-specific metric/MPR data).
func (r *Reader) Pass2Address(s *Session, a AddressInput) Outcome {
	r.DB.Lock()
	defer r.DB.Unlock()
	r.pass2Address(s, a)
	return Okay
}

// pass2Address is the unlocked body shared by Pass2Address and the
// synthesized THIS_IF call from EndPass1.
func (r *Reader) pass2Address(s *Session, a AddressInput) {
	if a.HasLocalIf {
		r.processLocalIf(s, a.Addr, a.LocalIf)
	}

	if !a.HasLinkStatus && !a.HasOtherNeighb {
		return
	}

	switch {
	case s.Iface.HasLocalAddress(a.Addr):
		r.processDomainSpecificLinkData(s, a)
	case r.Ifaces.IsLocalAddress(a.Addr):
		// Belongs to one of our own other interfaces; never a two-hop
		// neighbor of ourselves.
	case (a.HasLinkStatus && a.LinkStatus == WireLinkStatusSymmetric) ||
		(a.HasOtherNeighb && a.OtherNeighbSymmetric):
		th := r.DB.Link2HopAdd(s.Link, a.Addr)
		th.SameInterface = a.HasLinkStatus && a.LinkStatus == WireLinkStatusSymmetric
		r.DB.Link2HopSetVtime(th, s.Now+s.Vtime)
		r.processDomainSpecific2HopData(s, th, a)
	default:
		r.DB.Link2HopRemove(s.Link, a.Addr)
	}
}

// processLocalIf commits the LOCAL_IF address TLV: re-parenting the address
// onto the current Link (if THIS_IF) and, in both THIS_IF/OTHER_IF cases,
// onto the current Neighbor.
func (r *Reader) processLocalIf(s *Session, addr Address, localIf LocalIfType) {
	if localIf == LocalIfThisIf {
		la, ok := r.DB.LinkAddrGet(s.Iface, addr)
		if !ok {
			la, _ = r.DB.LinkAddrAdd(s.Link, addr)
		} else if la.Link != s.Link.ID {
			old := la.Link
			s.decLinkProcessCount(old)
			la = r.DB.LinkAddrMove(s.Link, addr)
			if s.linkProcessCount(old) <= 0 {
				if oldLink, ok := r.DB.LinkGet(old); ok && len(oldLink.Addrs) == 0 {
					r.DB.LinkRemove(oldLink)
				}
			}
		}
		if la != nil {
			la.MightBeRemoved = false
		}
	}

	na, ok := r.DB.NeighborAddrGet(addr)
	if !ok {
		na, _ = r.DB.NeighborAddrAdd(s.Neighbor, addr)
	} else if na.Owner != s.Neighbor.ID {
		r.DB.NeighborAddrMove(s.Neighbor, na)
	}
	if na != nil {
		na.MightBeRemoved = false
		na.Lost = false
	}
}

// processDomainSpecificLinkData handles the LINK_METRIC/MPR address TLVs for
// an address that is one of our own, on the interface this HELLO arrived on:
// the remote's incoming-link metric becomes our outgoing-link metric, and
// the remote's routing-MPR bit records, for each domain in its MPR_TYPES,
// whether it has chosen us as its routing MPR; the flooding-MPR bit is not
// recorded. MPR selection itself is this node's own concern and is not
// computed here.
//
// Every registered domain is reset to its neutral/infinite value first, then
// only the values actually present on this HELLO are reapplied, so a domain
// a peer stops advertising doesn't keep a stale value from an earlier HELLO
// (original_source/src-plugins/nhdp/nhdp/nhdp_reader.c
// _process_domainspecific_linkdata).
func (r *Reader) processDomainSpecificLinkData(s *Session, a AddressInput) {
	for _, d := range r.Domains.All() {
		dd := s.Neighbor.domainData(d.Ext)
		dd.LocalIsMPR = false
		dd.Willingness = 0
		dd.MetricOut = MetricInfinite
		s.Link.domainData(d.Ext).MetricOut = MetricInfinite
	}

	if a.HasMPR {
		for _, ext := range s.MPRTypes {
			dd := s.Neighbor.domainData(ext)
			dd.LocalIsMPR = a.MPRRouting
		}
	}
	for _, lm := range a.LinkMetrics {
		sel, val := DecodeLinkMetric(lm.Raw)
		if sel&MetricIncomingLink == 0 {
			continue
		}
		decoded := r.decodeMetric(lm.Ext, val)
		s.Link.domainData(lm.Ext).MetricOut = decoded
	}
}

// processDomainSpecific2HopData handles LINK_METRIC values describing a
// two-hop neighbor's incoming/outgoing metric to/from the common neighbor.
// Every registered domain's two-hop metric is reset to infinite first, for
// the same reason as processDomainSpecificLinkData
// (_process_domainspecific_2hopdata).
func (r *Reader) processDomainSpecific2HopData(s *Session, th *TwoHopNeighbor, a AddressInput) {
	for _, d := range r.Domains.All() {
		dd := th.domainData(d.Ext)
		dd.MetricIn = MetricInfinite
		dd.MetricOut = MetricInfinite
	}

	for _, lm := range a.LinkMetrics {
		sel, val := DecodeLinkMetric(lm.Raw)
		decoded := r.decodeMetric(lm.Ext, val)
		dd := th.domainData(lm.Ext)
		if sel&MetricIncomingNeigh != 0 {
			dd.MetricIn = decoded
		}
		if sel&MetricOutgoingNeigh != 0 {
			dd.MetricOut = decoded
		}
	}
}

func (r *Reader) decodeMetric(ext DomainExt, raw uint16) uint32 {
	d, ok := r.Domains.ByExt(ext)
	if !ok || d.Metric == nil {
		return uint32(raw)
	}
	return d.Metric.Decode(raw)
}

// EndPass2 is Phase 2's end callback: commit every still-marked
// might_be_removed address as actually removed, reconcile the Link's
// sym_time/heard_time/vtime deadlines, write back the originator and
// per-domain willingness, and recompute link status.
func (r *Reader) EndPass2(s *Session, dropped bool) Outcome {
	r.DB.Lock()
	defer r.DB.Unlock()

	if dropped {
		r.cleanupSession(s)
		return DropMessage
	}

	for addr, la := range cloneLinkAddrs(s.Link.Addrs) {
		if la.MightBeRemoved {
			r.DB.LinkAddrRemove(s.Link, addr)
		}
	}

	for addr, na := range cloneNeighborAddrs(s.Neighbor.Addrs) {
		if na.MightBeRemoved {
			na.Lost = true
			na.LostVtime = s.Now + s.Iface.NHoldTimeMS
			na.MightBeRemoved = false
			r.DB.Link2HopRemove(s.Link, addr)
		}
	}

	if s.LinkHeard {
		s.Link.SymTime = s.Now + s.Vtime
	} else if s.LinkLost {
		if s.Link.SymTime > s.Now {
			s.Link.SymTime = 0
		}
		hyst := HysteresisNeutral
		if r.Hysteresis != nil {
			hyst = r.Hysteresis.Status(s.Link)
		}
		projected := recomputeLinkState(s.Now, s.Link.SymTime, s.Link.HeardTime, hyst)
		if projected == LinkHeard {
			s.Link.Vtime = s.Now + s.Iface.LHoldTimeMS
		}
	}

	t := s.Link.SymTime
	if cand := s.Now + s.Vtime; cand > t {
		t = cand
	}
	s.Link.HeardTime = t

	if s.Link.Status != LinkPending {
		t += s.Iface.LHoldTimeMS
	}
	if t > s.Link.Vtime {
		s.Link.Vtime = t
	}

	if !s.Originator.IsUnspecified() {
		r.DB.NeighborSetOriginator(s.Neighbor, s.Originator)
	}

	for ext, w := range s.Willingness {
		s.Neighbor.domainData(ext).Willingness = w
	}

	r.recomputeAndNotify(s.Link)

	return Okay
}

// cleanupSession unwinds a Session's provisional database state after a
// dropped message: Neighbor/Link objects allocated during this session are
// deleted outright, and any might_be_removed marks left on adopted
// (pre-existing) objects are cleared. A drop at EndPass1 therefore leaves the
// database as it was before this HELLO arrived. Changes that EndPass1 and
// Pass2Address already made to adopted objects (addresses moved between
// Neighbors/Links, Links or Neighbors deleted by those moves, two-hop
// entries, the Link's source address and message times, dualstack
// partnerships, a cleared originator binding) are not undone.
func (r *Reader) cleanupSession(s *Session) {
	if s.Link != nil {
		for _, la := range s.Link.Addrs {
			la.MightBeRemoved = false
		}
	}
	if s.Neighbor != nil {
		for _, na := range s.Neighbor.Addrs {
			na.MightBeRemoved = false
		}
	}
	if s.LinkAllocated && s.Link != nil {
		r.DB.LinkRemove(s.Link)
	}
	if s.NeighborAllocated && s.Neighbor != nil {
		r.DB.NeighborRemove(s.Neighbor)
	}
}

func (r *Reader) logDrop(s *Session, peer SocketAddr, err error) {
	if r.Log == nil {
		return
	}
	entry := r.Log.WithField("peer", peer.String())
	if s != nil {
		entry = entry.WithField("trace", s.TraceID)
	}
	entry.WithError(err).Info("dropping HELLO message")
}

func cloneLinkAddrs(m map[Address]*LinkAddress) map[Address]*LinkAddress {
	out := make(map[Address]*LinkAddress, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneNeighborAddrs(m map[Address]*NeighborAddress) map[Address]*NeighborAddress {
	out := make(map[Address]*NeighborAddress, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
