package nhdp

// Hysteresis is the pluggable per-link quality filter (component G):
// Update is called once per received HELLO, before database commit; Status
// feeds link status recomputation (status.go), overriding the
// timer-derived state with Pending or Lost when the filter says so.
type Hysteresis interface {
	Update(l *Link, now uint64)
	Status(l *Link) HysteresisResult
}

// NoopHysteresis is the default: OONF's own default build runs with no
// hysteresis plugin attached, so every link status is derived purely from
// its timers (original_source/src-plugins/nhdp/nhdp/nhdp_reader.c treats a
// nil hysteresis exactly this way). It never forces Pending or Lost.
type NoopHysteresis struct{}

func (NoopHysteresis) Update(*Link, uint64)          {}
func (NoopHysteresis) Status(*Link) HysteresisResult { return HysteresisNeutral }

// QualityHysteresis implements the RFC 6130 Appendix B exponentially
// weighted quality estimate: each received HELLO nudges a per-link quality
// value towards 1; a link is PENDING while quality sits between reject and
// accept thresholds, and considered LOST outright once quality falls to or
// below reject, regardless of what the sym_time/heard_time timers say.
type QualityHysteresis struct {
	scaling float64
	accept  float64
	reject  float64

	quality map[LinkID]float64
}

// NewQualityHysteresis builds a QualityHysteresis with RFC 6130's suggested
// defaults: HYST_SCALING=0.5, HYST_ACCEPT=0.8, HYST_REJECT=0.3.
func NewQualityHysteresis() *QualityHysteresis {
	return &QualityHysteresis{
		scaling: 0.5,
		accept:  0.8,
		reject:  0.3,
		quality: make(map[LinkID]float64),
	}
}

// WithThresholds overrides the default scaling/accept/reject constants.
func (h *QualityHysteresis) WithThresholds(scaling, accept, reject float64) *QualityHysteresis {
	h.scaling, h.accept, h.reject = scaling, accept, reject
	return h
}

func (h *QualityHysteresis) Update(l *Link, now uint64) {
	q := h.quality[l.ID]
	q += h.scaling * (1 - q)
	h.quality[l.ID] = q
}

// Decay lowers l's quality estimate, intended to be driven by a timer that
// fires when an expected HELLO fails to arrive within the peer's advertised
// interval. Not invoked automatically by Reader; a caller wiring periodic
// decay would schedule it against Link.ItimeMsg.
func (h *QualityHysteresis) Decay(l *Link) {
	q := h.quality[l.ID]
	q *= 1 - h.scaling
	h.quality[l.ID] = q
}

func (h *QualityHysteresis) Status(l *Link) HysteresisResult {
	q := h.quality[l.ID]
	switch {
	case q <= h.reject:
		return HysteresisLost
	case q < h.accept:
		return HysteresisPending
	default:
		return HysteresisNeutral
	}
}

// Forget releases l's quality estimate. Not invoked automatically by Reader;
// an entry for a removed Link stays in the map until Forget is called.
func (h *QualityHysteresis) Forget(l *Link) {
	delete(h.quality, l.ID)
}
