package nhdp

import "github.com/sirupsen/logrus"

// HysteresisResult is hysteresis's verdict feeding link status
// recomputation, independent of the raw sym_time/heard_time timers.
type HysteresisResult uint8

const (
	// HysteresisNeutral means hysteresis has no opinion; fall through to
	// the timer-based computation.
	HysteresisNeutral HysteresisResult = iota
	HysteresisPending
	HysteresisLost
)

// recomputeLinkState is the pure function from spec.md §4.F "Link status
// recomputation": a function of (now, sym_time, heard_time, hysteresis).
func recomputeLinkState(now, symTime, heardTime uint64, hyst HysteresisResult) LinkState {
	switch hyst {
	case HysteresisPending:
		return LinkPending
	case HysteresisLost:
		return LinkLost
	}
	switch {
	case symTime > now:
		return LinkSymmetric
	case heardTime > now:
		return LinkHeard
	default:
		return LinkLost
	}
}

// LinkStatusListener is notified whenever a Link's recomputed status
// differs from its previous one.
type LinkStatusListener func(l *Link, old, new LinkState)

// recomputeAndNotify recomputes l's status from its timers (component H)
// and, if it changed, updates l.Status and invokes the OnLinkStatusChange
// listener. It also reschedules l's single outstanding timer to the next
// relevant deadline, and removes the link outright once its vtime has
// passed (spec.md §3 invariant 4: "vtime ≤ now ⇒ Link is destroyed").
//
// Returns false if the link was destroyed as a result.
func (r *Reader) recomputeAndNotify(l *Link) bool {
	now := r.Clock.NowMS()

	if l.Vtime != 0 && l.Vtime <= now {
		r.cancelLinkTimer(l)
		old := l.Status
		if n, ok := r.DB.NeighborGet(l.NeighborID); ok {
			r.DB.LinkRemove(l)
			if old != LinkLost {
				r.notifyStatus(l, old, LinkLost)
			}
			_ = n
		}
		return false
	}

	hyst := HysteresisNeutral
	if r.Hysteresis != nil {
		hyst = r.Hysteresis.Status(l)
	}

	old := l.Status
	next := recomputeLinkState(now, l.SymTime, l.HeardTime, hyst)
	if next != old {
		l.Status = next
		r.notifyStatus(l, old, next)
	}
	r.rescheduleLinkTimer(l)
	return true
}

func (r *Reader) notifyStatus(l *Link, old, new LinkState) {
	if r.OnLinkStatusChange != nil {
		r.OnLinkStatusChange(l, old, new)
	}
	if r.Log != nil {
		r.Log.WithFields(logrus.Fields{
			"link":      l.ID,
			"interface": l.Iface.Name,
			"neighbor":  l.NeighborID,
			"old":       old.String(),
			"new":       new.String(),
		}).Info("link status changed")
	}
}

// rescheduleLinkTimer cancels l's previous timer and schedules a new one at
// the soonest of its still-future deadlines (sym_time, heard_time, vtime),
// so status recomputation runs even without another HELLO arriving.
func (r *Reader) rescheduleLinkTimer(l *Link) {
	r.cancelLinkTimer(l)
	if r.Timers == nil {
		return
	}
	now := r.Clock.NowMS()
	next := uint64(0)
	for _, t := range []uint64{l.SymTime, l.HeardTime, l.Vtime} {
		if t > now && (next == 0 || t < next) {
			next = t
		}
	}
	if next == 0 {
		return
	}
	id := l.ID
	l.timerHandle = r.Timers.Schedule(next, func() {
		if live, ok := r.DB.LinkGet(id); ok {
			r.DB.Lock()
			r.recomputeAndNotify(live)
			r.DB.Unlock()
		}
	})
}

func (r *Reader) cancelLinkTimer(l *Link) {
	if r.Timers != nil && l.timerHandle != 0 {
		r.Timers.Cancel(l.timerHandle)
	}
	l.timerHandle = 0
}
