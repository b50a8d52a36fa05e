package verification

import "time"

// Transition applies a proof-check outcome to a verification record and
// returns the updated record plus whether the move is worth notifying on.
//
// A verified record is terminal: it is returned unchanged and never
// re-evaluated. Otherwise the record moves to verified or failed. Every
// arrival at verified counts as changed; arrival at failed counts as changed
// only when the record was not already failed, so a re-check that stays
// failed does not fire a duplicate webhook.
func Transition(v Verification, proofFound bool, now time.Time) (Verification, bool) {
	if v.Status == StatusVerified {
		return v, false
	}

	next := StatusFailed
	if proofFound {
		next = StatusVerified
	}

	changed := next != v.Status || next == StatusVerified

	v.Status = next
	if next == StatusVerified {
		t := now
		v.VerifiedAt = &t
	} else {
		v.VerifiedAt = nil
	}
	return v, changed
}
