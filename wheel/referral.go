package wheel

import (
	"context"

	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/metrics"
)

// AttributeReferral credits referrerID for inviting referredID. Idempotent:
// the referred id lands in the referrer's invited set exactly once and
// ReferralsCount moves with it.
//
// Two documents are touched in two separate transactions, referrer first.
// A crash in between leaves the referrer credited and the referred user's
// ReferrerProcessed flag unset, so a later attempt retries harmlessly; the
// reverse order could leave the referred user permanently unattributable.
func (e *Engine) AttributeReferral(ctx context.Context, tenantID, referrerID, referredID string) error {
	if referrerID == referredID {
		return errors.New(errors.ErrInvalidRequest, "self-referral is not allowed")
	}

	credited := false
	_, err := e.users.RunTransaction(ctx, tenantID, referrerID, func(r *UserState, found bool) error {
		credited = false
		if !found {
			return errors.New(errors.ErrNotFound, "referrer not found")
		}
		if r.HasInvited(referredID) {
			return nil
		}
		r.InvitedUserIDs = append(r.InvitedUserIDs, referredID)
		r.ReferralsCount++
		credited = true
		return nil
	})
	if err != nil {
		return err
	}
	if credited {
		metrics.ReferralsTotal.WithLabelValues(tenantID).Inc()
	}

	// Referred side only after the referrer's counters committed.
	_, err = e.users.RunTransaction(ctx, tenantID, referredID, func(u *UserState, found bool) error {
		if u.ReferrerProcessed {
			return nil
		}
		if !found {
			u.CreatedAt = e.clock.Now()
		}
		u.ReferrerProcessed = true
		u.ReferrerID = referrerID
		return nil
	})
	return err
}
