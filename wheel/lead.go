package wheel

import (
	"context"

	"github.com/kristianakila/restbek2/errors"
)

// SubmitLead records contact details against a spin. It returns the
// spin's resulting lead state and whether this call performed the
// transition. Idempotent: if the spin already reached a terminal lead
// state it is left untouched and that state is reported, so a repeat call
// never overwrites an earlier fallback.
func (e *Engine) SubmitLead(ctx context.Context, tenantID, userID, spinID string, contact Contact) (LeadState, bool, error) {
	return e.transitionLead(ctx, tenantID, userID, spinID, func(rec *SpinRecord) {
		rec.LeadState = LeadSubmitted
		rec.LeadContact = &contact
	})
}

// FallbackLead marks a spin's lead as explicitly abandoned. Returns the
// resulting lead state and whether this call performed the transition.
// The fallback is a client-triggered event, not an engine timer; only the
// mutual-exclusion invariant is enforced here.
func (e *Engine) FallbackLead(ctx context.Context, tenantID, userID, spinID, reason string) (LeadState, bool, error) {
	return e.transitionLead(ctx, tenantID, userID, spinID, func(rec *SpinRecord) {
		rec.LeadState = LeadFallback
		rec.LeadReason = reason
	})
}

func (e *Engine) transitionLead(ctx context.Context, tenantID, userID, spinID string, apply func(*SpinRecord)) (LeadState, bool, error) {
	if _, err := e.tenants.Get(ctx, tenantID); err != nil {
		return "", false, err
	}

	var (
		result  LeadState
		changed bool
	)
	_, err := e.users.RunTransaction(ctx, tenantID, userID, func(u *UserState, found bool) error {
		changed = false
		if !found {
			return errors.New(errors.ErrSpinNotFound, "spin not found")
		}
		rec := u.FindSpin(spinID)
		if rec == nil {
			return errors.New(errors.ErrSpinNotFound, "spin not found")
		}
		// First terminal state wins; later calls are no-ops that report
		// the state already reached.
		if rec.LeadState == LeadPending {
			apply(rec)
			changed = true
		}
		result = rec.LeadState
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return result, changed, nil
}
