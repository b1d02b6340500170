package wheel

import (
	"context"
	"testing"
	"time"

	"github.com/kristianakila/restbek2/errors"
)

func leadFixture(t *testing.T) (*Engine, *memUserStore, string) {
	t.Helper()
	clock := newFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	users := newMemUserStore()
	eng := testEngine(newFakeTenantStore(testTenant("t1")), users, clock, &queueRand{draws: []float64{0}})

	record, err := eng.Spin(context.Background(), "t1", "u1", "")
	if err != nil {
		t.Fatalf("setup spin failed: %v", err)
	}
	return eng, users, record.SpinID
}

func TestSubmitLead(t *testing.T) {
	eng, users, spinID := leadFixture(t)
	ctx := context.Background()

	contact := Contact{Name: "Ann", Phone: "+100200300", Email: "ann@example.com"}
	state, changed, err := eng.SubmitLead(ctx, "t1", "u1", spinID, contact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != LeadSubmitted || !changed {
		t.Errorf("expected (submitted, changed), got (%q, %v)", state, changed)
	}

	stored, _ := users.GetUser(ctx, "t1", "u1")
	rec := stored.FindSpin(spinID)
	if rec.LeadState != LeadSubmitted {
		t.Errorf("expected submitted state, got %q", rec.LeadState)
	}
	if rec.LeadContact == nil || rec.LeadContact.Phone != "+100200300" {
		t.Errorf("expected contact to be stored, got %+v", rec.LeadContact)
	}
}

func TestFallbackLead(t *testing.T) {
	eng, users, spinID := leadFixture(t)
	ctx := context.Background()

	state, changed, err := eng.FallbackLead(ctx, "t1", "u1", spinID, "closed_widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != LeadFallback || !changed {
		t.Errorf("expected (fallen_back, changed), got (%q, %v)", state, changed)
	}

	stored, _ := users.GetUser(ctx, "t1", "u1")
	rec := stored.FindSpin(spinID)
	if rec.LeadState != LeadFallback {
		t.Errorf("expected fallback state, got %q", rec.LeadState)
	}
	if rec.LeadReason != "closed_widget" {
		t.Errorf("expected reason to be stored, got %q", rec.LeadReason)
	}
}

func TestLeadFirstTerminalStateWins(t *testing.T) {
	eng, users, spinID := leadFixture(t)
	ctx := context.Background()

	contact := Contact{Name: "Ann", Phone: "+100200300"}
	if _, _, err := eng.SubmitLead(ctx, "t1", "u1", spinID, contact); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// A later fallback must not overwrite the submitted lead, and must not
	// error either; it reports the state that actually stuck.
	state, changed, err := eng.FallbackLead(ctx, "t1", "u1", spinID, "too_late")
	if err != nil {
		t.Fatalf("fallback after submit errored: %v", err)
	}
	if state != LeadSubmitted || changed {
		t.Errorf("expected (submitted, no-op), got (%q, %v)", state, changed)
	}

	stored, _ := users.GetUser(ctx, "t1", "u1")
	rec := stored.FindSpin(spinID)
	if rec.LeadState != LeadSubmitted {
		t.Errorf("fallback overwrote submitted lead: %q", rec.LeadState)
	}
	if rec.LeadReason != "" {
		t.Errorf("fallback reason leaked onto submitted lead: %q", rec.LeadReason)
	}

	// Same the other way: repeat submit with different contact is a no-op.
	other := Contact{Name: "Bob", Phone: "+999"}
	state, changed, err = eng.SubmitLead(ctx, "t1", "u1", spinID, other)
	if err != nil {
		t.Fatalf("repeat submit errored: %v", err)
	}
	if state != LeadSubmitted || changed {
		t.Errorf("expected repeat submit to report (submitted, no-op), got (%q, %v)", state, changed)
	}
	stored, _ = users.GetUser(ctx, "t1", "u1")
	if stored.FindSpin(spinID).LeadContact.Name != "Ann" {
		t.Error("repeat submit overwrote the original contact")
	}
}

func TestLeadUnknownSpin(t *testing.T) {
	eng, _, _ := leadFixture(t)
	ctx := context.Background()

	_, _, err := eng.SubmitLead(ctx, "t1", "u1", "missing-spin", Contact{Name: "x", Phone: "1"})
	if !errors.IsCode(err, errors.ErrSpinNotFound) {
		t.Errorf("expected ErrSpinNotFound, got %v", err)
	}

	_, _, err = eng.SubmitLead(ctx, "t1", "nobody", "missing-spin", Contact{Name: "x", Phone: "1"})
	if !errors.IsCode(err, errors.ErrSpinNotFound) {
		t.Errorf("expected ErrSpinNotFound for unknown user, got %v", err)
	}
}

func TestLeadUnknownTenant(t *testing.T) {
	eng, _, spinID := leadFixture(t)
	_, _, err := eng.SubmitLead(context.Background(), "nope", "u1", spinID, Contact{Name: "x", Phone: "1"})
	if !errors.IsCode(err, errors.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}
