package feed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestService() *Service {
	// Long interval so tests drive flushes explicitly.
	return NewService(ServiceConfig{
		BroadcastInterval: time.Hour,
		HistorySize:       3,
		Logger:            zerolog.Nop(),
	})
}

func win(tenantID, spinID string) WinUpdate {
	return WinUpdate{
		TenantID:    tenantID,
		SpinID:      spinID,
		UserLabel:   "user****",
		PrizeLabel:  "10 points",
		RewardKind:  "points",
		RewardValue: decimal.NewFromInt(10),
		Timestamp:   time.Now().UTC(),
	}
}

func TestPublishAndFlush(t *testing.T) {
	s := newTestService()
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, stop := s.Listen(ctx)
	defer stop()

	s.Publish(win("t1", "s1"))
	s.flush()

	select {
	case got := <-updates:
		if got.SpinID != "s1" {
			t.Errorf("expected spin s1, got %q", got.SpinID)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received after flush")
	}
}

func TestPublishDeduplicatesBySpinID(t *testing.T) {
	s := newTestService()
	defer s.Stop()

	// Duplicate in the same buffer window.
	s.Publish(win("t1", "s1"))
	s.Publish(win("t1", "s1"))
	s.flush()

	// Duplicate arriving later via Kafka after the local copy flushed.
	s.Publish(win("t1", "s1"))
	s.flush()

	recent := s.Recent("t1", 0)
	if len(recent) != 1 {
		t.Errorf("expected 1 win in history, got %d", len(recent))
	}
}

func TestRecentFiltersAndOrders(t *testing.T) {
	s := newTestService()
	defer s.Stop()

	s.Publish(win("t1", "s1"))
	s.Publish(win("t2", "s2"))
	s.Publish(win("t1", "s3"))
	s.flush()

	recent := s.Recent("t1", 0)
	if len(recent) != 2 {
		t.Fatalf("expected 2 wins for t1, got %d", len(recent))
	}
	// Newest first.
	if recent[0].SpinID != "s3" || recent[1].SpinID != "s1" {
		t.Errorf("unexpected order: %q, %q", recent[0].SpinID, recent[1].SpinID)
	}

	if got := s.Recent("t1", 1); len(got) != 1 || got[0].SpinID != "s3" {
		t.Errorf("limit 1 should return only the newest win, got %+v", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	s := newTestService() // HistorySize 3
	defer s.Stop()

	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		s.Publish(win("t1", id))
	}
	s.flush()

	recent := s.Recent("t1", 0)
	if len(recent) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(recent))
	}
	if recent[0].SpinID != "s5" {
		t.Errorf("expected newest win s5 first, got %q", recent[0].SpinID)
	}
}

func TestEveryListenerReceivesEveryWin(t *testing.T) {
	s := newTestService()
	defer s.Stop()

	ctx := context.Background()
	first, stopFirst := s.Listen(ctx)
	defer stopFirst()
	second, stopSecond := s.Listen(ctx)
	defer stopSecond()

	const total = 10
	for i := 0; i < total; i++ {
		s.Publish(win("t1", "s"+string(rune('0'+i))))
		s.flush()
	}

	drain := func(ch <-chan WinUpdate) int {
		n := 0
		for {
			select {
			case <-ch:
				n++
			case <-time.After(100 * time.Millisecond):
				return n
			}
		}
	}

	if got := drain(first); got != total {
		t.Errorf("first listener received %d of %d wins", got, total)
	}
	if got := drain(second); got != total {
		t.Errorf("second listener received %d of %d wins", got, total)
	}
}

func TestListenerCancelStopsDelivery(t *testing.T) {
	s := newTestService()
	defer s.Stop()

	ctx := context.Background()
	updates, stop := s.Listen(ctx)
	stop()

	// Channel closes once the listener context is canceled.
	select {
	case _, ok := <-updates:
		if ok {
			// A buffered update may still drain; the close must follow.
			if _, ok := <-updates; ok {
				t.Error("expected channel to close after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("listener channel did not close")
	}
}
