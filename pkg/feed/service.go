package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// DefaultBroadcastInterval is the default interval for flushing buffered wins.
	DefaultBroadcastInterval = 2 * time.Second

	// DefaultHistorySize is how many recent wins are kept for new subscribers.
	DefaultHistorySize = 50
)

// Service buffers winner updates and broadcasts them to listeners. It is
// transport-agnostic: the caller wires HTTP routes (SSE, websocket) and
// subscribes via Listen(). Wins arrive either from local spins or from the
// Kafka consumer when several instances share one feed.
type Service struct {
	mu       sync.RWMutex
	buffer   []WinUpdate
	history  []WinUpdate
	histSize int
	broad    *Broadcaster
	logger   zerolog.Logger
	interval time.Duration
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewService creates a winner feed service and starts its flush loop.
func NewService(cfg ServiceConfig) *Service {
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	histSize := cfg.HistorySize
	if histSize <= 0 {
		histSize = DefaultHistorySize
	}
	s := &Service{
		histSize: histSize,
		broad:    NewBroadcaster(128),
		logger:   cfg.Logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
	s.start()
	return s
}

// Publish buffers a win for the next flush. Zero timestamps are stamped on
// arrival so ordering stays stable across sources.
func (s *Service) Publish(update WinUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Dedupe by spin ID: the same win can arrive locally and via Kafka.
	if lo.ContainsBy(s.buffer, func(u WinUpdate) bool { return u.SpinID == update.SpinID }) {
		return
	}
	if lo.ContainsBy(s.history, func(u WinUpdate) bool { return u.SpinID == update.SpinID }) {
		return
	}

	s.buffer = append(s.buffer, update)
}

// Recent returns the retained win history for a tenant, newest first.
func (s *Service) Recent(tenantID string, limit int) []WinUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := lo.Filter(s.history, func(u WinUpdate, _ int) bool {
		return tenantID == "" || u.TenantID == tenantID
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	out := make([]WinUpdate, len(matched))
	copy(out, matched)
	return lo.Reverse(out)
}

// Listen returns a channel receiving flushed wins plus a cancel function.
func (s *Service) Listen(ctx context.Context) (<-chan WinUpdate, context.CancelFunc) {
	return s.broad.Listen(ctx)
}

// Stop stops the flush loop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopChan)
	})
}

func (s *Service) start() {
	s.ticker = time.NewTicker(s.interval)
	go s.loop()
}

func (s *Service) loop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.flush()
		}
	}
}

// flush broadcasts buffered wins, appends them to history, and clears the buffer.
func (s *Service) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}

	updates := s.buffer
	s.buffer = nil
	s.history = append(s.history, updates...)
	if len(s.history) > s.histSize {
		s.history = s.history[len(s.history)-s.histSize:]
	}
	s.mu.Unlock()

	for _, u := range updates {
		s.broad.Send(u)
	}
	if s.logger.GetLevel() <= zerolog.DebugLevel {
		s.logger.Debug().Int("count", len(updates)).Msg("flushed winner feed updates")
	}
}
