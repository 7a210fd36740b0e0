package swap

import (
	"context"
	"errors"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/config"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

// DefaultMonitorInterval is how often the monitor sweeps sessions.
const DefaultMonitorInterval = 30 * time.Second

// Monitor watches live sessions and refunds legs whose timelocks have
// expired, moving abandoned swaps to the expired state. It also
// cancels sessions stuck in init.
type Monitor struct {
	coordinator *Coordinator
	interval    time.Duration

	// initGrace is how long an init session may sit unfunded before
	// it is cancelled.
	initGrace time.Duration
}

// NewMonitor returns a monitor with the default sweep interval.
func NewMonitor(c *Coordinator) *Monitor {
	return &Monitor{
		coordinator: c,
		interval:    DefaultMonitorInterval,
		initGrace:   time.Hour,
	}
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log := m.coordinator.log
	log.Info("timeout monitor started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("timeout monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	now := time.Now().UTC()
	for _, session := range m.coordinator.ListSessions() {
		if session.State.IsTerminal() {
			continue
		}

		if session.State == StateInit {
			if now.Sub(session.CreatedAt) > m.initGrace {
				m.abort(ctx, session.ID, "init grace elapsed")
			}
			continue
		}

		// Refund as soon as any open leg is past expiry. Abort itself
		// skips legs that cannot be refunded yet.
		if m.anyLegExpired(session, now) {
			m.abort(ctx, session.ID, "timelock expired")
			continue
		}

		if session.State == StateDestinationLocked &&
			!config.IsSafeToClaim(session.Destination.Chain, now, session.Destination.Timelock) {
			m.coordinator.log.Warn("claim window closing",
				"session", session.ID, "expires", session.Destination.Timelock)
		}
	}
}

func (m *Monitor) anyLegExpired(s *Session, now time.Time) bool {
	for _, record := range []*htlc.Record{&s.Source, &s.Destination} {
		if record.ID != "" && record.Status == htlc.StatusCreated && now.After(record.Timelock) {
			return true
		}
	}
	return false
}

func (m *Monitor) abort(ctx context.Context, sessionID, reason string) {
	log := m.coordinator.log
	_, err := m.coordinator.Abort(ctx, sessionID)
	switch {
	case err == nil:
		log.Info("session aborted", "session", sessionID, "reason", reason)
	case errors.Is(err, ErrNothingToRefund):
		// Chain time lags local time; try again next sweep.
	default:
		log.Warn("abort failed", "session", sessionID, "error", err)
	}
}
