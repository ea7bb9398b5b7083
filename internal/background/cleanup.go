package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionSweeper deactivates sessions whose expiry has passed
type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) int64
}

// CleanupManager periodically deactivates expired sessions
type CleanupManager struct {
	sweeper  SessionSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(sweeper SessionSweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep immediately and then on every tick until Stop is called or ctx ends
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if swept := cm.sweeper.CleanupExpiredSessions(cleanupCtx); swept > 0 {
		cm.logger.Info("expired session cleanup completed", slog.Int64("sessions_deactivated", swept))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
