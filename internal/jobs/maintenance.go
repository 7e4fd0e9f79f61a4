package jobs

import (
	"context"
	"time"

	"github.com/booklog/booklog/internal/repo"
	"go.uber.org/zap"
)

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type StatsSource interface {
	GetStats(ctx context.Context) (repo.Stats, error)
}

type StatsSink interface {
	SetBookCounts(reading, done int64)
}

type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// SweepFunc adapts a plain function to Sweeper.
type SweepFunc func(maxIdle time.Duration) int

func (f SweepFunc) Sweep(maxIdle time.Duration) int { return f(maxIdle) }

// PurgeSessions deletes expired login sessions.
func PurgeSessions(purger SessionPurger, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		n, err := purger.PurgeExpiredSessions(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("Expired sessions purged", zap.Int64("count", n))
		}
		return nil
	}
}

// RefreshBookStats copies per-status book counts into the metrics gauge.
func RefreshBookStats(source StatsSource, sink StatsSink) Job {
	return func(ctx context.Context) error {
		stats, err := source.GetStats(ctx)
		if err != nil {
			return err
		}
		sink.SetBookCounts(stats.Reading, stats.Done)
		return nil
	}
}

// SweepLimiter forgets clients idle for longer than maxIdle.
func SweepLimiter(sweeper Sweeper, maxIdle time.Duration) Job {
	return func(context.Context) error {
		sweeper.Sweep(maxIdle)
		return nil
	}
}
