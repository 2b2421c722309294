package auction

import (
	"context"
	"sync/atomic"
	"time"

	"trubid-backend/internal/domain"
	"trubid-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultCloserInterval = time.Minute
	closerLeaseKey        = "auction:closer:lease"
	closerBatchSize       = 200
)

// Locker grants a short exclusive lease so only one process scans per interval.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisLocker takes the lease with SET NX PX.
type RedisLocker struct {
	Rdb   *redis.Client
	Owner string
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	owner := l.Owner
	if owner == "" {
		owner = uuid.New().String()
	}
	return l.Rdb.SetNX(ctx, key, owner, ttl).Result()
}

// Clock periodically closes expired auctions. One Clock runs per process; overlapping ticks
// are skipped.
type Clock struct {
	DB         *gorm.DB
	Guard      database.Guard
	Controller *Controller
	Locker     Locker
	Interval   time.Duration
	Now        func() time.Time

	running atomic.Bool
}

func (c *Clock) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultCloserInterval
	}
	return c.Interval
}

// Run ticks until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()
	log.Info().Dur("interval", c.interval()).Msg("auction closer started")
	c.tickAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("auction closer stopped")
			return
		case <-ticker.C:
			c.tickAndLog(ctx)
		}
	}
}

func (c *Clock) tickAndLog(ctx context.Context) {
	closed, err := c.Tick(ctx)
	if err != nil {
		log.Error().Err(err).Msg("auction closer tick failed")
		return
	}
	if closed > 0 {
		log.Info().Int("closed", closed).Msg("auction closer tick")
	}
}

// Tick closes every expired active listing and returns how many this tick closed.
func (c *Clock) Tick(ctx context.Context) (int, error) {
	if !c.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer c.running.Store(false)

	if c.Locker != nil {
		ok, err := c.Locker.Acquire(ctx, closerLeaseKey, c.interval()*9/10)
		if err != nil {
			log.Warn().Err(err).Msg("auction closer: lease unavailable, scanning anyway")
		} else if !ok {
			return 0, nil
		}
	}

	now := utcNow(c.Now)
	var ids []uuid.UUID
	err := c.Guard.Run(ctx, "scan expired listings", func(ctx context.Context) error {
		ids = ids[:0]
		return c.DB.WithContext(ctx).Model(&domain.Listing{}).
			Where("status = ? AND end_date <= ?", domain.ListingActive, now).
			Order("end_date ASC").Limit(closerBatchSize).
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		res, err := c.Controller.CloseAuction(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("listing_id", id.String()).Msg("auction closer: close failed")
			continue
		}
		if res.Closed {
			closed++
		}
	}
	return closed, nil
}
