package cron

import (
	"fmt"

	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	pkgredis "github.com/farmlinker/farmlinker-backend/pkg/redis"
)

// SchedulerParams wire the marketplace jobs. Redis is optional; without it
// the lock only guards the current process.
type SchedulerParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Orders  pendingOrderExpirer
	Redis   *pkgredis.Client
	Metrics jobMetrics
}

// NewScheduler builds the scheduler with every marketplace job registered.
func NewScheduler(p SchedulerParams) (*Service, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}

	var lock Lock = NewLocalLock()
	if p.Redis != nil {
		redisLock, err := NewRedisLock(p.Redis, lockKey(p.Config.App.Env), p.Config.Cron.LockTTL)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}

	expiry, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: p.Logger,
		Orders: p.Orders,
		TTL:    p.Config.Cron.PendingOrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("order expiry job: %w", err)
	}

	return NewService(ServiceParams{
		Logger:   p.Logger,
		Registry: NewRegistry(expiry),
		Lock:     lock,
		Metrics:  p.Metrics,
		Interval: p.Config.Cron.Interval,
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return pkgredis.Key("cron", "lock", env)
}
