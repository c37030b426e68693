package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmlinker/farmlinker-backend/pkg/logger"
)

const defaultPendingOrderTTL = 7 * 24 * time.Hour

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderExpiryJobParams configure the stale order job.
type OrderExpiryJobParams struct {
	Logger  *logger.Logger
	Orders  pendingOrderExpirer
	TTL     time.Duration
	NowFunc func() time.Time
}

// NewOrderExpiryJob builds the job that cancels orders left pending longer
// than the TTL and puts their stock back on sale.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	now := params.NowFunc
	if now == nil {
		now = time.Now
	}
	return &orderExpiryJob{logg: params.Logger, orders: params.Orders, ttl: ttl, now: now}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders pendingOrderExpirer
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	count, err := j.orders.ExpirePending(ctx, cutoff)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "cutoff": cutoff})
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	j.logg.Info(logCtx, "pending order expiration complete")
	return nil
}
