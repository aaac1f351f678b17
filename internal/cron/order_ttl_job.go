package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

const (
	defaultUnpaidOrderTTL = 30 * time.Minute
	unpaidExpiryBatch     = 100
)

type unpaidOrderExpirer interface {
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OrderTTLJobParams configure the unpaid order expiry job.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders unpaidOrderExpirer
	TTL    time.Duration
	Batch  int
}

// NewOrderTTLJob builds the job that cancels online orders whose payment
// never completed within the TTL, releasing their stock.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	batch := params.Batch
	if batch <= 0 {
		batch = unpaidExpiryBatch
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders unpaidOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "unpaid-order-expiry" }

// Run drains expired orders batch by batch until a short batch comes back.
func (j *orderTTLJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for {
		expired, err := j.orders.ExpireUnpaid(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			return total, fmt.Errorf("expire unpaid orders: %w", err)
		}
		if expired < j.batch {
			break
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	}), "unpaid order expiry complete")
	return total, nil
}
