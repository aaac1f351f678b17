package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

const defaultSettlementLookback = 72 * time.Hour

type deliveredSettler interface {
	SettleDelivered(ctx context.Context, since time.Time) (int, error)
}

type CommissionSettlementJobParams struct {
	Logger      *logger.Logger
	Commissions deliveredSettler
	Lookback    time.Duration
}

// NewCommissionSettlementJob builds the sweep that settles delivered orders
// the event listener missed.
func NewCommissionSettlementJob(params CommissionSettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commission service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultSettlementLookback
	}
	return &commissionSettlementJob{
		logg:        params.Logger,
		commissions: params.Commissions,
		lookback:    lookback,
		now:         time.Now,
	}, nil
}

type commissionSettlementJob struct {
	logg        *logger.Logger
	commissions deliveredSettler
	lookback    time.Duration
	now         func() time.Time
}

func (j *commissionSettlementJob) Name() string { return "commission-settlement" }

func (j *commissionSettlementJob) Run(ctx context.Context) (int, error) {
	since := j.now().UTC().Add(-j.lookback)
	settled, err := j.commissions.SettleDelivered(ctx, since)
	if err != nil {
		return settled, fmt.Errorf("settle delivered orders: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"since":   since,
		"settled": settled,
	}), "commission sweep complete")
	return settled, nil
}
