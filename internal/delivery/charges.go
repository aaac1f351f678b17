package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

const (
	defaultNightStart = "22:00"
	defaultNightEnd   = "06:00"
	clockLayout       = "15:04"
)

// Quote is a priced distance band.
type Quote struct {
	RuleID       uuid.UUID       `json:"rule_id"`
	DistanceKm   float64         `json:"distance_km"`
	Charge       decimal.Decimal `json:"charge"`
	Night        bool            `json:"is_night"`
	DistanceFrom decimal.Decimal `json:"distance_from"`
	DistanceTo   decimal.Decimal `json:"distance_to"`
}

// ChargeQuoter prices deliveries from the active distance bands.
type ChargeQuoter struct {
	repo Repository
}

func NewChargeQuoter(repo Repository) (*ChargeQuoter, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	return &ChargeQuoter{repo: repo}, nil
}

// Quote returns the band covering distanceKm, charged at the night rate when
// at falls inside the band's night window.
func (q *ChargeQuoter) Quote(ctx context.Context, distanceKm float64, at time.Time) (*Quote, error) {
	if distanceKm < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "distance must not be negative")
	}
	rule, err := q.repo.MatchChargeRule(ctx, distanceKm)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("No delivery charge found for distance %.2fkm", distanceKm))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery charge rule")
	}

	night := isNight(at, rule.NightStart, rule.NightEnd)
	charge := rule.DayCharge
	if night {
		charge = rule.NightCharge
	}
	return &Quote{
		RuleID:       rule.ID,
		DistanceKm:   distanceKm,
		Charge:       charge.Round(2),
		Night:        night,
		DistanceFrom: rule.DistanceFrom,
		DistanceTo:   rule.DistanceTo,
	}, nil
}

// QuoteCharge is Quote reduced to the amount.
func (q *ChargeQuoter) QuoteCharge(ctx context.Context, distanceKm float64, at time.Time) (decimal.Decimal, error) {
	quote, err := q.Quote(ctx, distanceKm, at)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Charge, nil
}

// isNight reports whether the clock time of at lies in [start, end). The
// window wraps midnight when end is not after start.
func isNight(at time.Time, start, end string) bool {
	from := clockMinutes(start, defaultNightStart)
	to := clockMinutes(end, defaultNightEnd)
	now := at.Hour()*60 + at.Minute()
	if from == to {
		return false
	}
	if from < to {
		return now >= from && now < to
	}
	return now >= from || now < to
}

func clockMinutes(value, fallback string) int {
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		t, _ = time.Parse(clockLayout, fallback)
	}
	return t.Hour()*60 + t.Minute()
}
