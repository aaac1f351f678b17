package commissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
)

const sweepBatch = 200

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type settlementMetrics interface {
	SettlementsRecorded(n int)
}

// VendorShare is one vendor's part of a settled order.
type VendorShare struct {
	VendorID     uuid.UUID       `json:"vendor_id"`
	CommissionID uuid.UUID       `json:"commission_id"`
	Sales        decimal.Decimal `json:"sales_amount"`
}

// Settlement reports what SettleOrder recorded.
type Settlement struct {
	OrderID        uuid.UUID     `json:"order_id"`
	SettlementDate time.Time     `json:"settlement_date"`
	Shares         []VendorShare `json:"shares"`
	AlreadySettled bool          `json:"already_settled"`
}

// CommissionView is a ledger day with the vendor's display name.
type CommissionView struct {
	ID                   uuid.UUID              `json:"id"`
	VendorID             uuid.UUID              `json:"vendor_id"`
	VendorName           string                 `json:"vendor_name"`
	SettlementDate       string                 `json:"settlement_date"`
	TotalSales           decimal.Decimal        `json:"total_sales"`
	CommissionPercentage decimal.Decimal        `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal        `json:"commission_amount"`
	PaymentStatus        enums.CommissionStatus `json:"payment_status"`
	PaidAt               *time.Time             `json:"paid_at,omitempty"`
}

// NewCommissionView renders a ledger day; the date is formatted as YYYY-MM-DD.
func NewCommissionView(row models.VendorCommission, vendorName string) CommissionView {
	return CommissionView{
		ID:                   row.ID,
		VendorID:             row.VendorID,
		VendorName:           vendorName,
		SettlementDate:       row.SettlementDate.UTC().Format(time.DateOnly),
		TotalSales:           row.TotalSales,
		CommissionPercentage: row.CommissionPercentage,
		CommissionAmount:     row.CommissionAmount,
		PaymentStatus:        row.PaymentStatus,
		PaidAt:               row.PaidAt,
	}
}

// Service settles platform commission for delivered orders.
type Service interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) (*Settlement, error)
	// SettleDelivered settles every delivered, paid order updated since the
	// given time that has not been settled yet.
	SettleDelivered(ctx context.Context, since time.Time) (int, error)
	List(ctx context.Context, filter ListFilter) ([]CommissionView, error)
	MarkPaid(ctx context.Context, id uuid.UUID, status enums.CommissionStatus) (*CommissionView, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	metrics settlementMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(tx txRunner, repo Repository, m settlementMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	return &service{tx: tx, repo: repo, metrics: m, logg: logg, now: time.Now}, nil
}

// SettlementDay normalizes t to midnight UTC.
func SettlementDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *service) SettleOrder(ctx context.Context, orderID uuid.UUID) (*Settlement, error) {
	day := SettlementDay(s.now())
	result := &Settlement{OrderID: orderID, SettlementDate: day, Shares: []VendorShare{}}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if order.OrderStatus != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, not delivered", order.OrderStatus))
		}

		items, err := repo.ActiveItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
		}
		settled, err := repo.SettledVendors(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settlement ledger")
		}
		done := make(map[uuid.UUID]bool, len(settled))
		for _, id := range settled {
			done[id] = true
		}

		shares := Apportion(order.FinalAmount, items)
		vendorIDs := make([]uuid.UUID, 0, len(shares))
		for id := range shares {
			if !done[id] {
				vendorIDs = append(vendorIDs, id)
			}
		}
		if len(vendorIDs) == 0 {
			result.AlreadySettled = true
			return nil
		}
		sort.Slice(vendorIDs, func(i, j int) bool { return vendorIDs[i].String() < vendorIDs[j].String() })

		vendors, err := repo.FindVendors(ctx, vendorIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendors")
		}
		pct := make(map[uuid.UUID]decimal.Decimal, len(vendors))
		for _, v := range vendors {
			pct[v.ID] = v.CommissionPercentage
		}

		for _, vendorID := range vendorIDs {
			sales := shares[vendorID]
			commissionID, err := s.addToDay(ctx, repo, vendorID, day, sales, pct[vendorID])
			if err != nil {
				return err
			}
			if err := repo.CreateSettlement(ctx, &models.CommissionSettlement{
				OrderID:            orderID,
				VendorID:           vendorID,
				VendorCommissionID: commissionID,
				SalesAmount:        sales,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record settlement")
			}
			result.Shares = append(result.Shares, VendorShare{VendorID: vendorID, CommissionID: commissionID, Sales: sales})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && len(result.Shares) > 0 {
		s.metrics.SettlementsRecorded(len(result.Shares))
	}
	return result, nil
}

// addToDay adds sales to the vendor's commission row for day, creating it
// when missing, and returns the row id.
func (s *service) addToDay(ctx context.Context, repo Repository, vendorID uuid.UUID, day time.Time, sales, pct decimal.Decimal) (uuid.UUID, error) {
	row, err := repo.LockDay(ctx, vendorID, day)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = &models.VendorCommission{
			VendorID:             vendorID,
			SettlementDate:       day,
			TotalSales:           sales,
			CommissionPercentage: pct,
			CommissionAmount:     commissionOf(sales, pct),
			PaymentStatus:        enums.CommissionStatusPending,
		}
		if err := repo.CreateDay(ctx, row); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor commission")
		}
		return row.ID, nil
	}
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock vendor commission")
	}

	total := row.TotalSales.Add(sales)
	updates := map[string]any{
		"total_sales":           total,
		"commission_percentage": pct,
		"commission_amount":     commissionOf(total, pct),
	}
	if err := repo.UpdateCommission(ctx, row.ID, updates); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vendor commission")
	}
	return row.ID, nil
}

func commissionOf(sales, pct decimal.Decimal) decimal.Decimal {
	return sales.Mul(pct).Div(hundred).Round(2)
}

// Apportion splits amount across vendors in proportion to their item
// subtotals. Shares are rounded to cents and the last vendor (by id) absorbs
// the rounding remainder so the shares always sum to amount.
func Apportion(amount decimal.Decimal, items []models.OrderItem) map[uuid.UUID]decimal.Decimal {
	subtotals := map[uuid.UUID]decimal.Decimal{}
	total := decimal.Zero
	for _, item := range items {
		if item.Status == enums.ItemStatusCancelled {
			continue
		}
		subtotals[item.VendorID] = subtotals[item.VendorID].Add(item.Subtotal)
		total = total.Add(item.Subtotal)
	}
	if len(subtotals) == 0 {
		return subtotals
	}

	ids := make([]uuid.UUID, 0, len(subtotals))
	for id := range subtotals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	shares := make(map[uuid.UUID]decimal.Decimal, len(ids))
	if total.IsZero() {
		shares[ids[len(ids)-1]] = amount
		for _, id := range ids[:len(ids)-1] {
			shares[id] = decimal.Zero
		}
		return shares
	}
	remaining := amount
	for i, id := range ids {
		if i == len(ids)-1 {
			shares[id] = remaining
			break
		}
		share := amount.Mul(subtotals[id]).Div(total).Round(2)
		shares[id] = share
		remaining = remaining.Sub(share)
	}
	return shares
}

func (s *service) SettleDelivered(ctx context.Context, since time.Time) (int, error) {
	ids, err := s.repo.ListUnsettled(ctx, since, sweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unsettled orders")
	}
	settled := 0
	var errs error
	for _, id := range ids {
		res, err := s.SettleOrder(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("settle order %s: %w", id, err))
			continue
		}
		if !res.AlreadySettled {
			settled++
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "failed", len(multierr.Errors(errs))), "commission sweep had failures", errs)
	}
	return settled, errs
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]CommissionView, error) {
	if filter.Date != nil {
		day := SettlementDay(*filter.Date)
		filter.Date = &day
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commissions")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]bool{}
	for _, row := range rows {
		if !seen[row.VendorID] {
			seen[row.VendorID] = true
			ids = append(ids, row.VendorID)
		}
	}
	vendors, err := s.repo.FindVendors(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendors")
	}
	names := make(map[uuid.UUID]string, len(vendors))
	for _, v := range vendors {
		names[v.ID] = v.Name
	}
	views := make([]CommissionView, len(rows))
	for i, row := range rows {
		views[i] = NewCommissionView(row, names[row.VendorID])
	}
	return views, nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID, status enums.CommissionStatus) (*CommissionView, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", status))
	}
	var out CommissionView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindCommission(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load commission")
		}
		var paidAt *time.Time
		if status == enums.CommissionStatusPaid {
			now := s.now().UTC()
			paidAt = &now
			if row.PaidAt != nil {
				paidAt = row.PaidAt
			}
		}
		if err := repo.UpdateCommission(ctx, id, map[string]any{
			"payment_status": status,
			"paid_at":        paidAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update commission")
		}
		row.PaymentStatus = status
		row.PaidAt = paidAt
		out = NewCommissionView(*row, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
