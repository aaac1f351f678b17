package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/internal/catalog"
	"github.com/angelmondragon/fastbag-backend/internal/coupons"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
	"github.com/angelmondragon/fastbag-backend/pkg/gateway"
	"github.com/angelmondragon/fastbag-backend/pkg/geo"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, tx *gorm.DB, input coupons.EvaluateInput) (*coupons.Evaluation, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, couponID, userID, checkoutID uuid.UUID) error
}

type stockDeductor interface {
	Deduct(ctx context.Context, tx *gorm.DB, sel catalog.Selector, qty int) error
}

type chargeQuoter interface {
	QuoteCharge(ctx context.Context, distanceKm float64, at time.Time) (decimal.Decimal, error)
}

type paymentGateway interface {
	CreateRemoteOrder(ctx context.Context, input gateway.RemoteOrderInput) (*gateway.RemoteOrder, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderMetrics interface {
	OrderPlaced(paymentMethod string)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

// Input captures the buyer's choices for one checkout. A nil VendorID checks
// out the whole cart; a nil DeliveryCharge asks for a quoted one.
type Input struct {
	VendorID       *uuid.UUID
	AddressID      uuid.UUID
	PaymentMethod  enums.PaymentMethod
	CouponCode     string
	DeliveryCharge *decimal.Decimal
	ContactNumber  string
}

// Result is the committed checkout. PaymentError is set when an online order
// was created but the gateway order could not be opened.
type Result struct {
	Checkout     *models.Checkout
	Order        *models.Order
	Payment      *gateway.RemoteOrder
	PaymentError string
}

type Option func(*service)

func WithChargeQuoter(q chargeQuoter) Option {
	return func(s *service) { s.quoter = q }
}

func WithGateway(g paymentGateway) Option {
	return func(s *service) { s.gateway = g }
}

func WithMetrics(m orderMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *service) { s.logg = l }
}

func WithPinLength(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.pinLength = n
		}
	}
}

type service struct {
	tx        txRunner
	repo      Repository
	cartRepo  cart.Repository
	coupons   couponEvaluator
	stock     stockDeductor
	outbox    outboxPublisher
	quoter    chargeQuoter
	gateway   paymentGateway
	metrics   orderMetrics
	logg      *logger.Logger
	pinLength int
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.Repository,
	couponSvc couponEvaluator,
	stock stockDeductor,
	publisher outboxPublisher,
	opts ...Option,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock deductor required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	s := &service{
		tx:        tx,
		repo:      repo,
		cartRepo:  cartRepo,
		coupons:   couponSvc,
		stock:     stock,
		outbox:    publisher,
		pinLength: defaultPinLength,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address_id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.DeliveryCharge != nil && input.DeliveryCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_charge must not be negative")
	}

	now := s.now().UTC()
	result := &Result{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		address, err := repo.FindAddress(ctx, userID, input.AddressID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
		}

		lines, err := cartRepo.LockForCheckout(ctx, userID, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.Reject(pkgerrors.ReasonCartEmpty, "Your cart is empty")
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.Subtotal())
		}
		vendorIDs := distinctVendors(lines)

		discount := decimal.Zero
		var coupon *models.Coupon
		if code := strings.TrimSpace(input.CouponCode); code != "" {
			eval, err := s.coupons.Evaluate(ctx, tx, coupons.EvaluateInput{
				Code:     code,
				Amount:   total,
				UserID:   userID,
				VendorID: couponVendor(input.VendorID, vendorIDs),
			})
			if err != nil {
				return err
			}
			coupon = eval.Coupon
			discount = eval.Discount
		}

		charge, err := s.deliveryCharge(ctx, repo, input, vendorIDs, address, now)
		if err != nil {
			return err
		}

		final := total.Sub(discount).Add(charge)
		if final.IsNegative() {
			final = decimal.Zero
		}

		orderRef, err := newOrderRef(now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order id")
		}
		pin, err := newDeliveryPin(s.pinLength)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery pin")
		}

		contact := strings.TrimSpace(input.ContactNumber)
		if contact == "" {
			contact = address.ContactNumber
		}

		checkout := &models.Checkout{
			OrderID:         orderRef,
			UserID:          userID,
			TotalAmount:     total,
			DiscountAmount:  discount,
			DeliveryCharge:  charge,
			FinalAmount:     final,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			CouponDiscount:  discount,
			AddressID:       address.ID,
			ShippingAddress: address.Snapshot(),
			ContactNumber:   contact,
			Items:           checkoutItems(lines),
		}
		if coupon != nil {
			checkout.CouponID = &coupon.ID
			checkout.CouponCode = &coupon.Code
		}
		if err := repo.CreateCheckout(ctx, checkout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create checkout")
		}

		for _, line := range lockOrder(lines) {
			if !line.ProductType.TracksStock() {
				continue
			}
			if err := s.stock.Deduct(ctx, tx, selectorFor(line), line.Quantity); err != nil {
				return err
			}
		}

		order := &models.Order{
			OrderID:         orderRef,
			CheckoutID:      checkout.ID,
			UserID:          userID,
			TotalAmount:     total,
			DiscountAmount:  discount,
			DeliveryCharge:  charge,
			FinalAmount:     final,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			OrderStatus:     enums.OrderStatusPending,
			ShippingAddress: checkout.ShippingAddress,
			Latitude:        address.Latitude,
			Longitude:       address.Longitude,
			ContactNumber:   contact,
			DeliveryPin:     pin,
			Items:           orderItems(lines),
		}
		if coupon != nil {
			order.UsedCoupon = &coupon.Code
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if coupon != nil {
			if err := s.coupons.RecordUsage(ctx, tx, coupon.ID, userID, checkout.ID); err != nil {
				return err
			}
		}

		ids := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			ids[i] = line.ID
		}
		if err := cartRepo.DeleteByIDs(ctx, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer},
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				OrderRef:      orderRef,
				UserID:        userID,
				VendorIDs:     vendorIDs,
				FinalAmount:   final,
				PaymentMethod: input.PaymentMethod,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed")
		}

		result.Checkout = checkout
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrderPlaced(string(input.PaymentMethod))
	}
	if input.PaymentMethod == enums.PaymentMethodOnline {
		s.openRemoteOrder(ctx, result)
	}
	return result, nil
}

// openRemoteOrder runs after commit. A failure leaves the order pending and
// unpaid; the client may retry payment or let the expiry sweep release it.
func (s *service) openRemoteOrder(ctx context.Context, result *Result) {
	if s.gateway == nil {
		result.PaymentError = "payment gateway not configured"
		return
	}
	checkout := result.Checkout
	remote, err := s.gateway.CreateRemoteOrder(ctx, gateway.RemoteOrderInput{
		Receipt: checkout.OrderID,
		Amount:  checkout.FinalAmount,
		Notes:   map[string]string{"order_id": checkout.OrderID},
	})
	if err == nil {
		err = s.repo.SetGatewayOrderRef(ctx, checkout.ID, remote.Ref)
	}
	if err != nil {
		result.PaymentError = err.Error()
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, checkout.OrderID)
			s.logg.Error(logCtx, "open remote payment order", err)
		}
		return
	}
	ref := remote.Ref
	checkout.GatewayOrderRef = &ref
	result.Payment = remote
}

// deliveryCharge returns the explicit charge when given. Otherwise a single
// vendor checkout is quoted by distance from the vendor to the drop address.
func (s *service) deliveryCharge(ctx context.Context, repo Repository, input Input, vendorIDs []uuid.UUID, address *models.Address, now time.Time) (decimal.Decimal, error) {
	if input.DeliveryCharge != nil {
		return input.DeliveryCharge.Round(2), nil
	}
	if s.quoter == nil || len(vendorIDs) != 1 || !address.HasCoordinates() {
		return decimal.Zero, nil
	}
	vendor, err := repo.FindVendor(ctx, vendorIDs[0])
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
	}
	from, ok := geo.PointFrom(vendor.Latitude, vendor.Longitude)
	if !ok {
		return decimal.Zero, nil
	}
	to, _ := geo.PointFrom(address.Latitude, address.Longitude)
	charge, err := s.quoter.QuoteCharge(ctx, geo.DistanceKm(from, to), now)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return charge, nil
}

func couponVendor(requested *uuid.UUID, vendorIDs []uuid.UUID) *uuid.UUID {
	if requested != nil {
		return requested
	}
	if len(vendorIDs) == 1 {
		id := vendorIDs[0]
		return &id
	}
	return nil
}

func distinctVendors(lines []models.CartLine) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	out := make([]uuid.UUID, 0, 1)
	for _, line := range lines {
		if !seen[line.VendorID] {
			seen[line.VendorID] = true
			out = append(out, line.VendorID)
		}
	}
	return out
}

// lockOrder sorts lines by the stock row they touch so concurrent checkouts
// acquire product locks in the same order.
func lockOrder(lines []models.CartLine) []models.CartLine {
	sorted := append([]models.CartLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ProductType != b.ProductType {
			return a.ProductType < b.ProductType
		}
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		if !strings.EqualFold(a.Color, b.Color) {
			return strings.ToLower(a.Color) < strings.ToLower(b.Color)
		}
		if !strings.EqualFold(a.Size, b.Size) {
			return strings.ToLower(a.Size) < strings.ToLower(b.Size)
		}
		return strings.ToLower(a.Variant) < strings.ToLower(b.Variant)
	})
	return sorted
}

func selectorFor(line models.CartLine) catalog.Selector {
	return catalog.Selector{
		ProductType: line.ProductType,
		ProductID:   line.ProductID,
		Color:       line.Color,
		Size:        line.Size,
		Variant:     line.Variant,
	}
}

func checkoutItems(lines []models.CartLine) []models.CheckoutItem {
	items := make([]models.CheckoutItem, len(lines))
	for i, line := range lines {
		items[i] = models.CheckoutItem{
			VendorID:    line.VendorID,
			ProductType: line.ProductType,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Color:       line.Color,
			Size:        line.Size,
			Variant:     line.Variant,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
			Subtotal:    line.Subtotal(),
		}
	}
	return items
}

func orderItems(lines []models.CartLine) []models.OrderItem {
	items := make([]models.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = models.OrderItem{
			VendorID:     line.VendorID,
			ProductType:  line.ProductType,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			ImageURL:     line.ImageURL,
			Color:        line.Color,
			Size:         line.Size,
			Variant:      line.Variant,
			Quantity:     line.Quantity,
			PricePerUnit: line.UnitPrice,
			Subtotal:     line.Subtotal(),
			Status:       enums.ItemStatusPending,
		}
	}
	return items
}
