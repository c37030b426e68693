package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

const orderNotFoundMessage = "order not found"

// Service defines the buyer and seller order operations.
type Service interface {
	Create(ctx context.Context, buyerID int64, req CreateOrderRequest) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, buyerID int64) ([]OrderDTO, error)
	Get(ctx context.Context, actorID, orderID int64) (*OrderDTO, error)
	ListForSeller(ctx context.Context, sellerID int64) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, actorID, orderID int64, req UpdateStatusRequest) (*OrderDTO, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

type metricsRecorder interface {
	IncCreated(paymentMethod string)
	IncTransition(from, to string)
}

type service struct {
	store   store.Store
	metrics metricsRecorder
}

// ServiceParams bundles the order service dependencies. Metrics is optional.
type ServiceParams struct {
	Store   store.Store
	Metrics metricsRecorder
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: params.Store, metrics: params.Metrics}, nil
}

// Create places an order from the submitted lines. Stock checks, price
// snapshots, item creation, stock decrement and cart clearing all happen in
// one transaction.
func (s *service) Create(ctx context.Context, buyerID int64, req CreateOrderRequest) (*OrderDTO, error) {
	if req.BuyerID != nil && *req.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders can only be placed for the authenticated buyer")
	}
	paymentMethod, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	if err := validateLines(req.Items); err != nil {
		return nil, err
	}

	var (
		order *models.Order
		items []models.OrderItem
	)
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		products, total, err := priceLines(ctx, tx, req.Items)
		if err != nil {
			return err
		}
		if !total.Equal(req.TotalAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "total amount mismatch").
				WithDetails(map[string]any{"expected": total.StringFixed(2), "received": req.TotalAmount.StringFixed(2)})
		}

		order = &models.Order{
			BuyerID:            buyerID,
			Status:             enums.OrderStatusPending,
			TotalAmount:        total,
			ShippingAddress:    address,
			County:             req.County,
			PaymentMethod:      paymentMethod,
			MpesaReceiptNumber: req.MpesaReceiptNumber,
			DeliveryNotes:      req.DeliveryNotes,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		items = make([]models.OrderItem, 0, len(req.Items))
		for i, line := range req.Items {
			product := products[i]
			item := models.OrderItem{
				OrderID:    order.ID,
				ProductID:  product.ID,
				SellerID:   product.SellerID,
				Quantity:   line.Quantity,
				UnitPrice:  product.Price,
				TotalPrice: product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if err := tx.OrderItems().Create(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order item")
			}
			if _, err := tx.Products().AdjustQuantity(ctx, product.ID, -line.Quantity); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					return insufficientStock(i, product, line.Quantity)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			items = append(items, item)
		}

		if _, err := tx.Carts().Save(ctx, buyerID, nil, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "create order")
	}

	if s.metrics != nil {
		s.metrics.IncCreated(string(paymentMethod))
	}
	return FromModel(order, items), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID int64) ([]OrderDTO, error) {
	list, err := s.store.Orders().List(ctx, store.OrderFilter{BuyerID: &buyerID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i], nil))
	}
	return out, nil
}

// Get returns the order with its lines to the buyer or to any seller with a
// product in it.
func (s *service) Get(ctx context.Context, actorID, orderID int64) (*OrderDTO, error) {
	order, items, err := loadOrder(ctx, s.store, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID && !sellsIn(items, actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
	}
	return FromModel(order, items), nil
}

// ListForSeller returns orders containing the seller's products, newest first,
// each carrying only that seller's lines.
func (s *service) ListForSeller(ctx context.Context, sellerID int64) ([]OrderDTO, error) {
	sold, err := s.store.OrderItems().ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller items")
	}

	byOrder := make(map[int64][]models.OrderItem)
	ids := make([]int64, 0)
	for _, item := range sold {
		if _, ok := byOrder[item.OrderID]; !ok {
			ids = append(ids, item.OrderID)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	list, err := s.store.Orders().List(ctx, store.OrderFilter{IDs: ids})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller orders")
	}
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i], byOrder[list[i].ID]))
	}
	return out, nil
}

// UpdateStatus applies one lifecycle transition. Sellers with a line in the
// order may advance or cancel it; the buyer may only cancel. Cancelling puts
// the ordered quantities back in stock.
func (s *service) UpdateStatus(ctx context.Context, actorID, orderID int64, req UpdateStatusRequest) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}

	var (
		previous enums.OrderStatus
		updated  *models.Order
		items    []models.OrderItem
	)
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		order, lines, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		items = lines
		previous = order.Status

		isBuyer := order.BuyerID == actorID
		isSeller := sellsIn(lines, actorID)
		switch {
		case !isBuyer && !isSeller:
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
		case !isSeller && next != enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeForbidden, "buyers may only cancel an order")
		}

		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, next).
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		updated, err = tx.Orders().UpdateStatus(ctx, orderID, order.Status, next)
		if errors.Is(err, store.ErrStaleStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed by another request").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}

		if next == enums.OrderStatusCancelled {
			return restock(ctx, tx, lines)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "update order status")
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(previous), string(next))
	}
	return FromModel(updated, items), nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[int64]struct{}, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"index": i, "product_id": line.ProductID})
		}
		if _, dup := seen[line.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "product listed more than once").
				WithDetails(map[string]any{"index": i, "product_id": line.ProductID})
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

// priceLines loads every product, checks availability and stock, and returns
// the products in line order with the order total at live prices.
func priceLines(ctx context.Context, tx store.Store, lines []LineInput) ([]*models.Product, decimal.Decimal, error) {
	products := make([]*models.Product, 0, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		product, err := tx.Products().FindByID(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, total, pkgerrors.New(pkgerrors.CodeValidation, "product does not exist").
				WithDetails(map[string]any{"index": i, "product_id": line.ProductID})
		}
		if err != nil {
			return nil, total, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !product.Available {
			return nil, total, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"index": i, "product_id": line.ProductID})
		}
		if line.Quantity > product.Quantity {
			return nil, total, insufficientStock(i, product, line.Quantity)
		}
		if line.UnitPrice != nil && !line.UnitPrice.Equal(product.Price) {
			return nil, total, pkgerrors.New(pkgerrors.CodeConflict, "price changed").
				WithDetails(map[string]any{"index": i, "product_id": product.ID, "price": product.Price.StringFixed(2)})
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		products = append(products, product)
	}
	return products, total, nil
}

func insufficientStock(index int, product *models.Product, requested int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
		WithDetails(map[string]any{"index": index, "product_id": product.ID, "requested": requested, "available": product.Quantity})
}

// ExpirePending cancels pending orders created before cutoff and returns their
// stock. Each order is expired in its own transaction, so a failure leaves the
// earlier ones expired.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	pending := enums.OrderStatusPending
	candidates, err := s.store.Orders().List(ctx, store.OrderFilter{Status: &pending})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending orders")
	}

	expired := 0
	for _, candidate := range candidates {
		if !candidate.CreatedAt.Before(cutoff) {
			continue
		}
		ok, err := s.expireOrder(ctx, candidate.ID)
		if err != nil {
			return expired, fmt.Errorf("expire order %d: %w", candidate.ID, err)
		}
		if !ok {
			continue
		}
		expired++
		if s.metrics != nil {
			s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusCancelled))
		}
	}
	return expired, nil
}

// expireOrder reports false when the order left pending before it could be cancelled.
func (s *service) expireOrder(ctx context.Context, orderID int64) (bool, error) {
	expired := false
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		order, lines, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		_, err = tx.Orders().UpdateStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if errors.Is(err, store.ErrStaleStatus) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if err := restock(ctx, tx, lines); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// restock returns ordered quantities to their products. Deleted products are skipped.
func restock(ctx context.Context, tx store.Store, lines []models.OrderItem) error {
	for _, item := range lines {
		_, err := tx.Products().AdjustQuantity(ctx, item.ProductID, item.Quantity)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock product")
		}
	}
	return nil
}

func loadOrder(ctx context.Context, st store.Store, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := st.Orders().FindByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, orderNotFoundMessage)
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	items, err := st.OrderItems().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	return order, items, nil
}

func sellsIn(items []models.OrderItem, sellerID int64) bool {
	for _, item := range items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

func asServiceError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
