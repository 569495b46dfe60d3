package orders

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

type ordersAPI interface {
	PlaceOrder(ctx context.Context, token string, items []storeapi.CartItem) (*storeapi.Order, error)
	Orders(ctx context.Context, token string) ([]storeapi.Order, error)
	UpdateOrder(ctx context.Context, token string, orderID int64, isPaid, isDelivered bool) error
}

type cartSource interface {
	Snapshot() []storeapi.CartItem
	Clear(ctx context.Context) error
}

type tokenSource interface {
	Token(ctx context.Context) string
}

// Service drives order placement and the paid/delivered status flow. Status
// only moves forward: unpaid to paid, paid to delivered.
type Service struct {
	api   ordersAPI
	cart  cartSource
	token tokenSource
	logg  *logger.Logger
}

type ServiceParams struct {
	API    ordersAPI
	Cart   cartSource
	Tokens tokenSource
	Logger *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, errors.New("orders api client is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart source is required")
	}
	if params.Tokens == nil {
		return nil, errors.New("token source is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		api:   params.API,
		cart:  params.Cart,
		token: params.Tokens,
		logg:  params.Logger,
	}, nil
}

// Place submits the current cart as a new order. It guards before touching
// the network: a missing session or an empty cart rejects locally. On
// success the cart is cleared; on failure both cart and orders stay as they
// were.
func (s *Service) Place(ctx context.Context) (*OrderView, error) {
	token := s.token.Token(ctx)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to place an order")
	}

	items := s.cart.Snapshot()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order, err := s.api.PlaceOrder(ctx, token, items)
	if err != nil {
		return nil, err
	}

	if clearErr := s.cart.Clear(ctx); clearErr != nil {
		s.logg.Error(ctx, "clearing cart after order placement", clearErr)
	}

	view := toView(*order)
	s.logg.Info(s.logg.WithOrderID(ctx, view.ID), "order placed")
	return &view, nil
}

// List fetches the user's orders and groups them into status buckets.
func (s *Service) List(ctx context.Context) (*OrderList, error) {
	token := s.token.Token(ctx)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}

	raw, err := s.api.Orders(ctx, token)
	if err != nil {
		return nil, err
	}

	list := &OrderList{}
	for _, order := range raw {
		view := toView(order)
		switch view.Bucket {
		case enums.OrderBucketDelivered:
			list.Delivered = append(list.Delivered, view)
		case enums.OrderBucketPaid:
			list.Paid = append(list.Paid, view)
		default:
			list.New = append(list.New, view)
		}
	}
	return list, nil
}

// Pay marks an unpaid order as paid. Paying an already-paid or delivered
// order is a state conflict.
func (s *Service) Pay(ctx context.Context, orderID int64) error {
	token, order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
	}
	if order.IsPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	if err := s.api.UpdateOrder(ctx, token, orderID, true, false); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "order marked paid")
	return nil
}

// MarkDelivered marks a paid order as delivered. Delivery cannot skip the
// paid step or be applied twice.
func (s *Service) MarkDelivered(ctx context.Context, orderID int64) error {
	token, order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsDelivered {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already delivered")
	}
	if !order.IsPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order must be paid before delivery")
	}

	if err := s.api.UpdateOrder(ctx, token, orderID, true, true); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "order marked delivered")
	return nil
}

func (s *Service) findOrder(ctx context.Context, orderID int64) (string, *OrderView, error) {
	token := s.token.Token(ctx)
	if token == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to manage orders")
	}

	raw, err := s.api.Orders(ctx, token)
	if err != nil {
		return "", nil, err
	}
	for _, order := range raw {
		if order.ID == orderID {
			view := toView(order)
			return token, &view, nil
		}
	}
	return "", nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
