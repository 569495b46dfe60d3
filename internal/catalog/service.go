package catalog

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

type catalogAPI interface {
	Categories(ctx context.Context) ([]string, error)
	ProductsByCategory(ctx context.Context, category string) ([]storeapi.Product, error)
	Product(ctx context.Context, id int64) (*storeapi.Product, error)
}

// Service exposes read-only catalog browsing. It holds no state of its own;
// every call goes straight to the catalog API.
type Service struct {
	api  catalogAPI
	logg *logger.Logger
}

func NewService(api catalogAPI, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("catalog api client is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{api: api, logg: logg}, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.api.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]storeapi.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}

	products, err := s.api.ProductsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "category", category), "catalog category fetched")
	return products, nil
}

func (s *Service) Product(ctx context.Context, id int64) (*storeapi.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	product, err := s.api.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return product, nil
}
