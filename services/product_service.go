package services

import (
	"context"
	"fmt"

	"account-service/models"
	"account-service/repository"

	"go.uber.org/zap"
)

type CreateProductRequest struct {
	Name       string `json:"name" binding:"required"`
	Slug       string `json:"slug" binding:"required"`
	PriceCents int    `json:"price_cents" binding:"required,min=1"`
	Currency   string `json:"currency"`
}

type ProductService struct {
	productRepo repository.ProductRepository
	catalog     *TokenCatalog
	logger      *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, catalog *TokenCatalog, logger *zap.Logger) *ProductService {
	return &ProductService{productRepo: productRepo, catalog: catalog, logger: logger}
}

func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, *ServiceError) {
	products, err := s.productRepo.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch products"}
	}
	return products, nil
}

// CreateProduct creates a token bundle. The slug must exist in the token
// catalog so every purchasable bundle has a defined grant.
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, *ServiceError) {
	if !s.catalog.Knows(req.Slug) {
		return nil, &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Slug %q has no token grant in the catalog", req.Slug)}
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	product := &models.Product{
		Name:       req.Name,
		Slug:       req.Slug,
		PriceCents: req.PriceCents,
		Currency:   currency,
		Active:     true,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", zap.String("slug", req.Slug), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create product"}
	}

	return product, nil
}
