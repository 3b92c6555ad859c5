package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

// CatalogService covers the admin and browsing side of the product catalog.
type CatalogService struct {
	productRepo repository.ProductRepository
	logger      *log.Entry
}

func NewCatalogService(productRepo repository.ProductRepository, logger *log.Entry) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, productID string) (*domain.Product, error) {
	pid, err := parseID(productID)
	if err != nil {
		return nil, err
	}
	return s.productRepo.Get(ctx, pid)
}

func (s *CatalogService) Create(ctx context.Context, product domain.Product) (string, error) {
	if err := product.Validate(); err != nil {
		return "", err
	}

	id, err := s.productRepo.Insert(ctx, product)
	if err != nil {
		return "", err
	}

	s.logger.WithField("product_id", id.Hex()).Info("product created")
	return id.Hex(), nil
}

func (s *CatalogService) Update(ctx context.Context, productID string, product domain.Product) error {
	pid, err := parseID(productID)
	if err != nil {
		return err
	}
	if err := product.Validate(); err != nil {
		return err
	}

	return s.productRepo.Update(ctx, pid, product)
}

func (s *CatalogService) Delete(ctx context.Context, productID string) error {
	pid, err := parseID(productID)
	if err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, pid)
}
