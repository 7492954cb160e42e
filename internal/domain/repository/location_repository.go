package repository

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// LocationRepository puerto de persistencia para ubicaciones (bodegas).
type LocationRepository interface {
	Create(ctx context.Context, l *entity.Location) error
	GetByID(ctx context.Context, id, companyID string) (*entity.Location, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Location, error)
}

// StockLevelRepository existencias físicas por producto+ubicación.
type StockLevelRepository interface {
	Get(ctx context.Context, companyID, productID, locationID string) (*entity.StockLevel, error)
	// Adjust suma delta (puede ser negativo) al on-hand de forma atómica.
	Adjust(ctx context.Context, companyID, productID, locationID string, delta int64) error
}
