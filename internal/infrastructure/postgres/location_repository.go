package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de ubicaciones.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	query := `
		INSERT INTO locations (id, company_id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, l.ID, l.CompanyID, l.Name, l.Address, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// GetByID obtiene una ubicación bajo (id, companyID).
func (r *LocationRepo) GetByID(ctx context.Context, id, companyID string) (*entity.Location, error) {
	query := `
		SELECT id, company_id, name, address, created_at, updated_at
		FROM locations WHERE id = $1 AND company_id = $2`
	var l entity.Location
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&l.ID, &l.CompanyID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

// ListByCompany ubicaciones de la empresa con paginación.
func (r *LocationRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Location, error) {
	query := `
		SELECT id, company_id, name, address, created_at, updated_at
		FROM locations WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo existencias físicas por producto+ubicación.
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador de existencias.
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// Get obtiene las existencias; sin fila equivale a cero unidades.
func (r *StockLevelRepo) Get(ctx context.Context, companyID, productID, locationID string) (*entity.StockLevel, error) {
	query := `
		SELECT product_id, location_id, company_id, on_hand, updated_at
		FROM stock_levels WHERE company_id = $1 AND product_id = $2 AND location_id = $3`
	var s entity.StockLevel
	err := r.q.QueryRow(ctx, query, companyID, productID, locationID).Scan(
		&s.ProductID, &s.LocationID, &s.CompanyID, &s.OnHand, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockLevel{ProductID: productID, LocationID: locationID, CompanyID: companyID}, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return &s, nil
}

// Adjust suma delta al on-hand de forma atómica (upsert). El CHECK del esquema
// impide que el on-hand baje de cero; ese rechazo se reporta como entrada
// inválida, no como error de infraestructura.
func (r *StockLevelRepo) Adjust(ctx context.Context, companyID, productID, locationID string, delta int64) error {
	query := `
		INSERT INTO stock_levels (company_id, product_id, location_id, on_hand, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (company_id, product_id, location_id)
		DO UPDATE SET on_hand = stock_levels.on_hand + $4, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, companyID, productID, locationID, delta); err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("adjust stock level: el on-hand no puede quedar negativo: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("adjust stock level: %w", err)
	}
	return nil
}
