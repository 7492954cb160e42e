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

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo consulta de usuarios sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// GetByID obtiene un usuario bajo (id, companyID).
func (r *UserRepo) GetByID(ctx context.Context, id, companyID string) (*entity.User, error) {
	query := `
		SELECT id, company_id, email, name, role, COALESCE(location_id, ''), status, created_at, updated_at
		FROM users WHERE id = $1 AND company_id = $2`
	var u entity.User
	err := r.q.QueryRow(ctx, query, id, companyID).Scan(
		&u.ID, &u.CompanyID, &u.Email, &u.Name, &u.Role, &u.LocationID, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
