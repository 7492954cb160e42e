package repository

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// UserRepository consulta de usuarios para los chequeos de acceso.
// El core solo necesita (userID, companyID) -> {rol, ubicación}.
type UserRepository interface {
	GetByID(ctx context.Context, id, companyID string) (*entity.User, error)
}
