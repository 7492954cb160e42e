package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

// VarianceAlertRepository puerto de persistencia para alertas de merma.
type VarianceAlertRepository interface {
	Create(ctx context.Context, a *entity.VarianceAlert) error
	GetByID(ctx context.Context, id, companyID string) (*entity.VarianceAlert, error)
	// Acknowledge única mutación permitida sobre una alerta; cero filas
	// afectadas (ya reconocida o inexistente) => domain.ErrNotFound.
	Acknowledge(ctx context.Context, id, companyID, by string, at time.Time) error
	// CountRecent eventos de merma para producto+ubicación desde una fecha,
	// usado por la detección de patrones repetidos.
	CountRecent(ctx context.Context, companyID, productID, locationID string, since time.Time) (int64, error)
	ListOpen(ctx context.Context, companyID string, limit, offset int) ([]*entity.VarianceAlert, error)
	// Summarize agrega mermas por producto+ubicación en un rango.
	Summarize(ctx context.Context, companyID string, from, to time.Time) ([]*entity.VarianceSummary, error)
}

// VarianceReasonCodeRepository códigos de razón personalizados por empresa.
type VarianceReasonCodeRepository interface {
	Create(ctx context.Context, c *entity.VarianceReasonCode) error
	ListByCompany(ctx context.Context, companyID string) ([]*entity.VarianceReasonCode, error)
}
