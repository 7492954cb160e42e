package transfer

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

// TxRunner transacción con los repos del flujo de traslados atados. La
// auditoría y el movimiento de stock participan de la misma transacción que el
// cambio de estado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		transferRepo repository.TransferRepository,
		reservationRepo repository.ReservationRepository,
		stockRepo repository.StockLevelRepository,
		auditRepo repository.AuditLogRepository,
	) error) error
}

// VarianceEvaluator evalúa alertas al recibir con merma (puerto hacia el
// servicio de varianza; se invoca después del commit).
type VarianceEvaluator interface {
	EvaluateShrinkage(ctx context.Context, t *entity.Transfer, reasonCode, notes string) (*entity.VarianceAlert, error)
}
