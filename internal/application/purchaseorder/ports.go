package purchaseorder

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. La escritura de auditoría participa de la
// misma transacción que el cambio de estado: o se confirman juntas o ninguna.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		poRepo repository.PurchaseOrderRepository,
		itemRepo repository.POItemRepository,
		priceRepo repository.POPriceHistoryRepository,
		auditRepo repository.AuditLogRepository,
	) error) error
}

// PONumberGenerator genera números de orden únicos por empresa.
type PONumberGenerator interface {
	Generate(ctx context.Context, companyID string) (string, error)
	IsUnique(ctx context.Context, candidate, companyID string) (bool, error)
}
