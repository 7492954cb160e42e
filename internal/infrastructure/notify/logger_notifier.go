package notify

import (
	"context"

	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

var _ ports.Notifier = (*LoggerNotifier)(nil)

// LoggerNotifier sink de notificaciones que escribe al log estructurado.
// Suficiente para el core: la entrega real (correo, push) vive fuera y se
// enchufa por el mismo puerto.
type LoggerNotifier struct {
	log *logger.Logger
}

// NewLoggerNotifier construye el sink.
func NewLoggerNotifier(log *logger.Logger) *LoggerNotifier {
	return &LoggerNotifier{log: log}
}

// Notify registra el evento; nunca devuelve error.
func (n *LoggerNotifier) Notify(ctx context.Context, recipient string, event ports.Event) error {
	n.log.Info().
		Str("recipient", recipient).
		Str("kind", event.Kind).
		Str("company_id", event.CompanyID).
		Str("subject_id", event.SubjectID).
		Msg(event.Message)
	return nil
}
