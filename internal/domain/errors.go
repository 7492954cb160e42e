package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")
	// ErrConcurrency el update condicional no afectó filas (la versión cambió):
	// el caller debe recargar y reintentar, nunca asumir éxito.
	ErrConcurrency = errors.New("conflicto de concurrencia: recargar y reintentar")
)

// ValidationError entrada malformada o incompleta. No se persiste ni se
// reintenta automáticamente.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is permite errors.Is(err, domain.ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// StateTransitionError transición ilegal según la tabla de estados.
// Lleva la lista de transiciones permitidas para reportarla textual al caller.
type StateTransitionError struct {
	EntityKind string
	From       string
	To         string
	Allowed    []string
}

func (e *StateTransitionError) Error() string {
	allowed := "ninguna (estado terminal)"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("transición inválida de %s: %s → %s (permitidas: %s)",
		e.EntityKind, e.From, e.To, allowed)
}

// Violation una regla de negocio violada, con campo y detalle.
type Violation struct {
	Code    string // BUSINESS_RULE, OVER_ALLOCATION, ACCESS, ...
	Field   string
	Message string
}

// ConstraintViolationError agrupa TODAS las reglas violadas por una operación,
// no solo la primera. El caller las muestra completas.
type ConstraintViolationError struct {
	Violations []Violation
}

func (e *ConstraintViolationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("[%s] %s", v.Code, v.Message))
	}
	return "restricciones violadas: " + strings.Join(msgs, "; ")
}

// Add acumula una violación.
func (e *ConstraintViolationError) Add(code, field, message string) {
	e.Violations = append(e.Violations, Violation{Code: code, Field: field, Message: message})
}

// HasAny indica si hay al menos una violación acumulada.
func (e *ConstraintViolationError) HasAny() bool { return len(e.Violations) > 0 }
