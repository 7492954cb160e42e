package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Códigos de error de PostgreSQL que los adaptadores traducen al dominio.
const (
	codeUniqueViolation     = "23505" // unique_violation
	codeForeignKeyViolation = "23503" // foreign_key_violation
	codeCheckViolation      = "23514" // check_violation
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation violación de constraint único (23505): la fila ya existe.
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// isForeignKeyViolation referencia a una fila inexistente (producto, ubicación,
// línea); el dominio lo reporta como entrada inválida.
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == codeForeignKeyViolation
}

// isCheckViolation constraint CHECK del esquema (cantidades no negativas,
// on-hand que no baja de cero).
func isCheckViolation(err error) bool {
	return pgErrorCode(err) == codeCheckViolation
}
