package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTraduccionDeCodigosPostgres(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "inventory_reservations_claim_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "allocations_po_item_id_fkey"}
	check := &pgconn.PgError{Code: "23514", ConstraintName: "stock_levels_on_hand_check"}

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(fk))

	assert.True(t, isForeignKeyViolation(fk))
	assert.False(t, isForeignKeyViolation(check))

	assert.True(t, isCheckViolation(check))
	assert.False(t, isCheckViolation(unique))
}

func TestTraduccionDeCodigosPostgres_ErroresEnvueltos(t *testing.T) {
	// Los adaptadores envuelven con %w; la detección atraviesa la cadena
	wrapped := fmt.Errorf("insert reservation: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, isUniqueViolation(wrapped))

	assert.False(t, isUniqueViolation(errors.New("23505 en el texto no es un PgError")),
		"solo cuenta el código del PgError, no el texto del mensaje")
}
