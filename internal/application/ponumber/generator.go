package ponumber

import (
	"context"
	"fmt"

	"github.com/jhoicas/Compras-api/internal/domain/repository"
	"github.com/jhoicas/Compras-api/pkg/clock"
)

// Generator produce números de orden legibles, únicos por empresa, con el
// formato <prefijo>-<año>-<consecutivo con ceros> (ej. PO-2026-000042).
type Generator struct {
	seqRepo repository.POSequenceRepository
	clk     clock.Clock
	prefix  string
}

// NewGenerator construye el generador. prefix vacío usa "PO".
func NewGenerator(seqRepo repository.POSequenceRepository, clk clock.Clock, prefix string) *Generator {
	if prefix == "" {
		prefix = "PO"
	}
	return &Generator{seqRepo: seqRepo, clk: clk, prefix: prefix}
}

// Generate devuelve el siguiente número para la empresa. El consecutivo es
// atómico en el repositorio, así que el número es único por construcción.
func (g *Generator) Generate(ctx context.Context, companyID string) (string, error) {
	year := g.clk.Now().Year()
	seq, err := g.seqRepo.Next(ctx, companyID, year)
	if err != nil {
		return "", fmt.Errorf("siguiente consecutivo: %w", err)
	}
	return fmt.Sprintf("%s-%d-%06d", g.prefix, year, seq), nil
}

// IsUnique verifica que el candidato no exista ya en la empresa.
func (g *Generator) IsUnique(ctx context.Context, candidate, companyID string) (bool, error) {
	exists, err := g.seqRepo.Exists(ctx, candidate, companyID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
