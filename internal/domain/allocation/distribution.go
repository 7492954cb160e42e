package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// LocationPercent porcentaje solicitado para una ubicación destino.
type LocationPercent struct {
	LocationID string
	Percent    decimal.Decimal
}

// LocationAmount cantidad fija solicitada para una ubicación destino.
type LocationAmount struct {
	LocationID string
	Quantity   int64
}

// DistributedLine cantidad resultante para una ubicación.
type DistributedLine struct {
	LocationID string
	Quantity   int64
}

// DistributionResult resultado de un reparto por porcentajes.
// Remaining queda para resolución manual: el sobrante NO se auto-asigna, para
// no arriesgar una sobre-asignación silenciosa.
type DistributionResult struct {
	Lines     []DistributedLine
	Remaining int64
	// Accuracy promedio de 100 - |pctSolicitado - pctReal| sobre las
	// ubicaciones solicitadas (100 = reparto exacto).
	Accuracy decimal.Decimal
}

// DistributeByPercentage reparte totalQuantity entre ubicaciones por porcentaje.
// La suma de porcentajes debe ser ≤ 100: si la supera es error, no se trunca.
// Cada ubicación recibe floor(pct/100 * total); el truncamiento sub-asigna a
// propósito en vez de arriesgar superar el total.
func DistributeByPercentage(totalQuantity int64, percentages []LocationPercent) (*DistributionResult, error) {
	if totalQuantity <= 0 {
		return nil, &domain.ValidationError{Field: "totalQuantity", Message: "debe ser mayor que cero"}
	}
	if len(percentages) == 0 {
		return nil, &domain.ValidationError{Field: "percentages", Message: "se requiere al menos una ubicación"}
	}

	sum := decimal.Zero
	for _, p := range percentages {
		if p.Percent.LessThanOrEqual(decimal.Zero) {
			return nil, &domain.ValidationError{
				Field:   "percentages",
				Message: fmt.Sprintf("porcentaje de %s debe ser mayor que cero", p.LocationID),
			}
		}
		sum = sum.Add(p.Percent)
	}
	if sum.GreaterThan(hundred) {
		return nil, &domain.ValidationError{
			Field:   "percentages",
			Message: fmt.Sprintf("la suma de porcentajes (%s%%) supera el 100%%", sum.String()),
		}
	}

	total := decimal.NewFromInt(totalQuantity)
	result := &DistributionResult{Lines: make([]DistributedLine, 0, len(percentages))}

	var allocated int64
	accuracySum := decimal.Zero
	for _, p := range percentages {
		qty := p.Percent.Div(hundred).Mul(total).Floor().IntPart()
		result.Lines = append(result.Lines, DistributedLine{LocationID: p.LocationID, Quantity: qty})
		allocated += qty

		actualPct := decimal.NewFromInt(qty).Div(total).Mul(hundred)
		accuracySum = accuracySum.Add(hundred.Sub(p.Percent.Sub(actualPct).Abs()))
	}

	result.Remaining = totalQuantity - allocated
	result.Accuracy = accuracySum.Div(decimal.NewFromInt(int64(len(percentages)))).Round(4)
	return result, nil
}

// PlanLine asignación propuesta para una línea de compra.
type PlanLine struct {
	POItemID   string
	LocationID string
	Quantity   int64
}

// Plan propuesta de asignaciones; Feasible=false lleva el motivo.
type Plan struct {
	Lines     []PlanLine
	Remaining int64
	Feasible  bool
	Reason    string
}

// PlanInput parámetros para calcular el plan de una línea.
// Percentages aplica a PERCENTAGE (si viene vacío se reparte en partes
// iguales) y a TEMPLATE (plantilla guardada); Amounts aplica a FIXED_AMOUNT.
type PlanInput struct {
	Item        *entity.POItem
	LocationIDs []string
	Strategy    entity.AllocationStrategy
	Percentages []LocationPercent
	Amounts     []LocationAmount
}

// CalculateOptimalAllocation despacha por estrategia y produce el plan para
// una línea. MANUAL devuelve plan vacío: el caller lo completa a mano.
func CalculateOptimalAllocation(in PlanInput) (*Plan, error) {
	if in.Item == nil {
		return nil, &domain.ValidationError{Field: "item", Message: "línea de compra requerida"}
	}
	if !in.Strategy.IsValid() {
		return nil, &domain.ValidationError{Field: "strategy", Message: "estrategia desconocida: " + string(in.Strategy)}
	}

	switch in.Strategy {
	case entity.StrategyManual:
		return &Plan{Feasible: true, Remaining: in.Item.QuantityOrdered}, nil

	case entity.StrategyPercentage, entity.StrategyTemplate:
		pcts := in.Percentages
		if len(pcts) == 0 {
			pcts = equalSplit(in.LocationIDs)
		}
		dist, err := DistributeByPercentage(in.Item.QuantityOrdered, pcts)
		if err != nil {
			return nil, err
		}
		plan := &Plan{Feasible: true, Remaining: dist.Remaining}
		for _, l := range dist.Lines {
			if l.Quantity == 0 {
				continue
			}
			plan.Lines = append(plan.Lines, PlanLine{POItemID: in.Item.ID, LocationID: l.LocationID, Quantity: l.Quantity})
		}
		return plan, nil

	case entity.StrategyFixedAmount:
		var sum int64
		plan := &Plan{Feasible: true}
		for _, a := range in.Amounts {
			if a.Quantity <= 0 {
				return nil, &domain.ValidationError{
					Field:   "amounts",
					Message: fmt.Sprintf("cantidad para %s debe ser mayor que cero", a.LocationID),
				}
			}
			sum += a.Quantity
			plan.Lines = append(plan.Lines, PlanLine{POItemID: in.Item.ID, LocationID: a.LocationID, Quantity: a.Quantity})
		}
		if sum > in.Item.QuantityOrdered {
			return &Plan{
				Feasible: false,
				Reason: fmt.Sprintf("las cantidades fijas suman %d y la línea solo ordenó %d",
					sum, in.Item.QuantityOrdered),
			}, nil
		}
		plan.Remaining = in.Item.QuantityOrdered - sum
		return plan, nil
	}
	return nil, &domain.ValidationError{Field: "strategy", Message: "estrategia no soportada"}
}

// equalSplit porcentajes iguales para n ubicaciones (100/n cada una).
func equalSplit(locationIDs []string) []LocationPercent {
	if len(locationIDs) == 0 {
		return nil
	}
	share := hundred.Div(decimal.NewFromInt(int64(len(locationIDs))))
	out := make([]LocationPercent, 0, len(locationIDs))
	for _, id := range locationIDs {
		out = append(out, LocationPercent{LocationID: id, Percent: share})
	}
	return out
}

// MathResult resultado de validar una asignación contra el cupo de la línea.
type MathResult struct {
	Valid          bool
	CurrentTotal   int64
	NewTotal       int64
	OverAllocation int64 // NewTotal - QuantityOrdered cuando excede; 0 si es válido
}

// ValidateMath guarda única contra la doble asignación de inventario: suma lo
// ya asignado (sin canceladas) más la nueva cantidad y, si supera lo ordenado,
// reporta el excedente exacto. Nunca recorta en silencio.
func ValidateMath(orderedQuantity int64, existing []*entity.Allocation, newQuantity int64) MathResult {
	var current int64
	for _, a := range existing {
		if a.Status.CountsTowardTotal() {
			current += a.QuantityAllocated
		}
	}
	newTotal := current + newQuantity
	r := MathResult{CurrentTotal: current, NewTotal: newTotal}
	if newTotal > orderedQuantity {
		r.OverAllocation = newTotal - orderedQuantity
		return r
	}
	r.Valid = true
	return r
}

// UnallocatedQuantity cupo restante de una línea: max(0, ordenado - asignado).
func UnallocatedQuantity(orderedQuantity, allocatedSum int64) int64 {
	if rest := orderedQuantity - allocatedSum; rest > 0 {
		return rest
	}
	return 0
}
