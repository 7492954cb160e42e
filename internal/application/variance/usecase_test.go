package variance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/application/variance"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/infrastructure/notify"
	"github.com/jhoicas/Compras-api/pkg/clock"
	"github.com/jhoicas/Compras-api/pkg/logger"
)

// ── dobles en memoria ─────────────────────────────────────────────────────────

type memAlertRepo struct {
	mu     sync.Mutex
	alerts []*entity.VarianceAlert
}

func (m *memAlertRepo) Create(_ context.Context, a *entity.VarianceAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.alerts = append(m.alerts, &cp)
	return nil
}

func (m *memAlertRepo) GetByID(_ context.Context, id, companyID string) (*entity.VarianceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id && a.CompanyID == companyID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAlertRepo) Acknowledge(_ context.Context, id, companyID, by string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id && a.CompanyID == companyID && a.AcknowledgedAt == nil {
			a.AcknowledgedBy = &by
			a.AcknowledgedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memAlertRepo) CountRecent(_ context.Context, companyID, productID, locationID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.alerts {
		if a.CompanyID == companyID && a.ProductID == productID && a.LocationID == locationID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memAlertRepo) ListOpen(_ context.Context, companyID string, _, _ int) ([]*entity.VarianceAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.VarianceAlert
	for _, a := range m.alerts {
		if a.CompanyID == companyID && a.AcknowledgedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlertRepo) Summarize(_ context.Context, companyID string, from, to time.Time) ([]*entity.VarianceSummary, error) {
	return nil, nil
}

type memReasonRepo struct {
	codes []*entity.VarianceReasonCode
}

func (m *memReasonRepo) Create(_ context.Context, c *entity.VarianceReasonCode) error {
	for _, ex := range m.codes {
		if ex.CompanyID == c.CompanyID && ex.Code == c.Code {
			return domain.ErrDuplicate
		}
	}
	m.codes = append(m.codes, c)
	return nil
}

func (m *memReasonRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.VarianceReasonCode, error) {
	var out []*entity.VarianceReasonCode
	for _, c := range m.codes {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

type captureNotifier struct {
	events []ports.Event
}

func (n *captureNotifier) Notify(_ context.Context, _ string, event ports.Event) error {
	n.events = append(n.events, event)
	return nil
}

// ── fixture ───────────────────────────────────────────────────────────────────

type varianceFixture struct {
	svc      *variance.Service
	alerts   *memAlertRepo
	reasons  *memReasonRepo
	notifier *captureNotifier
	clk      *clock.Fixed
}

func newVarianceFixture() *varianceFixture {
	alerts := &memAlertRepo{}
	reasons := &memReasonRepo{}
	notifier := &captureNotifier{}
	clk := clock.NewFixed(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	svc := variance.NewService(alerts, reasons, notifier, clk,
		clock.NewSequentialIDs("alert"), logger.Nop())
	return &varianceFixture{svc: svc, alerts: alerts, reasons: reasons, notifier: notifier, clk: clk}
}

func mermaTransfer(shipped, received int64) *entity.Transfer {
	return &entity.Transfer{
		ID:               "tr-1",
		CompanyID:        "company-1",
		ProductID:        "prod-1",
		SourceLocationID: "loc-1",
		QuantityShipped:  shipped,
		QuantityReceived: received,
		Status:           entity.TransferStatusReceived,
		RequestedBy:      "user-1",
	}
}

// ── ClassifySeverity ──────────────────────────────────────────────────────────

func TestClassifySeverity_Umbrales(t *testing.T) {
	casos := []struct {
		nombre            string
		shipped, variance int64
		esperada          entity.VarianceSeverity
	}{
		{"25 por ciento es CRITICAL", 100, 25, entity.SeverityCritical},
		{"40 por ciento es CRITICAL", 100, 40, entity.SeverityCritical},
		{"10 por ciento es HIGH", 100, 10, entity.SeverityHigh},
		{"24 por ciento es HIGH", 100, 24, entity.SeverityHigh},
		{"5 por ciento es MEDIUM", 100, 5, entity.SeverityMedium},
		{"9 por ciento es MEDIUM", 100, 9, entity.SeverityMedium},
		{"4 por ciento es LOW", 100, 4, entity.SeverityLow},
		{"50 unidades es HIGH aunque el porcentaje sea bajo", 5000, 50, entity.SeverityHigh},
		{"49 unidades con porcentaje bajo es LOW", 5000, 49, entity.SeverityLow},
		{"sin merma es LOW", 100, 0, entity.SeverityLow},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			assert.Equal(t, c.esperada, variance.ClassifySeverity(c.shipped, c.variance))
		})
	}
}

// ── EvaluateShrinkage ─────────────────────────────────────────────────────────

func TestEvaluateShrinkage_CreaAlertaConSeveridad(t *testing.T) {
	f := newVarianceFixture()

	alert, err := f.svc.EvaluateShrinkage(context.Background(), mermaTransfer(100, 94), entity.ReasonDamage, "caja golpeada")
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, int64(6), alert.VarianceUnits)
	assert.InDelta(t, 6.0, alert.VariancePercent, 0.001)
	assert.Equal(t, entity.SeverityMedium, alert.Severity)
	assert.Equal(t, entity.ReasonDamage, alert.ReasonCode)
	assert.Equal(t, "caja golpeada", alert.Notes)
	assert.Nil(t, alert.AcknowledgedAt)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "variance.alert", f.notifier.events[0].Kind)
}

func TestEvaluateShrinkage_SinMermaNoGeneraAlerta(t *testing.T) {
	f := newVarianceFixture()

	alert, err := f.svc.EvaluateShrinkage(context.Background(), mermaTransfer(100, 100), "", "")
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, f.alerts.alerts)
}

func TestEvaluateShrinkage_RazonDesconocida(t *testing.T) {
	f := newVarianceFixture()

	_, err := f.svc.EvaluateShrinkage(context.Background(), mermaTransfer(100, 90), "GREMLINS", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, f.alerts.alerts)
}

func TestEvaluateShrinkage_RazonPersonalizadaDeLaEmpresa(t *testing.T) {
	f := newVarianceFixture()
	_, err := f.svc.AddReasonCode(context.Background(), "company-1", "user-1", "TRANSPORTE_FRIO", "pérdida en cadena de frío")
	require.NoError(t, err)

	alert, err := f.svc.EvaluateShrinkage(context.Background(), mermaTransfer(100, 90), "TRANSPORTE_FRIO", "")
	require.NoError(t, err)
	assert.Equal(t, "TRANSPORTE_FRIO", alert.ReasonCode)
}

func TestEvaluateShrinkage_PatronRepetidoEscalaUnNivel(t *testing.T) {
	f := newVarianceFixture()
	ctx := context.Background()

	// Dos mermas previas del mismo producto+ubicación dentro de la ventana
	_, err := f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)
	f.clk.Advance(24 * time.Hour)
	_, err = f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)

	// La tercera escala: MEDIUM pasa a HIGH y las notas registran el patrón
	f.clk.Advance(24 * time.Hour)
	alert, err := f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)

	assert.Equal(t, entity.SeverityHigh, alert.Severity,
		"tres mermas en 30 días suben la severidad un nivel")
	assert.Contains(t, alert.Notes, "patrón repetido")
}

func TestEvaluateShrinkage_EventosViejosFueraDeLaVentana(t *testing.T) {
	f := newVarianceFixture()
	ctx := context.Background()

	_, err := f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)
	_, err = f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)

	// 31 días después los dos eventos anteriores ya no cuentan para el patrón
	f.clk.Advance(31 * 24 * time.Hour)
	alert, err := f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 94), "", "")
	require.NoError(t, err)
	assert.Equal(t, entity.SeverityMedium, alert.Severity)
	assert.NotContains(t, alert.Notes, "patrón repetido")
}

// ── Acknowledge ───────────────────────────────────────────────────────────────

func TestAcknowledge_UnicaMutacionPermitida(t *testing.T) {
	f := newVarianceFixture()
	ctx := context.Background()

	alert, err := f.svc.EvaluateShrinkage(ctx, mermaTransfer(100, 90), "", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Acknowledge(ctx, "company-1", alert.ID, "manager-1"))

	stored, err := f.alerts.GetByID(ctx, alert.ID, "company-1")
	require.NoError(t, err)
	require.NotNil(t, stored.AcknowledgedBy)
	assert.Equal(t, "manager-1", *stored.AcknowledgedBy)

	// Reconocer dos veces se reporta como inexistente
	err = f.svc.Acknowledge(ctx, "company-1", alert.ID, "manager-2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ── Códigos de razón ──────────────────────────────────────────────────────────

func TestAddReasonCode_RechazaLaTaxonomiaFija(t *testing.T) {
	f := newVarianceFixture()

	_, err := f.svc.AddReasonCode(context.Background(), "company-1", "user-1", entity.ReasonDamage, "duplicado")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAddReasonCode_DuplicadoPorEmpresa(t *testing.T) {
	f := newVarianceFixture()
	ctx := context.Background()

	_, err := f.svc.AddReasonCode(ctx, "company-1", "user-1", "TRANSPORTE_FRIO", "")
	require.NoError(t, err)
	_, err = f.svc.AddReasonCode(ctx, "company-1", "user-1", "TRANSPORTE_FRIO", "")
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestIsValidReason_TaxonomiaFija(t *testing.T) {
	f := newVarianceFixture()
	ctx := context.Background()

	for _, code := range entity.BuiltinReasonCodes() {
		ok, err := f.svc.IsValidReason(ctx, "company-1", code)
		require.NoError(t, err)
		assert.True(t, ok, "código fijo %s debe ser válido", code)
	}
	ok, err := f.svc.IsValidReason(ctx, "company-1", "INVENTADO")
	require.NoError(t, err)
	assert.False(t, ok)
}

// El sink de log es el notificador por defecto del worker; aquí solo se
// verifica que cumple el contrato sin fallar la evaluación.
func TestEvaluateShrinkage_ConNotificadorDeLog(t *testing.T) {
	f := newVarianceFixture()
	svc := variance.NewService(f.alerts, f.reasons,
		notify.NewLoggerNotifier(logger.Nop()), f.clk,
		clock.NewSequentialIDs("alert"), logger.Nop())

	alert, err := svc.EvaluateShrinkage(context.Background(), mermaTransfer(100, 90), "", "")
	require.NoError(t, err)
	assert.NotNil(t, alert)
}
