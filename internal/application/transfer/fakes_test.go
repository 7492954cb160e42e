package transfer_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Compras-api/internal/application/ports"
	"github.com/jhoicas/Compras-api/internal/domain"
	"github.com/jhoicas/Compras-api/internal/domain/entity"
	"github.com/jhoicas/Compras-api/internal/domain/repository"
)

// Dobles en memoria con la misma semántica que los adaptadores de postgres:
// scope por empresa, unicidad de reserva por (producto, ubicación, traslado),
// compare-and-swap por versión y liberación idempotente.

type memTransferRepo struct {
	mu        sync.Mutex
	transfers map[string]*entity.Transfer
	// reservas del mismo fixture, para excluir del tránsito los despachos que
	// ya cubre una reserva activa (misma semántica que el NOT EXISTS del
	// adaptador de postgres)
	reservations *memReservationRepo
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: map[string]*entity.Transfer{}}
}

func (m *memTransferRepo) Create(_ context.Context, t *entity.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transfers[t.ID] = &cp
	return nil
}

func (m *memTransferRepo) GetByID(_ context.Context, id, companyID string) (*entity.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[id]
	if !ok || t.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTransferRepo) UpdateStatus(_ context.Context, t *entity.Transfer, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.transfers[t.ID]
	if !ok || stored.CompanyID != t.CompanyID || stored.Version != expectedVersion {
		return domain.ErrConcurrency
	}
	cp := *t
	m.transfers[t.ID] = &cp
	return nil
}

func (m *memTransferRepo) ListByCompany(_ context.Context, companyID string, status *entity.TransferStatus, _, _ int) ([]*entity.Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Transfer
	for _, t := range m.transfers {
		if t.CompanyID != companyID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTransferRepo) SumInTransit(_ context.Context, companyID, productID, locationID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, t := range m.transfers {
		if t.CompanyID == companyID && t.ProductID == productID &&
			t.SourceLocationID == locationID && t.Status == entity.TransferStatusShipped {
			if m.reservations != nil && m.reservations.hasActiveFor(t.ID, now) {
				continue
			}
			sum += t.QuantityShipped
		}
	}
	return sum, nil
}

type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]*entity.InventoryReservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: map[string]*entity.InventoryReservation{}}
}

func (m *memReservationRepo) Create(_ context.Context, r *entity.InventoryReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.reservations {
		if ex.ProductID == r.ProductID && ex.LocationID == r.LocationID && ex.TransferID == r.TransferID {
			return domain.ErrDuplicate
		}
	}
	cp := *r
	m.reservations[r.ID] = &cp
	return nil
}

func (m *memReservationRepo) GetByID(_ context.Context, id, companyID string) (*entity.InventoryReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReservationRepo) GetByTransfer(_ context.Context, transferID, companyID string) (*entity.InventoryReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.TransferID == transferID && r.CompanyID == companyID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memReservationRepo) Release(_ context.Context, id string, releasedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.ReleasedAt == nil {
		at := releasedAt
		r.ReleasedAt = &at
	}
	return nil
}

func (m *memReservationRepo) hasActiveFor(transferID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.TransferID == transferID && r.IsActive(now) {
			return true
		}
	}
	return false
}

func (m *memReservationRepo) SumActive(_ context.Context, companyID, productID, locationID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, r := range m.reservations {
		if r.CompanyID == companyID && r.ProductID == productID && r.LocationID == locationID && r.IsActive(now) {
			sum += r.QuantityReserved
		}
	}
	return sum, nil
}

func (m *memReservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.InventoryReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.InventoryReservation
	for _, r := range m.reservations {
		if r.ReleasedAt == nil && r.IsExpired(now) {
			cp := *r
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memStockRepo struct {
	mu     sync.Mutex
	onHand map[string]int64
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{onHand: map[string]int64{}}
}

func stockKey(companyID, productID, locationID string) string {
	return companyID + "|" + productID + "|" + locationID
}

func (m *memStockRepo) Get(_ context.Context, companyID, productID, locationID string) (*entity.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &entity.StockLevel{
		ProductID:  productID,
		LocationID: locationID,
		CompanyID:  companyID,
		OnHand:     m.onHand[stockKey(companyID, productID, locationID)],
	}, nil
}

func (m *memStockRepo) Adjust(_ context.Context, companyID, productID, locationID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHand[stockKey(companyID, productID, locationID)] += delta
	return nil
}

type memUserRepo struct {
	users map[string]*entity.User
}

func (m *memUserRepo) GetByID(_ context.Context, id, companyID string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok || u.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
}

func (m *memAuditRepo) Create(_ context.Context, e *entity.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memAuditRepo) ListBySubject(_ context.Context, dom entity.AuditDomain, subjectID, companyID string, _, _ int) ([]*entity.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range m.entries {
		if e.Domain == dom && e.SubjectID == subjectID && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditRepo) last() *entity.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

type stubTransferTx struct {
	transfers    *memTransferRepo
	reservations *memReservationRepo
	stock        *memStockRepo
	audit        *memAuditRepo
}

func (r *stubTransferTx) Run(_ context.Context, fn func(
	transferRepo repository.TransferRepository,
	reservationRepo repository.ReservationRepository,
	stockRepo repository.StockLevelRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	return fn(r.transfers, r.reservations, r.stock, r.audit)
}

// fakeVarianceEvaluator registra las evaluaciones pedidas por la máquina.
type fakeVarianceEvaluator struct {
	mu    sync.Mutex
	calls []varianceCall
}

type varianceCall struct {
	transferID string
	variance   int64
	reason     string
}

func (f *fakeVarianceEvaluator) EvaluateShrinkage(_ context.Context, t *entity.Transfer, reasonCode, _ string) (*entity.VarianceAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, varianceCall{transferID: t.ID, variance: t.Variance(), reason: reasonCode})
	return &entity.VarianceAlert{TransferID: t.ID, VarianceUnits: t.Variance()}, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	fail   bool
	events []ports.Event
}

func (n *captureNotifier) Notify(_ context.Context, _ string, event ports.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("sink de notificaciones caído")
	}
	n.events = append(n.events, event)
	return nil
}

func (n *captureNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}
