package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/infra"
	"github.com/lethieuanh89/taphoa39-sub000/internal/model"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/worker"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubProductStore is an in-memory ProductStore.
type stubProductStore struct {
	mu       sync.Mutex
	products    map[int64]model.Product
	getCalls    int
	getAllCalls int
	failGets    int // fail this many Gets before succeeding
}

func newStubProductStore() *stubProductStore {
	return &stubProductStore{products: make(map[int64]model.Product)}
}

func (s *stubProductStore) Get(_ context.Context, id int64) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.failGets > 0 {
		s.failGets--
		return nil, errors.New("store busy")
	}
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	cp := p
	return &cp, nil
}

func (s *stubProductStore) Put(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *stubProductStore) PutMany(_ context.Context, products []model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}

func (s *stubProductStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

func (s *stubProductStore) GetAll(_ context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getAllCalls++
	out := make([]model.Product, 0, len(s.products))
	for id := int64(0); id <= 1000; id++ {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductStore) onHand(id int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].OnHand
}

var _ repository.ProductStore = (*stubProductStore)(nil)

// stubInvoiceRepo is an in-memory InvoiceRepository.
type stubInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*model.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *stubInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, repository.ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

func (r *stubInvoiceRepo) ListByDate(_ context.Context, _, _ time.Time) ([]model.Invoice, error) {
	return nil, nil
}

func (r *stubInvoiceRepo) ListUnsynced(_ context.Context) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if !inv.OnHandSynced && inv.Status != model.InvoiceStatusCanceled {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *stubInvoiceRepo) SetOnHandSynced(_ context.Context, id uuid.UUID, synced bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.OnHandSynced = synced
	return nil
}

func (r *stubInvoiceRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (r *stubInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invoices, id)
	return nil
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

// stubOfflineQueue keeps entries in enqueue order.
type stubOfflineQueue struct {
	mu      sync.Mutex
	entries []model.OfflineInvoice
}

func (q *stubOfflineQueue) Enqueue(_ context.Context, inv *model.Invoice) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.InvoiceID == inv.ID {
			return nil
		}
	}
	body, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	q.entries = append(q.entries, model.OfflineInvoice{
		InvoiceID: inv.ID,
		Body:      body,
		QueuedAt:  time.Now().UTC(),
	})
	return nil
}

func (q *stubOfflineQueue) List(_ context.Context) ([]model.OfflineInvoice, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.OfflineInvoice, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *stubOfflineQueue) MarkAttempt(_ context.Context, invoiceID uuid.UUID, attemptErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].InvoiceID == invoiceID {
			q.entries[i].Attempts++
			if attemptErr != nil {
				msg := attemptErr.Error()
				q.entries[i].LastError = &msg
			}
		}
	}
	return nil
}

func (q *stubOfflineQueue) Remove(_ context.Context, invoiceID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.InvoiceID != invoiceID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return nil
}

func (q *stubOfflineQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}

var _ repository.OfflineInvoiceQueue = (*stubOfflineQueue)(nil)

// stubMovementRepo captures the audit trail for assertion.
type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.StockMovement
}

func (r *stubMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) ListByProduct(_ context.Context, productID int64, _ int) ([]model.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubMovementRepo) byType(movementType string) []model.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.Type == movementType {
			out = append(out, m)
		}
	}
	return out
}

var _ repository.MovementRepository = (*stubMovementRepo)(nil)

// stubRemote models the remote system of record: it holds its own product
// truth and applies the signed delta of every pushed row to it, the way the
// real batch endpoint does.
type stubRemote struct {
	mu          sync.Mutex
	server      map[int64]model.Product
	failCreate  bool
	failBatch   bool
	created     []uuid.UUID
	deleted     []uuid.UUID
	batchCalls  int
	pushedRows  [][]infra.ReconcileRow
	createBlock chan struct{} // when set, CreateInvoice blocks until closed
}

func newStubRemote(seed ...model.Product) *stubRemote {
	server := make(map[int64]model.Product)
	for _, p := range seed {
		server[p.ID] = p
	}
	return &stubRemote{server: server}
}

func (r *stubRemote) PushStockBatch(_ context.Context, rows []infra.ReconcileRow) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failBatch {
		return nil, errors.New("remote: unreachable")
	}
	r.batchCalls++
	r.pushedRows = append(r.pushedRows, rows)

	updated := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		p, ok := r.server[row.ProductID]
		if !ok {
			continue
		}
		p.OnHand = p.OnHand.Add(row.Delta)
		r.server[row.ProductID] = p
		updated = append(updated, p)
	}
	return updated, nil
}

func (r *stubRemote) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	if r.createBlock != nil {
		<-r.createBlock
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("remote: unreachable")
	}
	r.created = append(r.created, inv.ID)
	return nil
}

func (r *stubRemote) UpdateInvoice(_ context.Context, _ *model.Invoice) error { return nil }

func (r *stubRemote) DeleteInvoice(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("remote: unreachable")
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubRemote) GetInvoice(_ context.Context, _ uuid.UUID) (*model.Invoice, error) {
	return nil, errors.New("not implemented")
}

func (r *stubRemote) setFailing(failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = failing
	r.failBatch = failing
}

func (r *stubRemote) serverOnHand(id int64) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.server[id].OnHand
}

func (r *stubRemote) setServerOnHand(id int64, v decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.server[id]
	p.OnHand = v
	r.server[id] = p
}

var _ infra.RemoteClient = (*stubRemote)(nil)

// stubRetail records pushes to the secondary platform.
type stubRetail struct {
	mu      sync.Mutex
	failing bool
	pushed  []int64
}

func (r *stubRetail) PushOnHand(_ context.Context, productID int64, _ decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("retail: timeout")
	}
	r.pushed = append(r.pushed, productID)
	return nil
}

func (r *stubRetail) PushPrice(_ context.Context, _ int64, _ decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("retail: timeout")
	}
	return nil
}

var _ infra.RetailClient = (*stubRetail)(nil)

// ── Environment builder ───────────────────────────────────────────────────────

func i64(v int64) *int64 { return &v }

// seedBoxPiece installs the canonical two-variant group in both the local
// store and the remote stub: a box (id 1, CV 1, OnHand 10) owning a piece
// variant (id 2, CV 0.1, OnHand 100).
func seedBoxPiece() []model.Product {
	return []model.Product{
		{
			ID: 1, Name: "Box", MasterProductID: i64(99),
			ConversionValue: decimal.NewFromInt(1),
			OnHand:          decimal.NewFromInt(10),
			BasePrice:       decimal.NewFromInt(100),
			Cost:            decimal.NewFromInt(60),
			Unit:            "box", Active: true,
		},
		{
			ID: 2, Name: "Piece", MasterProductID: i64(99), MasterUnitID: i64(1),
			ConversionValue: decimal.NewFromFloat(0.1),
			OnHand:          decimal.NewFromInt(100),
			BasePrice:       decimal.NewFromInt(12),
			Cost:            decimal.NewFromInt(7),
			Unit:            "piece", Active: true,
		},
	}
}

type testEnv struct {
	products  *stubProductStore
	invoices  *stubInvoiceRepo
	offline   *stubOfflineQueue
	movements *stubMovementRepo
	remote    *stubRemote
	retail    *stubRetail
	snapshot  *cache.GroupSnapshotCache
	oos       *cache.MemoryOutOfStockIndex
	notifier  *worker.RetryNotifier

	applier    *Applier
	reconciler *Reconciler
	catalog    CatalogService
	checkout   CheckoutService
	sync       SyncService
}

func newTestEnv(cb *infra.CircuitBreaker) *testEnv {
	env := &testEnv{
		products:  newStubProductStore(),
		invoices:  newStubInvoiceRepo(),
		offline:   &stubOfflineQueue{},
		movements: &stubMovementRepo{},
		remote:    newStubRemote(seedBoxPiece()...),
		retail:    &stubRetail{},
		snapshot:  cache.NewGroupSnapshotCache(time.Minute),
		oos:       cache.NewMemoryOutOfStockIndex(),
		notifier:  worker.NewRetryNotifier(10, nil),
	}
	for _, p := range seedBoxPiece() {
		env.products.products[p.ID] = p
	}

	env.applier = NewApplier(env.products, env.movements, env.snapshot, env.oos)
	env.reconciler = NewReconciler(env.remote, env.retail, env.products, env.movements, env.snapshot, env.oos, cb, env.notifier)
	env.catalog = NewCatalogService(env.products, env.snapshot)
	env.checkout = NewCheckoutService(env.products, env.invoices, env.offline, env.catalog, env.applier, env.reconciler, nil)
	env.sync = NewSyncService(env.offline, env.invoices, env.products, env.catalog, env.reconciler)
	return env
}
