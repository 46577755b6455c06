package testutil

import (
	"context"
	"sync"

	domainErrors "github.com/cassiomorais/banksim/internal/domain/errors"
	"github.com/cassiomorais/banksim/internal/domain/payment"
	"github.com/cassiomorais/banksim/internal/domain/shopper"
	"github.com/google/uuid"
)

// --- Payment Repository Mock ---

// MockPaymentRepository is a mock implementation of payment.Repository.
type MockPaymentRepository struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*payment.Payment

	CreateFunc          func(ctx context.Context, p *payment.Payment) error
	GetByIDFunc         func(ctx context.Context, id int64) (*payment.Payment, error)
	GetByExternalIDFunc func(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	UpdateStatusFunc    func(ctx context.Context, p *payment.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[int64]*payment.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepository) GetByExternalID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ExternalID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrPaymentNotFound
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

// --- Shopper Repository Mock ---

// MockShopperRepository is a mock implementation of shopper.Repository.
type MockShopperRepository struct {
	mu         sync.Mutex
	nextID     int64
	shoppers   map[int64]*shopper.Shopper
	cards      map[int64]shopper.Card // card ID -> credential
	cardOwners map[int64]int64        // card ID -> shopper ID
	approved   map[int64]map[string]struct{}

	LookupCardFunc        func(ctx context.Context, card shopper.Card) (int64, error)
	GetByIDFunc           func(ctx context.Context, id int64) (*shopper.Shopper, error)
	GetByCardFunc         func(ctx context.Context, cardID int64) (*shopper.Shopper, error)
	ApprovedMerchantsFunc func(ctx context.Context, shopperID int64) (map[string]struct{}, error)
	DebitFunc             func(ctx context.Context, shopperID int64, amountCents int64) error
}

func NewMockShopperRepository() *MockShopperRepository {
	return &MockShopperRepository{
		shoppers:   make(map[int64]*shopper.Shopper),
		cards:      make(map[int64]shopper.Card),
		cardOwners: make(map[int64]int64),
		approved:   make(map[int64]map[string]struct{}),
	}
}

func (m *MockShopperRepository) LookupCard(ctx context.Context, card shopper.Card) (int64, error) {
	if m.LookupCardFunc != nil {
		return m.LookupCardFunc(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.cards {
		if c == card {
			return id, nil
		}
	}
	return 0, domainErrors.ErrCardNotFound
}

func (m *MockShopperRepository) GetByID(ctx context.Context, id int64) (*shopper.Shopper, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoppers[id]
	if !ok {
		return nil, domainErrors.ErrShopperNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockShopperRepository) GetByCard(ctx context.Context, cardID int64) (*shopper.Shopper, error) {
	if m.GetByCardFunc != nil {
		return m.GetByCardFunc(ctx, cardID)
	}
	m.mu.Lock()
	ownerID, ok := m.cardOwners[cardID]
	m.mu.Unlock()
	if !ok {
		return nil, domainErrors.ErrShopperNotFound
	}
	return m.GetByID(ctx, ownerID)
}

func (m *MockShopperRepository) ApprovedMerchants(ctx context.Context, shopperID int64) (map[string]struct{}, error) {
	if m.ApprovedMerchantsFunc != nil {
		return m.ApprovedMerchantsFunc(ctx, shopperID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.approved[shopperID]))
	for merchant := range m.approved[shopperID] {
		out[merchant] = struct{}{}
	}
	return out, nil
}

func (m *MockShopperRepository) Debit(ctx context.Context, shopperID int64, amountCents int64) error {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, shopperID, amountCents)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoppers[shopperID]
	if !ok {
		return domainErrors.ErrShopperNotFound
	}
	if s.BalanceCents < amountCents {
		return domainErrors.ErrInsufficientBalance
	}
	s.BalanceCents -= amountCents
	return nil
}

func (m *MockShopperRepository) CreateShopper(ctx context.Context, s *shopper.Shopper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.shoppers[s.ID] = &cp
	return nil
}

func (m *MockShopperRepository) CreateCard(ctx context.Context, shopperID int64, card shopper.Card) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.cards[m.nextID] = card
	m.cardOwners[m.nextID] = shopperID
	return m.nextID, nil
}

func (m *MockShopperRepository) AddApprovedMerchant(ctx context.Context, shopperID int64, merchant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approved[shopperID] == nil {
		m.approved[shopperID] = make(map[string]struct{})
	}
	m.approved[shopperID][merchant] = struct{}{}
	return nil
}

// --- Transaction Manager Mock ---

// MockTxManager runs the function directly; there is no real transaction.
type MockTxManager struct {
	mu    sync.Mutex
	calls int

	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Calls reports how many transactions were started.
func (m *MockTxManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Confirmer Mock ---

// NotifyCall records one outbound confirmation attempt.
type NotifyCall struct {
	ExternalID uuid.UUID
	Approved   bool
	Reason     string
	Host       string
}

// MockConfirmer is a mock implementation of the confirmation port. Without an
// override it acknowledges everything.
type MockConfirmer struct {
	mu    sync.Mutex
	calls []NotifyCall

	NotifyFunc func(ctx context.Context, externalID uuid.UUID, approved bool, reason string, host string) bool
}

func (m *MockConfirmer) Notify(ctx context.Context, externalID uuid.UUID, approved bool, reason string, host string) bool {
	m.mu.Lock()
	m.calls = append(m.calls, NotifyCall{ExternalID: externalID, Approved: approved, Reason: reason, Host: host})
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, externalID, approved, reason, host)
	}
	return true
}

// Calls returns a copy of the recorded confirmation attempts.
func (m *MockConfirmer) Calls() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotifyCall, len(m.calls))
	copy(out, m.calls)
	return out
}
