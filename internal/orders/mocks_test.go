package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
	published   []publishedMsg
}

type publishedMsg struct {
	Topic string
	Msg   []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.published = append(m.published, publishedMsg{Topic: topic, Msg: msg})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

func (m *MockPublisher) Published() []publishedMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMsg, len(m.published))
	copy(out, m.published)
	return out
}

// MockTableRepo is a mock implementation of TableRepo for testing
type MockTableRepo struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]*Table

	GetFunc  func(ctx context.Context, id uuid.UUID) (*Table, error)
	SaveFunc func(ctx context.Context, table *Table) error
}

func NewMockTableRepo() *MockTableRepo {
	return &MockTableRepo{
		tables: make(map[uuid.UUID]*Table),
	}
}

func (m *MockTableRepo) Create(ctx context.Context, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table.ID] = table
	return nil
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	return table, nil
}

func (m *MockTableRepo) GetByNumber(ctx context.Context, restaurantID uuid.UUID, number string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, table := range m.tables {
		if table.RestaurantID == restaurantID && table.Number == number {
			return table, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockTableRepo) List(ctx context.Context, restaurantID uuid.UUID) ([]*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Table
	for _, table := range m.tables {
		if restaurantID == uuid.Nil || table.RestaurantID == restaurantID {
			result = append(result, table)
		}
	}
	return result, nil
}

func (m *MockTableRepo) Save(ctx context.Context, table *Table) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table.ID]; !ok {
		return ErrNotFound
	}
	m.tables[table.ID] = table
	return nil
}

// MockSessionRepo is a mock implementation of SessionRepo for testing
type MockSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	GetFunc  func(ctx context.Context, id string) (*Session, error)
	SaveFunc func(ctx context.Context, session *Session) error
}

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{
		sessions: make(map[string]*Session),
	}
}

func (m *MockSessionRepo) Create(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *MockSessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

func (m *MockSessionRepo) GetActiveByTable(ctx context.Context, tableID uuid.UUID, now time.Time) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, session := range m.sessions {
		if session.TableID == tableID && !session.Expired(now) {
			return session, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockSessionRepo) Save(ctx context.Context, session *Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *MockSessionRepo) DeleteByTable(ctx context.Context, tableID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if session.TableID == tableID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// MockOrderRepo is a mock implementation of OrderRepo for testing
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order

	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, order *Order) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.SessionID == order.SessionID && existing.IdempotencyKey == order.IdempotencyKey {
			return ErrDuplicateSubmission
		}
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return order, nil
}

func (m *MockOrderRepo) GetBySubmission(ctx context.Context, sessionID, idempotencyKey string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, order := range m.orders {
		if order.SessionID == sessionID && order.IdempotencyKey == idempotencyKey {
			return order, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockOrderRepo) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, order := range m.orders {
		if filter.RestaurantID != uuid.Nil && order.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.TableID != uuid.Nil && order.TableID != filter.TableID {
			continue
		}
		if filter.SessionID != "" && order.SessionID != filter.SessionID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.Archived != nil && order.Archived != *filter.Archived {
			continue
		}
		result = append(result, order)
	}
	return result, nil
}

func (m *MockOrderRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, id := range ids {
		if order, ok := m.orders[id]; ok {
			result = append(result, order)
		}
	}
	return result, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return ErrNotFound
	}
	m.orders[order.ID] = order
	return nil
}

// MockTransactor runs the callback directly without a real transaction
type MockTransactor struct {
	WithinTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithinTxFunc != nil {
		return m.WithinTxFunc(ctx, fn)
	}
	return fn(ctx)
}

// MockMenu is an in-memory MenuSnapshotProvider and SettingsProvider
type MockMenu struct {
	mu          sync.RWMutex
	prices      map[uuid.UUID]float64
	modifiers   map[uuid.UUID]float64
	unavailable map[uuid.UUID]bool
	approval    bool
}

func NewMockMenu() *MockMenu {
	return &MockMenu{
		prices:      make(map[uuid.UUID]float64),
		modifiers:   make(map[uuid.UUID]float64),
		unavailable: make(map[uuid.UUID]bool),
	}
}

func (m *MockMenu) SetItem(id uuid.UUID, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[id] = price
}

func (m *MockMenu) SetModifier(id uuid.UUID, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modifiers[id] = price
}

func (m *MockMenu) SetUnavailable(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable[id] = true
}

func (m *MockMenu) SetRequiresApproval(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approval = v
}

func (m *MockMenu) ItemPrice(ctx context.Context, restaurantID, menuItemID uuid.UUID) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.prices[menuItemID]
	if !ok {
		return 0, NewError(KindInvalidItems, "unknown menu item %s", menuItemID)
	}
	return price, nil
}

func (m *MockMenu) ModifierPrice(ctx context.Context, restaurantID, modifierID uuid.UUID) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.modifiers[modifierID]
	if !ok {
		return 0, NewError(KindInvalidItems, "unknown modifier %s", modifierID)
	}
	return price, nil
}

func (m *MockMenu) IsAvailable(ctx context.Context, restaurantID, menuItemID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.prices[menuItemID]; !ok {
		return false, nil
	}
	return !m.unavailable[menuItemID], nil
}

func (m *MockMenu) RequiresApproval(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.approval, nil
}
