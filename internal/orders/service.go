package orders

import (
	"context"
	"errors"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Service implements the table session and order lifecycle. All writes that
// span an order and its table go through the transactor.
type Service struct {
	tables   TableRepo
	sessions SessionRepo
	orders   OrderRepo
	tx       Transactor
	menu     MenuSnapshotProvider
	settings SettingsProvider
	events   *EventPublisher
	logger   apt.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

type ServiceDeps struct {
	Tables   TableRepo
	Sessions SessionRepo
	Orders   OrderRepo
	Tx       Transactor
	Menu     MenuSnapshotProvider
	Settings SettingsProvider
	Events   *EventPublisher
	Logger   apt.Logger

	SessionTTL time.Duration
}

func NewService(deps ServiceDeps) *Service {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Service{
		tables:     deps.Tables,
		sessions:   deps.Sessions,
		orders:     deps.Orders,
		tx:         deps.Tx,
		menu:       deps.Menu,
		settings:   deps.Settings,
		events:     deps.Events,
		logger:     logger,
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// CreateOrJoinSession resolves the table by restaurant and number, then
// returns the active session for that table or creates one with the given
// client-generated id. Joining devices share the existing session.
func (s *Service) CreateOrJoinSession(ctx context.Context, restaurantID uuid.UUID, tableNumber, sessionID string) (*Session, error) {
	table, err := s.tables.GetByNumber(ctx, restaurantID, tableNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindInvalidTable, "no table %s in restaurant %s", tableNumber, restaurantID)
		}
		return nil, err
	}
	if !table.AcceptsOrders() {
		return nil, NewError(KindTableClosed, "table %s is not accepting orders (%s)", table.Number, table.Status)
	}

	now := s.now().UTC()
	existing, err := s.sessions.GetActiveByTable(ctx, table.ID, now)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if sessionID == "" {
		return nil, NewError(KindNoActiveSession, "session id is required")
	}
	session := NewSession(sessionID, table.ID, restaurantID, s.sessionTTL, now)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RefreshResult is the outcome of a heartbeat. Refresh never fails the
// caller with a transport-style error for domain reasons; an expired or
// missing session is reported in Error so clients can restart cleanly.
type RefreshResult struct {
	Success bool     `json:"success"`
	Session *Session `json:"session,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (s *Service) RefreshSession(ctx context.Context, sessionID string) (RefreshResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RefreshResult{Success: false, Error: string(KindNoActiveSession)}, nil
		}
		return RefreshResult{}, err
	}
	now := s.now().UTC()
	if session.Expired(now) {
		return RefreshResult{Success: false, Error: string(KindSessionExpired)}, nil
	}
	session.Refresh(s.sessionTTL, now)
	if err := s.sessions.Save(ctx, session); err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{Success: true, Session: session}, nil
}

// SubmitOrder runs the full submission pipeline: resolve table, validate the
// session, replay check, revalidate every item against the live menu,
// recompute the total server-side, then persist the order and occupy the
// table in one transaction.
func (s *Service) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	table, err := s.tables.GetByNumber(ctx, req.RestaurantID, req.TableNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindInvalidTable, "no table %s in restaurant %s", req.TableNumber, req.RestaurantID)
		}
		return nil, err
	}
	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNoActiveSession, "session %s not found", req.SessionID)
		}
		return nil, err
	}
	now := s.now().UTC()
	if session.Expired(now) {
		return nil, NewError(KindSessionExpired, "session %s expired at %s", session.ID, session.ExpiresAt.Format(time.RFC3339))
	}
	if session.TableID != table.ID {
		return nil, NewError(KindNoActiveSession, "session %s does not belong to table %s", session.ID, table.Number)
	}

	if !table.AcceptsOrders() {
		return nil, NewError(KindTableClosed, "table %s is not accepting orders (%s)", table.Number, table.Status)
	}

	if existing, err := s.orders.GetBySubmission(ctx, req.SessionID, req.IdempotencyKey); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	items, err := s.buildItems(ctx, req.RestaurantID, req.Items)
	if err != nil {
		return nil, err
	}

	order := NewOrder()
	order.RestaurantID = req.RestaurantID
	order.TableID = table.ID
	order.TableNumber = table.Number
	order.SessionID = session.ID
	order.CustomerID = req.CustomerID
	order.IdempotencyKey = req.IdempotencyKey
	order.Items = items
	order.RecomputeTotal()
	order.BeforeCreate()

	if req.ExpectedTotal != nil && roundCents(*req.ExpectedTotal) != order.Total {
		return nil, NewError(KindPriceMismatch, "expected total %.2f does not match current total %.2f", *req.ExpectedTotal, order.Total)
	}

	needsApproval, err := s.settings.RequiresApproval(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if needsApproval {
		order.Status = OrderStatusNeedsApproval
	}

	occupied := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		if table.Status == TableStatusFree {
			table.Occupy()
			if err := s.tables.Save(ctx, table); err != nil {
				return err
			}
			occupied = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			// Another device won the race on the same key. Return its order.
			return s.orders.GetBySubmission(ctx, req.SessionID, req.IdempotencyKey)
		}
		return nil, err
	}

	session.Refresh(s.sessionTTL, s.now().UTC())
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("cannot extend session after order submit", "error", err)
	}

	s.events.PublishOrderSubmitted(ctx, order)
	if occupied {
		s.events.PublishTableStatus(ctx, table)
	}
	return order, nil
}

// buildItems revalidates every requested line against the live menu and
// snapshots authoritative prices into the order.
func (s *Service) buildItems(ctx context.Context, restaurantID uuid.UUID, reqs []SubmitItemRequest) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(reqs))
	for _, ir := range reqs {
		available, err := s.menu.IsAvailable(ctx, restaurantID, ir.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, NewError(KindInvalidItems, "menu item %s is not available", ir.MenuItemID)
		}
		price, err := s.menu.ItemPrice(ctx, restaurantID, ir.MenuItemID)
		if err != nil {
			return nil, err
		}

		item := OrderItem{
			ID:         apt.GenerateNewID(),
			MenuItemID: ir.MenuItemID,
			Name:       ir.Name,
			Quantity:   ir.Quantity,
			UnitPrice:  price,
			Notes:      ir.Notes,
		}
		for _, mr := range ir.Modifiers {
			mprice, err := s.menu.ModifierPrice(ctx, restaurantID, mr.ModifierID)
			if err != nil {
				return nil, err
			}
			item.Modifiers = append(item.Modifiers, ModifierSelection{
				ModifierID: mr.ModifierID,
				Name:       mr.Name,
				Quantity:   mr.Quantity,
				UnitPrice:  mprice,
			})
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindOrderNotFound, "order %s not found", id)
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	return s.orders.List(ctx, filter)
}

func (s *Service) ListOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error) {
	if len(ids) == 0 {
		return []*Order{}, nil
	}
	return s.orders.ListByIDs(ctx, ids)
}

func (s *Service) ListOrdersByTable(ctx context.Context, tableID uuid.UUID) ([]*Order, error) {
	archived := false
	return s.orders.List(ctx, OrderFilter{TableID: tableID, Archived: &archived})
}

// UpdateOrderStatus moves a single order forward and applies table side
// effects: when every open order on the table is served the table moves to
// payment_pending.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, target string) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if err := order.Transition(target); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.events.PublishOrderStatusChanged(ctx, order, previous)

	if target == OrderStatusServed {
		if err := s.maybeAwaitPayment(ctx, order.TableID); err != nil {
			s.logger.Error("cannot update table after serve", "table_id", order.TableID, "error", err)
		}
	}
	return order, nil
}

func (s *Service) maybeAwaitPayment(ctx context.Context, tableID uuid.UUID) error {
	open, err := s.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return err
	}
	for _, o := range open {
		if o.Status != OrderStatusServed && !IsTerminalStatus(o.Status) {
			return nil
		}
	}
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return err
	}
	if table.Status != TableStatusOccupied {
		return nil
	}
	table.AwaitPayment()
	if err := s.tables.Save(ctx, table); err != nil {
		return err
	}
	s.events.PublishTableStatus(ctx, table)
	return nil
}

// BulkUpdateTableStatus moves every non-terminal, non-archived order on the
// table to target. Orders already past target or terminal are skipped, not
// failed.
func (s *Service) BulkUpdateTableStatus(ctx context.Context, tableID uuid.UUID, target string) ([]*Order, error) {
	if !ValidOrderStatus(target) {
		return nil, NewError(KindInvalidTransition, "unknown status %q", target)
	}
	open, err := s.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	updated := make([]*Order, 0, len(open))
	for _, order := range open {
		if !order.CanTransition(target) {
			continue
		}
		previous := order.Status
		order.Status = target
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
		s.events.PublishOrderStatusChanged(ctx, order, previous)
		updated = append(updated, order)
	}
	if target == OrderStatusServed && len(updated) > 0 {
		if err := s.maybeAwaitPayment(ctx, tableID); err != nil {
			s.logger.Error("cannot update table after bulk serve", "table_id", tableID, "error", err)
		}
	}
	return updated, nil
}

func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.UpdateOrderStatus(ctx, id, OrderStatusCancelled)
}

// ApproveOrder moves a needs_approval order to pending. Edits, when present,
// replace the item list before approval and are revalidated against the menu.
func (s *Service) ApproveOrder(ctx context.Context, id uuid.UUID, edits []SubmitItemRequest) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderStatusNeedsApproval {
		return nil, NewError(KindInvalidTransition, "order %s is %s, not awaiting approval", id, order.Status)
	}
	if len(edits) > 0 {
		items, err := s.buildItems(ctx, order.RestaurantID, edits)
		if err != nil {
			return nil, err
		}
		order.Items = items
		order.RecomputeTotal()
	}
	previous := order.Status
	order.Status = OrderStatusPending
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.events.PublishOrderStatusChanged(ctx, order, previous)
	return order, nil
}

func (s *Service) RejectOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderStatusNeedsApproval {
		return nil, NewError(KindInvalidTransition, "order %s is %s, not awaiting approval", id, order.Status)
	}
	previous := order.Status
	order.Status = OrderStatusCancelled
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.events.PublishOrderStatusChanged(ctx, order, previous)
	return order, nil
}

// UpdateOrderItems replaces the item list of an editable order. Prices are
// snapshotted again from the live menu.
func (s *Service) UpdateOrderItems(ctx context.Context, id uuid.UUID, reqs []SubmitItemRequest) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, NewError(KindInvalidTransition, "order %s is %s and can no longer be edited", id, order.Status)
	}
	if len(reqs) == 0 {
		return nil, NewError(KindInvalidItems, "order must keep at least one item")
	}
	items, err := s.buildItems(ctx, order.RestaurantID, reqs)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.RecomputeTotal()
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrderItem removes one line from an editable order. Removing the last
// line cancels the order instead of leaving it empty.
func (s *Service) DeleteOrderItem(ctx context.Context, id, itemID uuid.UUID) (*Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Editable() {
		return nil, NewError(KindInvalidTransition, "order %s is %s and can no longer be edited", id, order.Status)
	}
	kept := order.Items[:0]
	found := false
	for _, item := range order.Items {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, NewError(KindOrderNotFound, "order %s has no item %s", id, itemID)
	}
	order.Items = kept
	if len(order.Items) == 0 {
		previous := order.Status
		order.Status = OrderStatusCancelled
		order.RecomputeTotal()
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
		s.events.PublishOrderStatusChanged(ctx, order, previous)
		return order, nil
	}
	order.RecomputeTotal()
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ArchiveCompletedOrders archives every terminal order on the table. When
// nothing open remains the table is freed.
func (s *Service) ArchiveCompletedOrders(ctx context.Context, tableID uuid.UUID) (int, error) {
	archived := false
	all, err := s.orders.List(ctx, OrderFilter{TableID: tableID, Archived: &archived})
	if err != nil {
		return 0, err
	}
	count := 0
	openLeft := 0
	for _, order := range all {
		if !IsTerminalStatus(order.Status) {
			openLeft++
			continue
		}
		order.Archive()
		if err := s.orders.Save(ctx, order); err != nil {
			return count, err
		}
		s.events.PublishOrderArchived(ctx, order)
		count++
	}
	if openLeft == 0 && count > 0 {
		table, err := s.tables.Get(ctx, tableID)
		if err != nil {
			return count, err
		}
		if table.Status != TableStatusDisabled {
			table.Free()
			if err := s.tables.Save(ctx, table); err != nil {
				return count, err
			}
			s.events.PublishTableStatus(ctx, table)
		}
	}
	return count, nil
}

// ArchiveAndClearTable force-archives every order on the table regardless of
// status, destroys its sessions, and marks the table dirty for cleaning.
func (s *Service) ArchiveAndClearTable(ctx context.Context, tableID uuid.UUID) (int, error) {
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, NewError(KindInvalidTable, "table %s not found", tableID)
		}
		return 0, err
	}

	archived := false
	all, err := s.orders.List(ctx, OrderFilter{TableID: tableID, Archived: &archived})
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, order := range all {
			if !IsTerminalStatus(order.Status) {
				order.Status = OrderStatusCancelled
			}
			order.Archive()
			if err := s.orders.Save(ctx, order); err != nil {
				return err
			}
			count++
		}
		if err := s.sessions.DeleteByTable(ctx, tableID); err != nil {
			return err
		}
		if table.Status != TableStatusDisabled {
			table.MarkDirty()
			if err := s.tables.Save(ctx, table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, order := range all {
		s.events.PublishOrderArchived(ctx, order)
	}
	s.events.PublishTableStatus(ctx, table)
	return count, nil
}
