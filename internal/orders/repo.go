package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateSubmission is returned by OrderRepo.Create when an order with
// the same session and idempotency key already exists.
var ErrDuplicateSubmission = errors.New("duplicate submission")

var ErrNotFound = errors.New("not found")

type TableRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	GetByNumber(ctx context.Context, restaurantID uuid.UUID, number string) (*Table, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]*Table, error)
	Create(ctx context.Context, table *Table) error
	Save(ctx context.Context, table *Table) error
}

type SessionRepo interface {
	Get(ctx context.Context, id string) (*Session, error)
	GetActiveByTable(ctx context.Context, tableID uuid.UUID, now time.Time) (*Session, error)
	Create(ctx context.Context, session *Session) error
	Save(ctx context.Context, session *Session) error
	DeleteByTable(ctx context.Context, tableID uuid.UUID) error
}

type OrderRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	GetBySubmission(ctx context.Context, sessionID, idempotencyKey string) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error)
	Create(ctx context.Context, order *Order) error
	Save(ctx context.Context, order *Order) error
}

// OrderFilter narrows List results. Zero values mean no constraint.
type OrderFilter struct {
	RestaurantID uuid.UUID
	TableID      uuid.UUID
	SessionID    string
	Status       string
	Archived     *bool
}

// Transactor runs fn atomically. Repositories used inside fn must honor the
// transaction bound to ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
