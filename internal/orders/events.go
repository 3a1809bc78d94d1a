package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/tabletap/tabletap/pkg"
)

// EventPublisher emits order and table lifecycle events. Publishing is best
// effort: failures are logged and never fail the request, the write already
// committed.
type EventPublisher struct {
	publisher events.Publisher
	logger    apt.Logger
}

func NewEventPublisher(publisher events.Publisher, logger apt.Logger) *EventPublisher {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &EventPublisher{publisher: publisher, logger: logger}
}

func (ep *EventPublisher) PublishOrderSubmitted(ctx context.Context, order *Order) {
	ep.publishOrder(ctx, pkg.EventOrderSubmitted, order, order.Status)
}

func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, order *Order, previous string) {
	ep.publishOrder(ctx, pkg.EventOrderStatusChanged, order, previous)
}

func (ep *EventPublisher) PublishOrderArchived(ctx context.Context, order *Order) {
	ep.publishOrder(ctx, pkg.EventOrderArchived, order, order.Status)
}

func (ep *EventPublisher) publishOrder(ctx context.Context, eventType string, order *Order, previous string) {
	if ep == nil || ep.publisher == nil {
		return
	}
	evt := pkg.OrderStatusEvent{
		EventType:      eventType,
		OrderID:        order.ID.String(),
		RestaurantID:   order.RestaurantID.String(),
		TableID:        order.TableID.String(),
		TableNumber:    order.TableNumber,
		Status:         order.Status,
		PreviousStatus: previous,
		Total:          order.Total,
		OccurredAt:     time.Now().UTC(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		ep.logger.Error("cannot marshal order event", "event", eventType, "order_id", order.ID, "error", err)
		return
	}
	if err := ep.publisher.Publish(ctx, pkg.OrderStatusTopic, data); err != nil {
		ep.logger.Error("cannot publish order event", "event", eventType, "order_id", order.ID, "error", err)
	}
}

func (ep *EventPublisher) PublishTableStatus(ctx context.Context, table *Table) {
	if ep == nil || ep.publisher == nil {
		return
	}
	evt := pkg.TableStatusEvent{
		EventType:    pkg.EventTableStatusChanged,
		TableID:      table.ID.String(),
		RestaurantID: table.RestaurantID.String(),
		Number:       table.Number,
		Status:       table.Status,
		Source:       "ordering",
		OccurredAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		ep.logger.Error("cannot marshal table event", "table_id", table.ID, "error", err)
		return
	}
	if err := ep.publisher.Publish(ctx, pkg.TableStatusTopic, data); err != nil {
		ep.logger.Error("cannot publish table event", "table_id", table.ID, "error", err)
	}
}
