package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
	"github.com/tabletap/tabletap/pkg"
)

// TableStatusSubscriber applies table status changes announced by the
// management surface. Disabling a table here immediately stops new sessions
// and submissions for it.
type TableStatusSubscriber struct {
	subscriber events.Subscriber
	tables     TableRepo
	logger     apt.Logger
}

func NewTableStatusSubscriber(sub events.Subscriber, tables TableRepo, logger apt.Logger) *TableStatusSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TableStatusSubscriber{
		subscriber: sub,
		tables:     tables,
		logger:     logger,
	}
}

func (s *TableStatusSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting table status subscriber", "topic", pkg.TableStatusTopic)
	if s.subscriber == nil {
		return fmt.Errorf("table status subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.TableStatusTopic, s.handleEvent)
}

func (s *TableStatusSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var event pkg.TableStatusEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		s.logger.Info("invalid table status event", "error", err)
		return nil
	}

	// Only management decisions are applied here. Occupancy transitions
	// originate in this service and are already persisted.
	if event.Status != TableStatusDisabled && event.Status != TableStatusFree {
		return nil
	}
	if event.Source == "ordering" {
		return nil
	}

	id, err := uuid.Parse(event.TableID)
	if err != nil {
		s.logger.Info("invalid table id in event", "table_id", event.TableID)
		return nil
	}

	table, err := s.tables.Get(ctx, id)
	if err != nil {
		s.logger.Info("unknown table in status event", "table_id", event.TableID)
		return nil
	}
	if table.Status == event.Status {
		return nil
	}

	table.Status = event.Status
	if err := s.tables.Save(ctx, table); err != nil {
		s.logger.Error("cannot apply table status event", "table_id", id.String(), "error", err)
		return err
	}

	s.logger.Debug("table status updated", "table_id", id.String(), "status", event.Status)
	return nil
}
