package orders

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
	service *Service
}

func NewHandler(service *Service, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:  config,
		logger:  logger,
		tlm:     telemetry.NewHTTP(),
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Post("/{id}/refresh", h.RefreshSession)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.SubmitOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateOrderStatus)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Post("/{id}/approve", h.ApproveOrder)
		r.Post("/{id}/reject", h.RejectOrder)
		r.Put("/{id}/items", h.UpdateOrderItems)
		r.Delete("/{id}/items/{itemID}", h.DeleteOrderItem)
	})

	r.Route("/tables/{id}", func(r chi.Router) {
		r.Get("/orders", h.ListTableOrders)
		r.Post("/orders/status", h.BulkUpdateTableStatus)
		r.Post("/orders/archive", h.ArchiveCompletedOrders)
		r.Post("/clear", h.ClearTable)
	})
}

// Session handlers

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateSession")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req SessionCreateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if req.RestaurantID == uuid.Nil || strings.TrimSpace(req.TableNumber) == "" {
		log.Debug("missing restaurant or table number in session request")
		apt.RespondError(w, http.StatusBadRequest, "restaurant_id and table_number are required")
		return
	}

	session, err := h.service.CreateOrJoinSession(ctx, req.RestaurantID, req.TableNumber, req.SessionID)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not create session")
		return
	}

	apt.RespondSuccess(w, session)
}

// RefreshSession always answers 200 with a success flag. An expired or
// unknown session is a normal outcome for the heartbeat, not a failure.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RefreshSession")
	defer finish()

	log := h.log(r)

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		log.Debug("missing session id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}

	result, err := h.service.RefreshSession(r.Context(), sessionID)
	if err != nil {
		log.Error("cannot refresh session", "session_id", sessionID, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not refresh session")
		return
	}

	apt.RespondSuccess(w, result)
}

// Order handlers

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req SubmitOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.service.SubmitOrder(ctx, req)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not submit order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not retrieve order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	if v := r.URL.Query().Get("ids"); v != "" {
		ids, ok := h.parseIDList(w, log, v)
		if !ok {
			return
		}
		orders, err := h.service.ListOrdersByIDs(r.Context(), ids)
		if err != nil {
			log.Error("cannot list orders", "error", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
			return
		}
		apt.RespondCollection(w, orders, "order")
		return
	}

	filter, ok := h.parseOrderFilter(w, r, log)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		log.Error("cannot list orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if !ValidOrderStatus(req.Status) {
		log.Debug("invalid status in update request", "status", req.Status)
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not update order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not cancel order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ApproveOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req ApproveOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.service.ApproveOrder(r.Context(), id, req.Items)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not approve order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RejectOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.service.RejectOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not reject order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) UpdateOrderItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderItems")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req UpdateItemsRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.service.UpdateOrderItems(r.Context(), id, req.Items)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not update order items")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrderItem")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	itemIDStr := chi.URLParam(r, "itemID")
	itemID, err := uuid.Parse(itemIDStr)
	if err != nil {
		log.Debug("invalid item id parameter", "item_id", itemIDStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid item id parameter")
		return
	}

	order, err := h.service.DeleteOrderItem(r.Context(), id, itemID)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not delete order item")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

// Table-scoped handlers

func (h *Handler) ListTableOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTableOrders")
	defer finish()

	log := h.log(r)

	tableID, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	orders, err := h.service.ListOrdersByTable(r.Context(), tableID)
	if err != nil {
		log.Error("cannot list table orders", "table_id", tableID, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) BulkUpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BulkUpdateTableStatus")
	defer finish()

	log := h.log(r)

	tableID, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	if !ValidOrderStatus(req.Status) {
		log.Debug("invalid status in bulk update request", "status", req.Status)
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	updated, err := h.service.BulkUpdateTableStatus(r.Context(), tableID, req.Status)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not update orders")
		return
	}

	apt.RespondCollection(w, updated, "order")
}

func (h *Handler) ArchiveCompletedOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ArchiveCompletedOrders")
	defer finish()

	log := h.log(r)

	tableID, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	count, err := h.service.ArchiveCompletedOrders(r.Context(), tableID)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not archive orders")
		return
	}

	apt.RespondSuccess(w, map[string]int{"archived": count})
}

func (h *Handler) ClearTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearTable")
	defer finish()

	log := h.log(r)

	tableID, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	count, err := h.service.ArchiveAndClearTable(r.Context(), tableID)
	if err != nil {
		h.respondServiceError(w, log, err, "Could not clear table")
		return
	}

	apt.RespondSuccess(w, map[string]int{"archived": count})
}

// Helpers

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) parseIDList(w http.ResponseWriter, log apt.Logger, raw string) ([]uuid.UUID, bool) {
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			log.Debug("invalid ids parameter", "ids", raw)
			apt.RespondError(w, http.StatusBadRequest, "Invalid ids parameter")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (h *Handler) parseOrderFilter(w http.ResponseWriter, r *http.Request, log apt.Logger) (OrderFilter, bool) {
	var filter OrderFilter

	if v := r.URL.Query().Get("restaurant_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			log.Debug("invalid restaurant_id parameter", "restaurant_id", v)
			apt.RespondError(w, http.StatusBadRequest, "Invalid restaurant_id parameter")
			return OrderFilter{}, false
		}
		filter.RestaurantID = id
	}

	if v := r.URL.Query().Get("table_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			log.Debug("invalid table_id parameter", "table_id", v)
			apt.RespondError(w, http.StatusBadRequest, "Invalid table_id parameter")
			return OrderFilter{}, false
		}
		filter.TableID = id
	}

	filter.SessionID = r.URL.Query().Get("session_id")

	if v := r.URL.Query().Get("status"); v != "" {
		if !ValidOrderStatus(v) {
			log.Debug("invalid status parameter", "status", v)
			apt.RespondError(w, http.StatusBadRequest, "Invalid status parameter")
			return OrderFilter{}, false
		}
		filter.Status = v
	}

	// Listings exclude archived orders unless asked for them.
	archived := false
	if v := r.URL.Query().Get("archived"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Debug("invalid archived parameter", "archived", v)
			apt.RespondError(w, http.StatusBadRequest, "Invalid archived parameter")
			return OrderFilter{}, false
		}
		archived = parsed
	}
	filter.Archived = &archived

	return filter, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dest); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

// respondServiceError maps domain errors to their status and detail. Anything
// untyped is an internal failure and hides its cause from the client.
func (h *Handler) respondServiceError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error(fallback, "error", err)
		apt.RespondError(w, status, fallback)
		return
	}

	log.Info("request rejected", "kind", string(KindOf(err)), "error", err)
	apt.RespondError(w, status, err.Error())
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
