package orders

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. The set is closed: handlers and sync
// clients switch on these values, so new kinds need a mapping entry too.
type Kind string

const (
	KindInvalidTable      Kind = "invalid_table"
	KindSessionExpired    Kind = "session_expired"
	KindNoActiveSession   Kind = "no_active_session"
	KindTableClosed       Kind = "table_closed"
	KindInvalidItems      Kind = "invalid_items"
	KindPriceMismatch     Kind = "price_mismatch"
	KindInvalidTransition Kind = "invalid_transition"
	KindOrderNotFound     Kind = "order_not_found"
)

// Error is a typed domain error. Detail is safe to surface to clients.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// HTTPStatus maps a domain error to its response status. Unknown errors are
// treated as internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindTableClosed:
		return http.StatusForbidden
	case KindInvalidTable, KindInvalidItems:
		return http.StatusBadRequest
	case KindSessionExpired, KindNoActiveSession:
		return http.StatusUnauthorized
	case KindOrderNotFound:
		return http.StatusNotFound
	case KindPriceMismatch, KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
