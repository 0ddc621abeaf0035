package order

import (
	"strings"

	"github.com/noah-isme/backend-printshop/internal/store"
)

func statusRank(status store.OrderStatus) int {
	switch status {
	case store.OrderStatusNew:
		return 0
	case store.OrderStatusInProgress:
		return 1
	case store.OrderStatusProduction:
		return 2
	case store.OrderStatusCompleted:
		return 3
	case store.OrderStatusCancelled:
		return -1
	default:
		return -2
	}
}

// ParseStatus normalises a requested status and reports whether it is known.
func ParseStatus(value string) (store.OrderStatus, bool) {
	status := store.OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	return status, statusRank(status) > -2
}

// IsTerminal reports whether no further edits or transitions are allowed.
func IsTerminal(status store.OrderStatus) bool {
	return status == store.OrderStatusCompleted || status == store.OrderStatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Statuses only move forward; cancellation is allowed from any non-terminal
// status.
func CanTransition(from, to store.OrderStatus) bool {
	if IsTerminal(from) || statusRank(from) < 0 {
		return false
	}
	if to == store.OrderStatusCancelled {
		return true
	}
	return statusRank(to) > statusRank(from)
}
