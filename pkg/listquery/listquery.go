// Package listquery provides generic in-memory list shaping for endpoints
// backed by prefix scans, where the store cannot sort or filter for us.
package listquery

import (
	"sort"
	"strings"
)

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder normalizes a raw order value, defaulting to ascending.
func ParseOrder(raw string) Order {
	if strings.EqualFold(strings.TrimSpace(raw), string(OrderDesc)) {
		return OrderDesc
	}
	return OrderAsc
}

// Filter keeps the items matching every supplied predicate.
func Filter[T any](items []T, predicates ...func(T) bool) []T {
	if len(predicates) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, pred := range predicates {
			if pred == nil {
				continue
			}
			if !pred(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// SortBy sorts items by the supplied key in the given order. The sort is
// stable so equal keys keep their scan order.
func SortBy[T any](items []T, order Order, less func(a, b T) bool) {
	if less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == OrderDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// Page slices items for offset pagination, clamping out-of-range windows.
func Page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
