package items

import (
	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
)

// AddOrUpdate merges a product into the line items. A quantity of zero (or
// less) removes any existing entry; a positive quantity overwrites the entry
// for that product or appends a new one with the product snapshot captured.
// Repeated identical calls are idempotent.
func AddOrUpdate(items []draft.LineItem, product upstream.Product, quantity int) []draft.LineItem {
	for i := range items {
		if items[i].ProductID != product.ID {
			continue
		}
		if quantity <= 0 {
			return append(items[:i], items[i+1:]...)
		}
		items[i].Quantity = quantity
		return items
	}

	if quantity <= 0 {
		return items
	}
	return append(items, draft.LineItem{
		ProductID: product.ID,
		Product:   product,
		Quantity:  quantity,
	})
}

// Increment raises the quantity of the item at index by one. There is no
// client-side upper bound.
func Increment(items []draft.LineItem, index int) []draft.LineItem {
	if index < 0 || index >= len(items) {
		return items
	}
	items[index].Quantity++
	return items
}

// Decrement lowers the quantity by one but never below one; removal is a
// separate explicit action.
func Decrement(items []draft.LineItem, index int) []draft.LineItem {
	if index < 0 || index >= len(items) {
		return items
	}
	if items[index].Quantity <= 1 {
		return items
	}
	items[index].Quantity--
	return items
}

// Remove deletes the entry at index outright regardless of quantity.
func Remove(items []draft.LineItem, index int) []draft.LineItem {
	if index < 0 || index >= len(items) {
		return items
	}
	return append(items[:index], items[index+1:]...)
}
