package drafts

import "encoding/json"

// SetFieldRequest writes one draft field. Value is decoded per field: the
// location takes an object, coordinate components take numbers, everything
// else takes a string.
type SetFieldRequest struct {
	Field string          `json:"field" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

// AddItemRequest upserts a line item. A zero or negative quantity removes
// the product from the draft.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}
