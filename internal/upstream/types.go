package upstream

import (
	"strings"

	"github.com/otabekov/orderdesk-backend/pkg/enums"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

// LocalizedName carries the three translations the catalog ships for every
// category and product.
type LocalizedName struct {
	Uz string `json:"uz"`
	Ru string `json:"ru"`
	En string `json:"en"`
}

// Display returns the first non-empty translation.
func (n LocalizedName) Display() string {
	for _, v := range []string{n.Uz, n.Ru, n.En} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Matches reports whether any translation contains the query,
// case-insensitively.
func (n LocalizedName) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range []string{n.Uz, n.Ru, n.En} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// Product is a catalog entry as served by the ordering backend.
type Product struct {
	ID         string        `json:"id"`
	Name       LocalizedName `json:"name"`
	Price      int64         `json:"price"`
	Image      string        `json:"image"`
	CategoryID string        `json:"category_id"`
}

// Category is one node of the catalog tree.
type Category struct {
	ID       string        `json:"id"`
	Name     LocalizedName `json:"name"`
	ParentID string        `json:"parent_id"`
}

// CategoryStats is the payload of GET categories/{id}/stats.
type CategoryStats struct {
	Products      []Product  `json:"products"`
	Subcategories []Category `json:"subcategories"`
}

// Filial is a physical branch of the business.
type Filial struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Location types.Location `json:"location"`
}

// PhoneNumber is a branch contact phone selectable on an order.
type PhoneNumber struct {
	ID       string `json:"id"`
	FilialID string `json:"filial_id"`
	Number   string `json:"number"`
}

// Promocode is a discount rule owned by the backend.
type Promocode struct {
	ID          string                 `json:"id"`
	Code        string                 `json:"code"`
	Measurement enums.PromoMeasurement `json:"measurement"`
	Amount      int64                  `json:"amount"`
}

// User is a registered customer.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SavedLocation is a delivery point previously stored for a customer.
type SavedLocation struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Address  string         `json:"address"`
	Location types.Location `json:"location"`
}

// DeliveryQuote is the server-computed fee and resolved address for a point.
type DeliveryQuote struct {
	Address string `json:"address"`
	Cost    int64  `json:"cost"`
}

// OrderItemPayload is one flattened line item on the create-order wire call.
type OrderItemPayload struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// CreateOrderPayload is the body of POST orders. Location is a pointer so it
// can be omitted entirely for pickup orders.
type CreateOrderPayload struct {
	User          string               `json:"user,omitempty"`
	Phone         string               `json:"phone"`
	Comment       string               `json:"comment,omitempty"`
	Promocode     string               `json:"promocode,omitempty"`
	DeliveryType  enums.DeliveryMethod `json:"delivery_type"`
	Filial        string               `json:"filial,omitempty"`
	PhoneNumber   string               `json:"phone_number"`
	Location      *types.Location      `json:"location,omitempty"`
	ScheduledTime string               `json:"scheduled_time,omitempty"`
	PaymentType   enums.PaymentType    `json:"payment_type"`
	DeliveryPrice int64                `json:"delivery_price"`
	Items         []OrderItemPayload   `json:"items"`
}

// CreatedOrder is the subset of the create-order response the desk needs to
// route the operator to the new order.
type CreatedOrder struct {
	ID string `json:"id"`
}
