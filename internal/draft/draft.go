package draft

import (
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/enums"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

// CustomerAnonymous is the sentinel used when the operator takes an order
// without binding it to a registered customer.
const CustomerAnonymous = "anonymous"

// PromoNone is the sentinel some pickers emit for "no promocode". It is
// normalized to the empty string before pricing and submission.
const PromoNone = "none"

// LineItem is one product-and-quantity pair within a draft. Product is the
// catalog record captured at add time so pricing and display never depend on
// the catalog being refetched.
type LineItem struct {
	ProductID string           `json:"product_id"`
	Product   upstream.Product `json:"product"`
	Quantity  int              `json:"quantity"`
}

// Draft is the full form state of an order being composed.
type Draft struct {
	Customer       string               `json:"customer"`
	Phone          string               `json:"phone"`
	Comment        string               `json:"comment"`
	PromocodeID    string               `json:"promocode_id"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	FilialID       string               `json:"filial_id"`
	PhoneNumberID  string               `json:"phone_number_id"`
	Location       types.Location       `json:"location"`
	ScheduledTime  string               `json:"scheduled_time"`
	PaymentType    enums.PaymentType    `json:"payment_type"`
	Items          []LineItem           `json:"items"`
}

// New returns an empty draft with the documented defaults.
func New() Draft {
	return Draft{
		Customer:       CustomerAnonymous,
		DeliveryMethod: enums.DeliveryMethodDeliver,
		PaymentType:    enums.PaymentTypeCash,
		Items:          []LineItem{},
	}
}

// EffectivePromocodeID normalizes the "none" sentinel away.
func (d Draft) EffectivePromocodeID() string {
	if d.PromocodeID == PromoNone {
		return ""
	}
	return d.PromocodeID
}

// NeedsQuote reports whether the draft's current state calls for a delivery
// quote: delivery mode with a usable location.
func (d Draft) NeedsQuote() bool {
	return d.DeliveryMethod == enums.DeliveryMethodDeliver && d.Location.Valid()
}
