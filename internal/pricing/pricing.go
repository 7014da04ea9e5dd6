package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/enums"
)

// Breakdown is the derived price panel for a draft. Amounts are in soums.
type Breakdown struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`
	// QuotePending tells the presentation layer to show a placeholder in
	// place of the delivery fee. The total still uses 0 for the fee while
	// the quote is in flight.
	QuotePending bool `json:"quote_pending"`
}

// Input is an explicit snapshot of everything the engine reads. The engine
// itself holds no state; callers recompute on every relevant change.
type Input struct {
	Items          []draft.LineItem
	Promocode      *upstream.Promocode
	DeliveryMethod enums.DeliveryMethod
	Quote          *upstream.DeliveryQuote
	QuotePending   bool
}

var hundred = decimal.NewFromInt(100)

// Compute derives subtotal, discount, delivery fee and total.
func Compute(in Input) Breakdown {
	subtotal := decimal.Zero
	for _, item := range in.Items {
		line := decimal.NewFromInt(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}

	discount := decimal.Zero
	if in.Promocode != nil {
		switch in.Promocode.Measurement {
		case enums.PromoMeasurementPercent:
			discount = subtotal.Mul(decimal.NewFromInt(in.Promocode.Amount)).Div(hundred)
		case enums.PromoMeasurementAbsolute:
			// Fixed-amount promocodes are not capped to the subtotal; a
			// large enough code drives the total negative.
			discount = decimal.NewFromInt(in.Promocode.Amount)
		}
	}

	fee := decimal.Zero
	pending := false
	if in.DeliveryMethod == enums.DeliveryMethodDeliver {
		if in.Quote != nil {
			fee = decimal.NewFromInt(in.Quote.Cost)
		}
		pending = in.QuotePending && in.Quote == nil
	}

	total := subtotal.Sub(discount).Add(fee)

	return Breakdown{
		Subtotal:     subtotal.Round(0).IntPart(),
		Discount:     discount.Round(0).IntPart(),
		DeliveryFee:  fee.Round(0).IntPart(),
		Total:        total.Round(0).IntPart(),
		QuotePending: pending,
	}
}

// ResolvePromocode finds the selected promocode in the fetched catalog; an
// empty id or an unknown id yields nil, which prices as "no discount".
func ResolvePromocode(promos []upstream.Promocode, id string) *upstream.Promocode {
	if id == "" {
		return nil
	}
	for i := range promos {
		if promos[i].ID == id {
			return &promos[i]
		}
	}
	return nil
}
