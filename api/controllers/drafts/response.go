package drafts

import (
	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/pricing"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
)

// DraftResponse is the full view the dashboard renders: the form state, the
// applied delivery quote, and the derived price breakdown.
type DraftResponse struct {
	ID           string                  `json:"id"`
	Draft        draft.Draft             `json:"draft"`
	Quote        *upstream.DeliveryQuote `json:"quote,omitempty"`
	QuotePending bool                    `json:"quote_pending"`
	Pricing      pricing.Breakdown       `json:"pricing"`
}

// SubmitResponse carries the upstream order id back to the dashboard so it
// can route the operator to the new order.
type SubmitResponse struct {
	OrderID string `json:"order_id"`
}
