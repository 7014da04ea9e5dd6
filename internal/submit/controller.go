package submit

import (
	"context"
	"fmt"

	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
	"github.com/otabekov/orderdesk-backend/pkg/metrics"
)

// OrderPlacer is the slice of the upstream client the controller consumes.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, payload upstream.CreateOrderPayload) (*upstream.CreatedOrder, error)
}

// Controller turns a validated draft into a placed order exactly once.
type Controller struct {
	manager *draft.Manager
	orders  OrderPlacer
	metrics *metrics.UpstreamMetrics
	log     *logger.Logger
}

// NewController wires the submission path. The metrics and logger arguments
// may be nil.
func NewController(manager *draft.Manager, orders OrderPlacer, m *metrics.UpstreamMetrics, log *logger.Logger) (*Controller, error) {
	if manager == nil {
		return nil, fmt.Errorf("draft manager required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order placer required")
	}
	return &Controller{manager: manager, orders: orders, metrics: m, log: log}, nil
}

// Submit validates the draft behind id and places the order. The session is
// discarded only after the upstream accepts the order; any failure leaves the
// draft intact for the operator to correct and retry.
func (c *Controller) Submit(ctx context.Context, id string) (*upstream.CreatedOrder, error) {
	session, err := c.manager.Get(id)
	if err != nil {
		return nil, err
	}

	if !session.TryBeginSubmit() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a submission for this draft is already in flight")
	}
	defer session.EndSubmit()

	snapshot := session.Snapshot()
	if err := draft.Validate(snapshot); err != nil {
		c.observe("rejected")
		return nil, err
	}

	quote, pending := session.Quote()
	if snapshot.NeedsQuote() && (pending || quote == nil) {
		c.observe("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery price is still being calculated")
	}

	payload := BuildPayload(snapshot, quote)
	order, err := c.orders.CreateOrder(ctx, payload)
	if err != nil {
		c.observe("failure")
		if c.log != nil {
			c.log.Error(c.withDraft(ctx, id), "order submission failed", err)
		}
		return nil, err
	}

	c.manager.Discard(id)
	c.observe("success")
	if c.log != nil {
		c.log.Info(c.withDraft(ctx, id), "order placed")
	}
	return order, nil
}

// BuildPayload flattens a draft into the upstream create-order shape. Pickup
// orders carry the filial and no location; delivery orders carry the location
// and the quoted fee and no filial.
func BuildPayload(d draft.Draft, quote *upstream.DeliveryQuote) upstream.CreateOrderPayload {
	payload := upstream.CreateOrderPayload{
		Phone:         d.Phone,
		Comment:       d.Comment,
		Promocode:     d.EffectivePromocodeID(),
		DeliveryType:  d.DeliveryMethod,
		PhoneNumber:   d.PhoneNumberID,
		ScheduledTime: d.ScheduledTime,
		PaymentType:   d.PaymentType,
		Items:         make([]upstream.OrderItemPayload, 0, len(d.Items)),
	}
	if d.Customer != draft.CustomerAnonymous {
		payload.User = d.Customer
	}
	switch d.DeliveryMethod {
	case enums.DeliveryMethodPickup:
		payload.Filial = d.FilialID
	case enums.DeliveryMethodDeliver:
		loc := d.Location
		payload.Location = &loc
		if quote != nil {
			payload.DeliveryPrice = quote.Cost
		}
	}
	for _, item := range d.Items {
		payload.Items = append(payload.Items, upstream.OrderItemPayload{
			Product:  item.ProductID,
			Quantity: item.Quantity,
		})
	}
	return payload
}

func (c *Controller) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.IncSubmit(outcome)
	}
}

func (c *Controller) withDraft(ctx context.Context, id string) context.Context {
	return c.log.WithDraftID(ctx, id)
}
