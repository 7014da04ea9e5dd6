package drafts

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otabekov/orderdesk-backend/api/responses"
	"github.com/otabekov/orderdesk-backend/api/validators"
	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/items"
	"github.com/otabekov/orderdesk-backend/internal/pricing"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

// quoteFetchTimeout bounds the detached delivery-quote fetch kicked off by a
// location change; it must outlive the originating request.
const quoteFetchTimeout = 15 * time.Second

// Refdata is the slice of the reference-data service the draft handlers
// consume.
type Refdata interface {
	Products(ctx context.Context) ([]upstream.Product, error)
	Promocodes(ctx context.Context) ([]upstream.Promocode, error)
	DeliveryQuote(ctx context.Context, loc types.Location) (*upstream.DeliveryQuote, error)
	GetUser(ctx context.Context, id string) (*upstream.User, error)
}

// Submitter places the order behind a draft id exactly once.
type Submitter interface {
	Submit(ctx context.Context, id string) (*upstream.CreatedOrder, error)
}

func Create(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := manager.Create()
		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func Get(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Cancel discards the draft outright. Drafts are never persisted, so this
// is idempotent.
func Cancel(manager *draft.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Discard(chi.URLParam(r, "id"))
		responses.WriteSuccess(w, map[string]string{"status": "discarded"})
	}
}

// SetField writes one draft field and, when the write moves the delivery
// pin, kicks off the quote fetch for the new point in the background.
func SetField(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req SetFieldRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := applyField(r.Context(), session, refdata, req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maybeFetchQuote(session, refdata, logg)

		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func applyField(ctx context.Context, session *draft.Session, refdata Refdata, req SetFieldRequest) error {
	switch req.Field {
	case draft.FieldCustomer:
		var customerID string
		if err := json.Unmarshal(req.Value, &customerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "customer expects a string id")
		}
		return session.SetCustomer(ctx, customerID, refdata)
	case draft.FieldLocation:
		var loc types.Location
		if err := json.Unmarshal(req.Value, &loc); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "location expects latitude and longitude")
		}
		return session.SetField(req.Field, loc)
	case draft.FieldLocationLat, draft.FieldLocationLng:
		var component float64
		if err := json.Unmarshal(req.Value, &component); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "coordinate expects a number")
		}
		return session.SetField(req.Field, component)
	default:
		var raw string
		if err := json.Unmarshal(req.Value, &raw); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "field expects a string value")
		}
		return session.SetField(req.Field, raw)
	}
}

// maybeFetchQuote starts at most one quote fetch for the draft's current
// location. A stale response is discarded by the session's key guard, so a
// fetch that loses the race is harmless.
func maybeFetchQuote(session *draft.Session, refdata Refdata, logg *logger.Logger) {
	snapshot := session.Snapshot()
	if !snapshot.NeedsQuote() {
		return
	}

	key := draft.QuoteKey(snapshot.Location)
	if !session.BeginQuote(key) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), quoteFetchTimeout)
		defer cancel()

		quote, err := refdata.DeliveryQuote(ctx, snapshot.Location)
		if err != nil {
			if logg != nil {
				logg.Error(logg.WithDraftID(ctx, session.ID), "delivery quote fetch failed", err)
			}
			session.FailQuote(key)
			return
		}
		session.ApplyQuote(key, quote)
	}()
}

// AddItem upserts one line item, resolving the product snapshot from the
// cached catalog.
func AddItem(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req AddItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := findProduct(r.Context(), refdata, req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session.UpdateItems(func(current []draft.LineItem) []draft.LineItem {
			return items.AddOrUpdate(current, *product, req.Quantity)
		})

		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func IncrementItem(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return itemOp(manager, refdata, logg, items.Increment)
}

func DecrementItem(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return itemOp(manager, refdata, logg, items.Decrement)
}

func RemoveItem(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return itemOp(manager, refdata, logg, items.Remove)
}

func itemOp(manager *draft.Manager, refdata Refdata, logg *logger.Logger, op func([]draft.LineItem, int) []draft.LineItem) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := chi.URLParam(r, "productID")
		found := false
		session.UpdateItems(func(current []draft.LineItem) []draft.LineItem {
			for i := range current {
				if current[i].ProductID == productID {
					found = true
					return op(current, i)
				}
			}
			return current
		})
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not in draft"))
			return
		}

		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Pricing returns just the derived breakdown for the draft.
func Pricing(manager *draft.Manager, refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := manager.Get(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := buildView(r.Context(), session, refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view.Pricing)
	}
}

// Submit validates and places the order. The draft survives any failure so
// the operator can correct and retry.
func Submit(submitter Submitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := submitter.Submit(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, SubmitResponse{OrderID: order.ID})
	}
}

func findProduct(ctx context.Context, refdata Refdata, productID string) (*upstream.Product, error) {
	products, err := refdata.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func buildView(ctx context.Context, session *draft.Session, refdata Refdata) (*DraftResponse, error) {
	snapshot := session.Snapshot()
	quote, pending := session.Quote()

	var promo *upstream.Promocode
	if id := snapshot.EffectivePromocodeID(); id != "" {
		promos, err := refdata.Promocodes(ctx)
		if err != nil {
			return nil, err
		}
		promo = pricing.ResolvePromocode(promos, id)
	}

	breakdown := pricing.Compute(pricing.Input{
		Items:          snapshot.Items,
		Promocode:      promo,
		DeliveryMethod: snapshot.DeliveryMethod,
		Quote:          quote,
		QuotePending:   pending,
	})

	return &DraftResponse{
		ID:           session.ID,
		Draft:        snapshot,
		Quote:        quote,
		QuotePending: pending,
		Pricing:      breakdown,
	}, nil
}
