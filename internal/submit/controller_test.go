package submit

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

type placerFunc func(ctx context.Context, payload upstream.CreateOrderPayload) (*upstream.CreatedOrder, error)

func (f placerFunc) CreateOrder(ctx context.Context, payload upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
	return f(ctx, payload)
}

func testProduct(id string, price int64) upstream.Product {
	return upstream.Product{ID: id, Price: price}
}

// fillDeliveryDraft drives a session to a submittable delivery order.
func fillDeliveryDraft(t *testing.T, session *draft.Session) {
	t.Helper()
	require.NoError(t, session.SetField(draft.FieldPhone, "+998 90 123-45-67"))
	require.NoError(t, session.SetField(draft.FieldPhoneNumber, "pn1"))
	require.NoError(t, session.SetField(draft.FieldLocation, types.Location{Latitude: 41.311081, Longitude: 69.240562}))
	session.UpdateItems(func(items []draft.LineItem) []draft.LineItem {
		return append(items, draft.LineItem{ProductID: "p1", Product: testProduct("p1", 45000), Quantity: 2})
	})

	key := draft.QuoteKey(session.Snapshot().Location)
	require.True(t, session.BeginQuote(key))
	session.ApplyQuote(key, &upstream.DeliveryQuote{Address: "Amir Temur 1", Cost: 15000})
}

func TestSubmitUnknownDraft(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	ctrl, err := NewController(manager, placerFunc(func(context.Context, upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		t.Fatal("backend must not be called")
		return nil, nil
	}), nil, nil)
	require.NoError(t, err)

	_, err = ctrl.Submit(context.Background(), "no-such-draft")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSubmitRejectsInvalidDraft(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	var calls atomic.Int32
	ctrl, err := NewController(manager, placerFunc(func(context.Context, upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		calls.Add(1)
		return &upstream.CreatedOrder{ID: "o1"}, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	_, err = ctrl.Submit(context.Background(), session.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	require.Equal(t, int32(0), calls.Load())

	// The session survived rejection and the guard released.
	_, err = manager.Get(session.ID)
	require.NoError(t, err)
	require.True(t, session.TryBeginSubmit())
	session.EndSubmit()
}

func TestSubmitWaitsForPendingQuote(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	ctrl, err := NewController(manager, placerFunc(func(context.Context, upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		t.Fatal("backend must not be called")
		return nil, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	require.NoError(t, session.SetField(draft.FieldPhone, "998901234567"))
	require.NoError(t, session.SetField(draft.FieldPhoneNumber, "pn1"))
	require.NoError(t, session.SetField(draft.FieldLocation, types.Location{Latitude: 41.3, Longitude: 69.2}))
	session.UpdateItems(func(items []draft.LineItem) []draft.LineItem {
		return append(items, draft.LineItem{ProductID: "p1", Product: testProduct("p1", 10000), Quantity: 1})
	})
	require.True(t, session.BeginQuote(draft.QuoteKey(session.Snapshot().Location)))

	_, err = ctrl.Submit(context.Background(), session.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestSubmitDeliveryOrder(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	var got upstream.CreateOrderPayload
	ctrl, err := NewController(manager, placerFunc(func(_ context.Context, payload upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		got = payload
		return &upstream.CreatedOrder{ID: "order-7"}, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	fillDeliveryDraft(t, session)

	order, err := ctrl.Submit(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, "order-7", order.ID)

	require.Empty(t, got.User, "anonymous drafts omit the user")
	require.Equal(t, "998901234567", got.Phone)
	require.Equal(t, enums.DeliveryMethodDeliver, got.DeliveryType)
	require.Empty(t, got.Filial, "delivery orders carry no filial")
	require.NotNil(t, got.Location)
	require.EqualValues(t, 15000, got.DeliveryPrice)
	require.Equal(t, []upstream.OrderItemPayload{{Product: "p1", Quantity: 2}}, got.Items)

	// Success discards the session.
	_, err = manager.Get(session.ID)
	require.Error(t, err)
}

func TestSubmitPickupOrder(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	var got upstream.CreateOrderPayload
	ctrl, err := NewController(manager, placerFunc(func(_ context.Context, payload upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		got = payload
		return &upstream.CreatedOrder{ID: "order-8"}, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	require.NoError(t, session.SetField(draft.FieldDeliveryMethod, "pickup"))
	require.NoError(t, session.SetField(draft.FieldPhone, "998935551122"))
	require.NoError(t, session.SetField(draft.FieldPhoneNumber, "pn2"))
	require.NoError(t, session.SetField(draft.FieldFilial, "f1"))
	session.UpdateItems(func(items []draft.LineItem) []draft.LineItem {
		return append(items, draft.LineItem{ProductID: "p9", Product: testProduct("p9", 30000), Quantity: 1})
	})

	_, err = ctrl.Submit(context.Background(), session.ID)
	require.NoError(t, err)

	require.Equal(t, "f1", got.Filial)
	require.Nil(t, got.Location, "pickup orders omit the location")
	require.Zero(t, got.DeliveryPrice)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	fail := true
	ctrl, err := NewController(manager, placerFunc(func(context.Context, upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		if fail {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream unavailable")
		}
		return &upstream.CreatedOrder{ID: "order-9"}, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	fillDeliveryDraft(t, session)

	_, err = ctrl.Submit(context.Background(), session.ID)
	require.Error(t, err)

	// All entered state is preserved for the retry.
	kept, err := manager.Get(session.ID)
	require.NoError(t, err)
	snapshot := kept.Snapshot()
	require.Equal(t, "998901234567", snapshot.Phone)
	require.Len(t, snapshot.Items, 1)

	fail = false
	order, err := ctrl.Submit(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, "order-9", order.ID)
}

func TestSubmitIsSingleFlight(t *testing.T) {
	t.Parallel()

	manager := draft.NewManager()
	var calls atomic.Int32
	gate := make(chan struct{})
	ctrl, err := NewController(manager, placerFunc(func(context.Context, upstream.CreateOrderPayload) (*upstream.CreatedOrder, error) {
		calls.Add(1)
		<-gate
		return &upstream.CreatedOrder{ID: "order-10"}, nil
	}), nil, nil)
	require.NoError(t, err)

	session := manager.Create()
	fillDeliveryDraft(t, session)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = ctrl.Submit(context.Background(), session.ID)
	}()

	// Wait for the first submission to hold the guard inside the backend call.
	for calls.Load() == 0 {
		runtime.Gosched()
	}

	for i := 0; i < 3; i++ {
		_, err := ctrl.Submit(context.Background(), session.ID)
		require.Error(t, err)
		require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	}

	close(gate)
	wg.Wait()

	require.NoError(t, firstErr)
	require.Equal(t, int32(1), calls.Load(), "only one submission may reach the backend")
}

func TestBuildPayloadNormalizesSentinels(t *testing.T) {
	t.Parallel()

	d := draft.New()
	d.Phone = "998900000000"
	d.PromocodeID = draft.PromoNone
	d.PhoneNumberID = "pn1"
	d.Location = types.Location{Latitude: 41.3, Longitude: 69.2}
	d.Items = []draft.LineItem{{ProductID: "p1", Product: testProduct("p1", 5000), Quantity: 3}}

	payload := BuildPayload(d, &upstream.DeliveryQuote{Cost: 8000})
	require.Empty(t, payload.Promocode, `the "none" sentinel never reaches the wire`)
	require.Empty(t, payload.User)

	d.Customer = "u42"
	d.PromocodeID = "promo-1"
	payload = BuildPayload(d, nil)
	require.Equal(t, "u42", payload.User)
	require.Equal(t, "promo-1", payload.Promocode)
}
