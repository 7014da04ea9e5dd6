package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

type stubRefdata struct {
	products   []upstream.Product
	promocodes []upstream.Promocode
	users      []upstream.User
	quote      *upstream.DeliveryQuote
	quoteErr   error
	quoteCalls int
}

func (s *stubRefdata) Products(ctx context.Context) ([]upstream.Product, error) {
	return s.products, nil
}

func (s *stubRefdata) Promocodes(ctx context.Context) ([]upstream.Promocode, error) {
	return s.promocodes, nil
}

func (s *stubRefdata) DeliveryQuote(ctx context.Context, loc types.Location) (*upstream.DeliveryQuote, error) {
	s.quoteCalls++
	return s.quote, s.quoteErr
}

func (s *stubRefdata) GetUser(ctx context.Context, id string) (*upstream.User, error) {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

type stubSubmitter struct {
	order *upstream.CreatedOrder
	err   error
}

func (s *stubSubmitter) Submit(ctx context.Context, id string) (*upstream.CreatedOrder, error) {
	return s.order, s.err
}

func testRouter(manager *draft.Manager, refdata Refdata, submitter Submitter) http.Handler {
	r := chi.NewRouter()
	r.Post("/drafts", Create(manager, refdata, nil))
	r.Get("/drafts/{id}", Get(manager, refdata, nil))
	r.Delete("/drafts/{id}", Cancel(manager))
	r.Patch("/drafts/{id}/fields", SetField(manager, refdata, nil))
	r.Get("/drafts/{id}/pricing", Pricing(manager, refdata, nil))
	r.Post("/drafts/{id}/items", AddItem(manager, refdata, nil))
	r.Post("/drafts/{id}/items/{productID}/increment", IncrementItem(manager, refdata, nil))
	r.Post("/drafts/{id}/items/{productID}/decrement", DecrementItem(manager, refdata, nil))
	r.Delete("/drafts/{id}/items/{productID}", RemoveItem(manager, refdata, nil))
	r.Post("/drafts/{id}/submit", Submit(submitter, nil))
	return r
}

func decodeDraft(t *testing.T, body []byte) DraftResponse {
	t.Helper()
	var envelope struct {
		Data DraftResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestCreateDraftDefaults(t *testing.T) {
	manager := draft.NewManager()
	router := testRouter(manager, &stubRefdata{}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/drafts", nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	view := decodeDraft(t, resp.Body.Bytes())
	if view.ID == "" {
		t.Fatal("expected a draft id")
	}
	if view.Draft.Customer != draft.CustomerAnonymous {
		t.Fatalf("unexpected default customer: %q", view.Draft.Customer)
	}
	if view.Pricing.Total != 0 {
		t.Fatalf("empty draft must price to zero, got %d", view.Pricing.Total)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	router := testRouter(draft.NewManager(), &stubRefdata{}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/drafts/nope", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestSetFieldNormalizesPhone(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	router := testRouter(manager, &stubRefdata{}, nil)

	body := `{"field":"phone","value":"+998 (90) 123-45-67"}`
	req := httptest.NewRequest(http.MethodPatch, "/drafts/"+session.ID+"/fields", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeDraft(t, resp.Body.Bytes())
	if view.Draft.Phone != "998901234567" {
		t.Fatalf("phone not normalized: %q", view.Draft.Phone)
	}
}

func TestSetFieldRejectsUnknownField(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	router := testRouter(manager, &stubRefdata{}, nil)

	body := `{"field":"favorite_color","value":"green"}`
	req := httptest.NewRequest(http.MethodPatch, "/drafts/"+session.ID+"/fields", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSetCustomerAutoFillsPhone(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	refdata := &stubRefdata{users: []upstream.User{{ID: "u1", Name: "Aziza", Phone: "998935550101"}}}
	router := testRouter(manager, refdata, nil)

	body := `{"field":"customer","value":"u1"}`
	req := httptest.NewRequest(http.MethodPatch, "/drafts/"+session.ID+"/fields", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeDraft(t, resp.Body.Bytes())
	if view.Draft.Phone != "998935550101" {
		t.Fatalf("phone not auto-filled: %q", view.Draft.Phone)
	}
}

func TestSetLocationTriggersQuoteFetch(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	refdata := &stubRefdata{quote: &upstream.DeliveryQuote{Address: "Amir Temur 1", Cost: 15000}}
	router := testRouter(manager, refdata, nil)

	body := `{"field":"location","value":{"latitude":41.311081,"longitude":69.240562}}`
	req := httptest.NewRequest(http.MethodPatch, "/drafts/"+session.ID+"/fields", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	// The fetch runs detached from the request; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for {
		quote, pending := session.Quote()
		if quote != nil && !pending {
			if quote.Cost != 15000 {
				t.Fatalf("unexpected quote cost: %d", quote.Cost)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("quote never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddItemAndPricing(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	refdata := &stubRefdata{
		products: []upstream.Product{{ID: "p1", Price: 45000}},
	}
	router := testRouter(manager, refdata, nil)

	body := `{"product_id":"p1","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+session.ID+"/items", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	view := decodeDraft(t, resp.Body.Bytes())
	if len(view.Draft.Items) != 1 || view.Draft.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", view.Draft.Items)
	}
	if view.Pricing.Subtotal != 90000 {
		t.Fatalf("unexpected subtotal: %d", view.Pricing.Subtotal)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	router := testRouter(manager, &stubRefdata{}, nil)

	body := `{"product_id":"ghost","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+session.ID+"/items", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestItemCounterOps(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	refdata := &stubRefdata{products: []upstream.Product{{ID: "p1", Price: 10000}}}
	router := testRouter(manager, refdata, nil)

	addBody := `{"product_id":"p1","quantity":1}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/drafts/"+session.ID+"/items", strings.NewReader(addBody)))
	if resp.Code != http.StatusOK {
		t.Fatalf("add failed: %d", resp.Code)
	}

	base := fmt.Sprintf("/drafts/%s/items/p1", session.ID)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, base+"/increment", nil))
	view := decodeDraft(t, resp.Body.Bytes())
	if view.Draft.Items[0].Quantity != 2 {
		t.Fatalf("increment: got quantity %d", view.Draft.Items[0].Quantity)
	}

	// Decrement floors at one.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, base+"/decrement", nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, base+"/decrement", nil))
	view = decodeDraft(t, resp.Body.Bytes())
	if view.Draft.Items[0].Quantity != 1 {
		t.Fatalf("decrement floor: got quantity %d", view.Draft.Items[0].Quantity)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, base, nil))
	view = decodeDraft(t, resp.Body.Bytes())
	if len(view.Draft.Items) != 0 {
		t.Fatalf("remove: items remain %+v", view.Draft.Items)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, base+"/increment", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for removed product, got %d", resp.Code)
	}
}

func TestCancelDraft(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	router := testRouter(manager, &stubRefdata{}, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/drafts/"+session.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/drafts/"+session.ID, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancel, got %d", resp.Code)
	}
}

func TestSubmitRoutesOrderID(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	router := testRouter(manager, &stubRefdata{}, &stubSubmitter{order: &upstream.CreatedOrder{ID: "order-1"}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/drafts/"+session.ID+"/submit", nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data SubmitResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != "order-1" {
		t.Fatalf("unexpected order id: %q", envelope.Data.OrderID)
	}
}

func TestSubmitValidationBubblesDetails(t *testing.T) {
	manager := draft.NewManager()
	session := manager.Create()
	submitErr := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"phone": "Phone is required"})
	router := testRouter(manager, &stubRefdata{}, &stubSubmitter{err: submitErr})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/drafts/"+session.ID+"/submit", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Phone is required") {
		t.Fatalf("details missing from body: %s", resp.Body.String())
	}
}
