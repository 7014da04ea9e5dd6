package draft

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/otabekov/orderdesk-backend/internal/fields"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

// Field paths accepted by SetField and Watch.
const (
	FieldCustomer       = "customer"
	FieldPhone          = "phone"
	FieldComment        = "comment"
	FieldPromocode      = "promocode_id"
	FieldDeliveryMethod = "delivery_method"
	FieldFilial         = "filial_id"
	FieldPhoneNumber    = "phone_number_id"
	FieldLocation       = "location"
	FieldLocationLat    = "location.latitude"
	FieldLocationLng    = "location.longitude"
	FieldScheduledTime  = "scheduled_time"
	FieldPaymentType    = "payment_type"
	FieldItems          = "items"
	FieldQuote          = "quote"
)

// Change notifies a watcher that a single field moved to a new revision.
type Change struct {
	Path     string
	Revision uint64
}

// UserLoader resolves a customer record for the phone auto-fill derivation.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*upstream.User, error)
}

type quoteState struct {
	key     string
	value   *upstream.DeliveryQuote
	pending bool
}

// Session owns one operator's in-progress draft. All access is serialized by
// the session's own lock; a draft never has a second concurrent editor.
type Session struct {
	ID string

	mu       sync.RWMutex
	draft    Draft
	quote    quoteState
	revision uint64
	watchers map[string]map[int]chan Change
	nextSub  int

	submitting atomic.Bool
}

func newSession() *Session {
	return &Session{
		ID:       uuid.NewString(),
		draft:    New(),
		watchers: map[string]map[int]chan Change{},
	}
}

// Snapshot returns a copy of the current draft, items included.
func (s *Session) Snapshot() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyDraftLocked()
}

func (s *Session) copyDraftLocked() Draft {
	d := s.draft
	d.Items = make([]LineItem, len(s.draft.Items))
	copy(d.Items, s.draft.Items)
	return d
}

// SetField writes one field of the draft. Values arrive as the JSON decoder
// produced them: strings for text and enum fields, float64 for coordinate
// components, types.Location for the whole location.
func (s *Session) SetField(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch path {
	case FieldPhone:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		s.draft.Phone = fields.NormalizePhone(raw)
	case FieldComment:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		s.draft.Comment = fields.ClampComment(raw)
	case FieldPromocode:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		s.draft.PromocodeID = raw
	case FieldDeliveryMethod:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		method, err := enums.ParseDeliveryMethod(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
		}
		// Switching method keeps the inactive field's value; it is simply
		// excluded from rendering and from the submission payload.
		s.draft.DeliveryMethod = method
	case FieldFilial:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		s.draft.FilialID = raw
	case FieldPhoneNumber:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		s.draft.PhoneNumberID = raw
	case FieldLocation:
		loc, ok := value.(types.Location)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "location requires latitude and longitude")
		}
		s.setLocationLocked(loc)
	case FieldLocationLat:
		lat, err := floatValue(path, value)
		if err != nil {
			return err
		}
		loc := s.draft.Location
		loc.Latitude = lat
		s.setLocationLocked(loc)
	case FieldLocationLng:
		lng, err := floatValue(path, value)
		if err != nil {
			return err
		}
		loc := s.draft.Location
		loc.Longitude = lng
		s.setLocationLocked(loc)
	case FieldScheduledTime:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		normalized, err := fields.ParseClock(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scheduled time")
		}
		s.draft.ScheduledTime = normalized
	case FieldPaymentType:
		raw, err := stringValue(path, value)
		if err != nil {
			return err
		}
		payment, err := enums.ParsePaymentType(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type")
		}
		s.draft.PaymentType = payment
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown field %q", path))
	}

	s.notifyLocked(path)
	return nil
}

// SetCustomer binds the draft to a registered customer, auto-filling the
// phone from the customer record, or to the anonymous sentinel, clearing it.
// This is the single permitted state-to-state derivation.
func (s *Session) SetCustomer(ctx context.Context, customerID string, users UserLoader) error {
	if customerID == "" || customerID == CustomerAnonymous {
		s.mu.Lock()
		s.draft.Customer = CustomerAnonymous
		s.draft.Phone = ""
		s.notifyLocked(FieldCustomer)
		s.notifyLocked(FieldPhone)
		s.mu.Unlock()
		return nil
	}

	if users == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "user loader not configured")
	}
	user, err := users.GetUser(ctx, customerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.draft.Customer = user.ID
	s.draft.Phone = fields.NormalizePhone(user.Phone)
	s.notifyLocked(FieldCustomer)
	s.notifyLocked(FieldPhone)
	s.mu.Unlock()
	return nil
}

// UpdateItems applies fn to a copy of the line items and stores the result.
func (s *Session) UpdateItems(fn func(items []LineItem) []LineItem) {
	s.mu.Lock()
	items := make([]LineItem, len(s.draft.Items))
	copy(items, s.draft.Items)
	s.draft.Items = fn(items)
	s.notifyLocked(FieldItems)
	s.mu.Unlock()
}

// Items returns a copy of the current line items.
func (s *Session) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]LineItem, len(s.draft.Items))
	copy(items, s.draft.Items)
	return items
}

func (s *Session) setLocationLocked(loc types.Location) {
	s.draft.Location = loc
	newKey := QuoteKey(loc)
	if newKey != s.quote.key {
		// Moving the pin discards any quote fetched for the old point.
		s.quote = quoteState{key: newKey}
	}
}

// QuoteKey derives the cache/suppression key for a location.
func QuoteKey(loc types.Location) string {
	if !loc.Valid() {
		return ""
	}
	return fmt.Sprintf("%.6f,%.6f", loc.Latitude, loc.Longitude)
}

// BeginQuote marks a quote fetch as in flight for the given key. It reports
// false when the key no longer matches the draft's location, or a quote for
// it is already applied, so the caller can skip the fetch.
func (s *Session) BeginQuote(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" || key != s.quote.key {
		return false
	}
	if s.quote.value != nil || s.quote.pending {
		return false
	}
	s.quote.pending = true
	return true
}

// ApplyQuote stores a resolved quote. Responses for a superseded key are
// discarded, never applied; last request wins by key, not by arrival order.
func (s *Session) ApplyQuote(key string, quote *upstream.DeliveryQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != s.quote.key {
		return
	}
	s.quote.value = quote
	s.quote.pending = false
	s.notifyLocked(FieldQuote)
}

// FailQuote clears the pending flag for a failed fetch of the current key.
func (s *Session) FailQuote(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != s.quote.key {
		return
	}
	s.quote.pending = false
	s.notifyLocked(FieldQuote)
}

// Quote returns the quote applied for the draft's current location and
// whether a fetch for it is still in flight.
func (s *Session) Quote() (*upstream.DeliveryQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote.value, s.quote.pending
}

// TryBeginSubmit flips the submit guard; false means a submission is already
// in flight.
func (s *Session) TryBeginSubmit() bool {
	return s.submitting.CompareAndSwap(false, true)
}

// EndSubmit releases the submit guard after a terminal response.
func (s *Session) EndSubmit() {
	s.submitting.Store(false)
}

// Watch subscribes to changes of a single field path. Subscriptions are
// granular: an items watcher does not fire on comment keystrokes. The
// returned cancel func must be called to release the subscription.
func (s *Session) Watch(path string) (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, 16)
	if s.watchers[path] == nil {
		s.watchers[path] = map[int]chan Change{}
	}
	id := s.nextSub
	s.nextSub++
	s.watchers[path][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.watchers[path]; ok {
			delete(subs, id)
		}
	}
	return ch, cancel
}

func (s *Session) notifyLocked(path string) {
	s.revision++
	change := Change{Path: path, Revision: s.revision}
	for _, ch := range s.watchers[path] {
		select {
		case ch <- change:
		default:
			// A slow watcher drops updates rather than blocking edits.
		}
	}
}

// Manager tracks live draft sessions by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*Session{}}
}

// Create opens a fresh draft session with the documented defaults.
func (m *Manager) Create() *Session {
	session := newSession()
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session
}

// Get finds a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft session not found")
	}
	return session, nil
}

// Discard drops a session outright; used on successful submission and on
// explicit cancellation. Drafts are never persisted.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func stringValue(path string, value any) (string, error) {
	raw, ok := value.(string)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("field %q expects a string", path))
	}
	return raw, nil
}

func floatValue(path string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("field %q expects a number", path))
	}
}
