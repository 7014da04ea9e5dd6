package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/config"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/types"
)

// Backend is the slice of the upstream client the accessors consume.
type Backend interface {
	Filials(ctx context.Context) ([]upstream.Filial, error)
	Products(ctx context.Context) ([]upstream.Product, error)
	Promocodes(ctx context.Context) ([]upstream.Promocode, error)
	Users(ctx context.Context) ([]upstream.User, error)
	Categories(ctx context.Context) ([]upstream.Category, error)
	PhoneNumbers(ctx context.Context) ([]upstream.PhoneNumber, error)
	CategoryStats(ctx context.Context, categoryID string) (*upstream.CategoryStats, error)
	UserLocations(ctx context.Context, userID string) ([]upstream.SavedLocation, error)
	DeliveryPrice(ctx context.Context, loc types.Location) (*upstream.DeliveryQuote, error)
}

// Service fetches and caches reference data for the order desk.
type Service struct {
	backend Backend
	cache   *Cache
	ttl     config.CacheConfig
}

// NewService builds the accessor service over the given backend and cache.
func NewService(backend Backend, cache *Cache, ttl config.CacheConfig) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if cache == nil {
		cache = NewCache(nil)
	}
	return &Service{backend: backend, cache: cache, ttl: ttl}, nil
}

func (s *Service) Filials(ctx context.Context) ([]upstream.Filial, error) {
	return Fetch(ctx, s.cache, "filials", "all", s.ttl.CatalogTTL, s.backend.Filials)
}

func (s *Service) Products(ctx context.Context) ([]upstream.Product, error) {
	return Fetch(ctx, s.cache, "products", "all", s.ttl.CatalogTTL, s.backend.Products)
}

func (s *Service) Promocodes(ctx context.Context) ([]upstream.Promocode, error) {
	return Fetch(ctx, s.cache, "promocodes", "all", s.ttl.CatalogTTL, s.backend.Promocodes)
}

func (s *Service) Users(ctx context.Context) ([]upstream.User, error) {
	return Fetch(ctx, s.cache, "users", "all", s.ttl.CatalogTTL, s.backend.Users)
}

func (s *Service) Categories(ctx context.Context) ([]upstream.Category, error) {
	return Fetch(ctx, s.cache, "categories", "all", s.ttl.CatalogTTL, s.backend.Categories)
}

func (s *Service) PhoneNumbers(ctx context.Context) ([]upstream.PhoneNumber, error) {
	return Fetch(ctx, s.cache, "phone-numbers", "all", s.ttl.CatalogTTL, s.backend.PhoneNumbers)
}

func (s *Service) CategoryStats(ctx context.Context, categoryID string) (*upstream.CategoryStats, error) {
	return Fetch(ctx, s.cache, "category-stats", categoryID, s.ttl.CatalogTTL, func(ctx context.Context) (*upstream.CategoryStats, error) {
		return s.backend.CategoryStats(ctx, categoryID)
	})
}

func (s *Service) UserLocations(ctx context.Context, userID string) ([]upstream.SavedLocation, error) {
	return Fetch(ctx, s.cache, "locations", userID, s.ttl.CatalogTTL, func(ctx context.Context) ([]upstream.SavedLocation, error) {
		return s.backend.UserLocations(ctx, userID)
	})
}

// DeliveryQuote prices delivery to a point. It short-circuits without a
// request when the location is not usable.
func (s *Service) DeliveryQuote(ctx context.Context, loc types.Location) (*upstream.DeliveryQuote, error) {
	if !loc.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid location is required for a delivery quote")
	}
	key := draft.QuoteKey(loc)
	return Fetch(ctx, s.cache, "quote", key, s.quoteTTL(), func(ctx context.Context) (*upstream.DeliveryQuote, error) {
		return s.backend.DeliveryPrice(ctx, loc)
	})
}

// GetUser resolves one customer from the cached user list; it implements
// draft.UserLoader for the phone auto-fill derivation.
func (s *Service) GetUser(ctx context.Context, id string) (*upstream.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *Service) quoteTTL() time.Duration {
	if s.ttl.QuoteTTL > 0 {
		return s.ttl.QuoteTTL
	}
	return 30 * time.Second
}

var _ draft.UserLoader = (*Service)(nil)
