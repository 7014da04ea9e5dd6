package catalog

import (
	"context"
	"net/http"
	"strings"

	"github.com/otabekov/orderdesk-backend/api/responses"
	"github.com/otabekov/orderdesk-backend/api/validators"
	"github.com/otabekov/orderdesk-backend/internal/items"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
	"github.com/otabekov/orderdesk-backend/pkg/pagination"
)

// Refdata is the slice of the reference-data service the picker consumes.
type Refdata interface {
	Categories(ctx context.Context) ([]upstream.Category, error)
	Products(ctx context.Context) ([]upstream.Product, error)
}

// SearchResponse is the flat product list for a catalog-wide search.
type SearchResponse struct {
	Products []upstream.Product `json:"products"`
	HasMore  bool               `json:"has_more"`
}

// Browse serves one level of the item picker: root categories when no
// category is given, subcategories or the leaf product list below one.
// The search query filters the visible level.
func Browse(refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := queryParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		browser, err := buildBrowser(r.Context(), refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if categoryID := strings.TrimSpace(r.URL.Query().Get("category")); categoryID != "" {
			if err := browser.Enter(categoryID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		browser.SetQuery(strings.TrimSpace(r.URL.Query().Get("search")))

		responses.WriteSuccess(w, browser.Level(params))
	}
}

// Search windows the whole flat catalog, ignoring the category tree.
func Search(refdata Refdata, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := queryParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		browser, err := buildBrowser(r.Context(), refdata)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		browser.SetQuery(strings.TrimSpace(r.URL.Query().Get("search")))

		products, hasMore := browser.FlatProducts(params)
		responses.WriteSuccess(w, SearchResponse{Products: products, HasMore: hasMore})
	}
}

func buildBrowser(ctx context.Context, refdata Refdata) (*items.Browser, error) {
	categories, err := refdata.Categories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := refdata.Products(ctx)
	if err != nil {
		return nil, err
	}
	return items.NewBrowser(categories, products), nil
}

func queryParams(r *http.Request) (pagination.Params, error) {
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Offset: offset, Limit: limit}, nil
}
