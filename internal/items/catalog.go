package items

import (
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/pagination"
)

// Browser navigates the catalog tree for the item picker: root categories,
// then subcategories, then a leaf product list. Search filters whatever
// level is currently visible.
type Browser struct {
	categories []upstream.Category
	products   []upstream.Product
	stack      []string
	query      string
}

// Level is the currently visible slice of the catalog. Exactly one of
// Categories/Products is populated unless the node mixes both.
type Level struct {
	CategoryID string              `json:"category_id"`
	Categories []upstream.Category `json:"categories"`
	Products   []upstream.Product  `json:"products"`
	HasMore    bool                `json:"has_more"`
}

// NewBrowser builds a browser over the fetched catalogs.
func NewBrowser(categories []upstream.Category, products []upstream.Product) *Browser {
	return &Browser{categories: categories, products: products}
}

// Enter descends into a category. The search query resets on navigation.
func (b *Browser) Enter(categoryID string) error {
	for _, c := range b.categories {
		if c.ID == categoryID {
			b.stack = append(b.stack, categoryID)
			b.query = ""
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
}

// Back pops one level; false at the root.
func (b *Browser) Back() bool {
	if len(b.stack) == 0 {
		return false
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.query = ""
	return true
}

// SetQuery records the (already debounced) search text applied to the
// visible level.
func (b *Browser) SetQuery(query string) {
	b.query = query
}

// Current returns the category id the browser is inside, empty at the root.
func (b *Browser) Current() string {
	if len(b.stack) == 0 {
		return ""
	}
	return b.stack[len(b.stack)-1]
}

// Level assembles the visible level, search applied, with the product list
// windowed so arbitrarily large catalogs stay cheap to render.
func (b *Browser) Level(params pagination.Params) Level {
	current := b.Current()
	level := Level{CategoryID: current}

	for _, c := range b.categories {
		if c.ParentID != current {
			continue
		}
		if !c.Name.Matches(b.query) {
			continue
		}
		level.Categories = append(level.Categories, c)
	}

	// Products are listed on leaf levels only; intermediate nodes navigate.
	if current != "" && len(level.Categories) == 0 {
		var matched []upstream.Product
		for _, p := range b.products {
			if p.CategoryID != current {
				continue
			}
			if !p.Name.Matches(b.query) {
				continue
			}
			matched = append(matched, p)
		}
		level.Products = pagination.Window(matched, params)
		level.HasMore = pagination.HasMore(len(matched), params)
	}

	return level
}

// FlatProducts windows the whole flat catalog, search applied, for the
// non-hierarchical picker view.
func (b *Browser) FlatProducts(params pagination.Params) ([]upstream.Product, bool) {
	var matched []upstream.Product
	for _, p := range b.products {
		if !p.Name.Matches(b.query) {
			continue
		}
		matched = append(matched, p)
	}
	return pagination.Window(matched, params), pagination.HasMore(len(matched), params)
}
