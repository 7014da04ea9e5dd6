package items

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/pagination"
)

func testCatalog() ([]upstream.Category, []upstream.Product) {
	categories := []upstream.Category{
		{ID: "food", Name: upstream.LocalizedName{En: "Food"}},
		{ID: "drinks", Name: upstream.LocalizedName{En: "Drinks"}},
		{ID: "soups", Name: upstream.LocalizedName{En: "Soups"}, ParentID: "food"},
		{ID: "grill", Name: upstream.LocalizedName{En: "Grill"}, ParentID: "food"},
	}
	products := []upstream.Product{
		{ID: "p1", Name: upstream.LocalizedName{En: "Mastava", Uz: "Mastava"}, Price: 28000, CategoryID: "soups"},
		{ID: "p2", Name: upstream.LocalizedName{En: "Shurpa"}, Price: 30000, CategoryID: "soups"},
		{ID: "p3", Name: upstream.LocalizedName{En: "Cola"}, Price: 9000, CategoryID: "drinks"},
	}
	return categories, products
}

func TestBrowserNavigation(t *testing.T) {
	t.Parallel()

	b := NewBrowser(testCatalog())

	root := b.Level(pagination.Params{})
	require.Len(t, root.Categories, 2)
	require.Empty(t, root.Products, "root shows categories only")

	require.NoError(t, b.Enter("food"))
	level := b.Level(pagination.Params{})
	require.Len(t, level.Categories, 2)

	require.NoError(t, b.Enter("soups"))
	level = b.Level(pagination.Params{})
	require.Empty(t, level.Categories)
	require.Len(t, level.Products, 2, "leaf level lists its products")

	require.True(t, b.Back())
	require.Equal(t, "food", b.Current())
	require.True(t, b.Back())
	require.True(t, b.Back())
	require.False(t, b.Back(), "back at the root is a no-op")
}

func TestBrowserEnterUnknownCategory(t *testing.T) {
	t.Parallel()

	b := NewBrowser(testCatalog())
	require.Error(t, b.Enter("desserts"))
}

func TestBrowserSearchFiltersVisibleLevel(t *testing.T) {
	t.Parallel()

	b := NewBrowser(testCatalog())
	require.NoError(t, b.Enter("food"))
	require.NoError(t, b.Enter("soups"))

	b.SetQuery("mas")
	level := b.Level(pagination.Params{})
	require.Len(t, level.Products, 1)
	require.Equal(t, "p1", level.Products[0].ID)

	b.SetQuery("MASTAVA")
	level = b.Level(pagination.Params{})
	require.Len(t, level.Products, 1, "search is case-insensitive")

	// Navigation resets the query.
	require.True(t, b.Back())
	require.NoError(t, b.Enter("soups"))
	level = b.Level(pagination.Params{})
	require.Len(t, level.Products, 2)
}

func TestFlatProductsWindowing(t *testing.T) {
	t.Parallel()

	var products []upstream.Product
	for i := 0; i < 130; i++ {
		products = append(products, upstream.Product{
			ID:   fmt.Sprintf("p%03d", i),
			Name: upstream.LocalizedName{En: fmt.Sprintf("Dish %03d", i)},
		})
	}
	b := NewBrowser(nil, products)

	window, more := b.FlatProducts(pagination.Params{Offset: 0, Limit: 50})
	require.Len(t, window, 50)
	require.True(t, more)

	window, more = b.FlatProducts(pagination.Params{Offset: 100, Limit: 50})
	require.Len(t, window, 30)
	require.False(t, more)
}

func TestDebouncerCoalescesTriggers(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	d := NewDebouncer(20 * time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Trigger(func() { fired.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		500*time.Millisecond, 5*time.Millisecond,
		"rapid triggers must collapse into one callback")

	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestDebouncerStop(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	d := NewDebouncer(10 * time.Millisecond)
	d.Trigger(func() { fired.Add(1) })
	d.Stop()

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, fired.Load())
}
