package inventory

import (
	"context"
	"sort"

	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// Store composes the generic observable store with inventory-specific state:
// an independently refreshed low-stock sub-collection and a category summary
// derived from Items.
type Store struct {
	*resource.Store[Item]

	// LowStock holds the low-stock sub-collection. Refresh it with
	// LowStock.FetchAll; it follows the same transition rules as the main
	// collection but races independently.
	LowStock *resource.Store[Item]

	ctrl *Controller
}

// NewStore creates an inventory store driven by ctrl.
func NewStore(ctrl *Controller) *Store {
	return &Store{
		Store:    resource.NewStore[Item](ctrl),
		LowStock: resource.NewStore[Item](lowStockAPI{ctrl: ctrl}),
		ctrl:     ctrl,
	}
}

// FetchByCategory replaces Items with the category-filtered listing.
func (s *Store) FetchByCategory(ctx context.Context, category string) {
	s.FetchWith(ctx, func(ctx context.Context) ([]Item, error) {
		return s.ctrl.ListByCategory(ctx, category)
	})
}

// UpdateQuantity applies a quantity-only partial update through the standard
// transitions.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	s.MutateWith(ctx, id, func(ctx context.Context) (Item, error) {
		return s.ctrl.UpdateQuantity(ctx, id, quantity)
	})
}

// Categories projects the distinct category values present in Items, sorted.
func (s *Store) Categories() []string {
	seen := map[string]struct{}{}
	for _, item := range s.State().Items {
		if item.Category != "" {
			seen[item.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// lowStockAPI adapts the controller so the low-stock sub-collection can be a
// store of its own: listing goes through the dedicated sub-path, writes fall
// through to the main resource.
type lowStockAPI struct {
	ctrl *Controller
}

func (a lowStockAPI) List(ctx context.Context, _ map[string]string) ([]Item, error) {
	return a.ctrl.ListLowStock(ctx)
}

func (a lowStockAPI) Get(ctx context.Context, id string) (Item, error) {
	return a.ctrl.Get(ctx, id)
}

func (a lowStockAPI) Create(ctx context.Context, item Item) (Item, error) {
	return a.ctrl.Create(ctx, item)
}

func (a lowStockAPI) Update(ctx context.Context, id string, patch resource.Patch) (Item, error) {
	return a.ctrl.Update(ctx, id, patch)
}

func (a lowStockAPI) Delete(ctx context.Context, id string) error {
	return a.ctrl.Delete(ctx, id)
}
