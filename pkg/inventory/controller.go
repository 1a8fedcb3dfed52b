// Package inventory provides the typed client and observable store for the
// ice-plant inventory resource.
package inventory

import (
	"context"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// Endpoint is the inventory resource path, relative to the API base.
const Endpoint = "inventory/"

// Controller extends the generic CRUD facade with inventory-specific
// operations.
type Controller struct {
	*resource.Controller[Item]
}

// NewController binds an inventory controller to client.
func NewController(client *iceapi.Client) (*Controller, error) {
	base, err := resource.NewController[Item](client, Endpoint)
	if err != nil {
		return nil, err
	}
	return &Controller{Controller: base}, nil
}

// ListByCategory lists items matching one category.
func (c *Controller) ListByCategory(ctx context.Context, category string) ([]Item, error) {
	return c.List(ctx, map[string]string{"category": category})
}

// ListLowStock lists items at or below their low-stock threshold via the
// dedicated low-stock sub-path.
func (c *Controller) ListLowStock(ctx context.Context) ([]Item, error) {
	items, err := iceapi.Get[[]Item](ctx, c.Client(), Endpoint+"low-stock/", nil)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateQuantity applies a quantity-only partial update.
func (c *Controller) UpdateQuantity(ctx context.Context, id string, quantity int) (Item, error) {
	return c.Update(ctx, id, resource.Patch{"quantity": quantity})
}
