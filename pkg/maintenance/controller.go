// Package maintenance provides the typed client and observable store for the
// ice-plant maintenance resource.
package maintenance

import (
	"context"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// Endpoint is the maintenance resource path, relative to the API base.
const Endpoint = "maintenance/"

// Controller extends the generic CRUD facade with maintenance-specific
// operations.
type Controller struct {
	*resource.Controller[Record]
}

// NewController binds a maintenance controller to client.
func NewController(client *iceapi.Client) (*Controller, error) {
	base, err := resource.NewController[Record](client, Endpoint)
	if err != nil {
		return nil, err
	}
	return &Controller{Controller: base}, nil
}

// ListByStatus lists records in one workflow status.
func (c *Controller) ListByStatus(ctx context.Context, status string) ([]Record, error) {
	return c.List(ctx, map[string]string{"status": status})
}

// Complete marks a record completed via the dedicated action sub-path. The
// server stamps completed_at.
func (c *Controller) Complete(ctx context.Context, id string) (Record, error) {
	return iceapi.Post[Record](ctx, c.Client(), c.ItemPath(id)+"complete/", nil)
}
