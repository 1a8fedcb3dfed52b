package resource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
)

// Controller is a typed CRUD facade over one REST resource path. Feature
// packages embed it and add resource-specific operations.
type Controller[T Model] struct {
	client   *iceapi.Client
	endpoint string
}

// NewController binds client to endpoint. The endpoint is relative to the API
// base and must end with a slash; item paths interpolate as "{endpoint}{id}/".
func NewController[T Model](client *iceapi.Client, endpoint string) (*Controller[T], error) {
	if client == nil {
		return nil, errors.New("resource: client is nil")
	}
	if endpoint == "" || !strings.HasSuffix(endpoint, "/") {
		return nil, fmt.Errorf("resource: endpoint %q must end with a slash", endpoint)
	}
	return &Controller[T]{client: client, endpoint: endpoint}, nil
}

// Client returns the API client this controller dispatches through.
func (c *Controller[T]) Client() *iceapi.Client {
	return c.client
}

// Endpoint returns the bound resource path.
func (c *Controller[T]) Endpoint() string {
	return c.endpoint
}

// ItemPath returns the path addressing a single entity.
func (c *Controller[T]) ItemPath(id string) string {
	return c.endpoint + url.PathEscape(id) + "/"
}

// List fetches the whole collection, optionally filtered by query parameters.
func (c *Controller[T]) List(ctx context.Context, query map[string]string) ([]T, error) {
	items, err := iceapi.Get[[]T](ctx, c.client, c.endpoint, query)
	if err != nil {
		return nil, c.fail("list", err)
	}
	return items, nil
}

// Get fetches a single entity by id.
func (c *Controller[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := iceapi.Get[T](ctx, c.client, c.ItemPath(id), nil)
	if err != nil {
		var zero T
		return zero, c.fail("get", err)
	}
	return item, nil
}

// Create stores a new entity (id omitted) and returns it with the
// server-assigned id populated.
func (c *Controller[T]) Create(ctx context.Context, item T) (T, error) {
	created, err := iceapi.Post[T](ctx, c.client, c.endpoint, item)
	if err != nil {
		var zero T
		return zero, c.fail("create", err)
	}
	return created, nil
}

// Update applies a partial update: only the fields present in patch change.
func (c *Controller[T]) Update(ctx context.Context, id string, patch Patch) (T, error) {
	updated, err := iceapi.Patch[T](ctx, c.client, c.ItemPath(id), patch)
	if err != nil {
		var zero T
		return zero, c.fail("update", err)
	}
	return updated, nil
}

// Replace swaps the full entity body via PUT.
func (c *Controller[T]) Replace(ctx context.Context, id string, item T) (T, error) {
	replaced, err := iceapi.Put[T](ctx, c.client, c.ItemPath(id), item)
	if err != nil {
		var zero T
		return zero, c.fail("replace", err)
	}
	return replaced, nil
}

// Delete removes the entity. Deleting an already-deleted id fails; the
// operation is not idempotent from the caller's perspective.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	if _, err := iceapi.Delete[struct{}](ctx, c.client, c.ItemPath(id)); err != nil {
		return c.fail("delete", err)
	}
	return nil
}

// fail logs the failure and rethrows it unchanged. No local suppression.
func (c *Controller[T]) fail(op string, err error) error {
	logger := c.client.Logger()
	logger.Error().
		Str("endpoint", c.endpoint).
		Str("op", op).
		Err(err).
		Msg("resource operation failed")
	return err
}
