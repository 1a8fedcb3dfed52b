// Package groups provides the typed client and observable store for the
// user-group permission resource.
package groups

import (
	"context"
	"time"

	"github.com/iceops/iceops_sdk_go/pkg/iceapi"
	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// Endpoint is the groups resource path, relative to the API base.
const Endpoint = "groups/"

// Group is a named permission set users belong to.
type Group struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions,omitempty"`
	Members     []string   `json:"members,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ResourceID implements resource.Model.
func (g Group) ResourceID() string {
	return g.ID
}

// Controller extends the generic CRUD facade with membership operations on
// the members sub-path.
type Controller struct {
	*resource.Controller[Group]
}

// NewController binds a groups controller to client.
func NewController(client *iceapi.Client) (*Controller, error) {
	base, err := resource.NewController[Group](client, Endpoint)
	if err != nil {
		return nil, err
	}
	return &Controller{Controller: base}, nil
}

// SetPermissions replaces the group's permission list via partial update.
func (c *Controller) SetPermissions(ctx context.Context, id string, permissions []string) (Group, error) {
	return c.Update(ctx, id, resource.Patch{"permissions": permissions})
}

// Members lists the user ids belonging to the group.
func (c *Controller) Members(ctx context.Context, id string) ([]string, error) {
	return iceapi.Get[[]string](ctx, c.Client(), c.ItemPath(id)+"members/", nil)
}

// AddMember adds a user to the group and returns the updated group.
func (c *Controller) AddMember(ctx context.Context, id, user string) (Group, error) {
	return iceapi.Post[Group](ctx, c.Client(), c.ItemPath(id)+"members/", map[string]string{"user": user})
}

// RemoveMember removes a user from the group.
func (c *Controller) RemoveMember(ctx context.Context, id, user string) error {
	_, err := iceapi.Delete[struct{}](ctx, c.Client(), c.ItemPath(id)+"members/"+user+"/")
	return err
}

// Store is the observable store for groups; the generic layer covers the
// whole surface.
type Store struct {
	*resource.Store[Group]

	ctrl *Controller
}

// NewStore creates a groups store driven by ctrl.
func NewStore(ctrl *Controller) *Store {
	return &Store{
		Store: resource.NewStore[Group](ctrl),
		ctrl:  ctrl,
	}
}

// AddMember adds a user through the standard transitions.
func (s *Store) AddMember(ctx context.Context, id, user string) {
	s.MutateWith(ctx, id, func(ctx context.Context) (Group, error) {
		return s.ctrl.AddMember(ctx, id, user)
	})
}
