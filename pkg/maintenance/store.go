package maintenance

import (
	"context"

	"github.com/iceops/iceops_sdk_go/pkg/resource"
)

// Store composes the generic observable store with maintenance-specific
// actions and derived views.
type Store struct {
	*resource.Store[Record]

	ctrl *Controller
}

// NewStore creates a maintenance store driven by ctrl.
func NewStore(ctrl *Controller) *Store {
	return &Store{
		Store: resource.NewStore[Record](ctrl),
		ctrl:  ctrl,
	}
}

// FetchByStatus replaces Items with the status-filtered listing.
func (s *Store) FetchByStatus(ctx context.Context, status string) {
	s.FetchWith(ctx, func(ctx context.Context) ([]Record, error) {
		return s.ctrl.ListByStatus(ctx, status)
	})
}

// Complete marks the record completed through the standard transitions.
func (s *Store) Complete(ctx context.Context, id string) {
	s.MutateWith(ctx, id, func(ctx context.Context) (Record, error) {
		return s.ctrl.Complete(ctx, id)
	})
}

// Pending projects the records still awaiting work from Items.
func (s *Store) Pending() []Record {
	var pending []Record
	for _, record := range s.State().Items {
		if record.Status == StatusPending || record.Status == StatusInProgress {
			pending = append(pending, record)
		}
	}
	return pending
}
