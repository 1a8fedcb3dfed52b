package maintenance

import "time"

// Record statuses used by the maintenance workflow.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Record is one maintenance entry for a plant machine.
type Record struct {
	ID           string     `json:"id,omitempty"`
	Machine      string     `json:"machine"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// ResourceID implements resource.Model.
func (r Record) ResourceID() string {
	return r.ID
}
