package event

import "context"

// Workflow lifecycle event names as they appear on the wire.
const (
	WorkflowStarted      = "workflow.started"
	WorkflowStepApproved = "workflow.step.approved"
	WorkflowApproved     = "workflow.approved"
	WorkflowRejected     = "workflow.rejected"
	WorkflowCancelled    = "workflow.cancelled"
)

// Event is one workflow lifecycle notification.
type Event struct {
	Name       string         `json:"name"`
	TenantID   string         `json:"tenant_id"`
	InstanceID string         `json:"instance_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher delivers lifecycle events to the outside world. Delivery is
// fire-and-forget: implementations must log and swallow failures, since a
// state transition is committed before its event goes out and must never be
// reported as failed because delivery broke.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}
