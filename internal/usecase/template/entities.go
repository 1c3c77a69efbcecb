package template

import (
	"time"
)

type StepInput struct {
	Order         int
	ApproverType  string
	ApproverValue string
}

type CreateInput struct {
	TenantID    string
	Name        string
	Description string
	EntityType  string
	Steps       []StepInput
}

// UpdatePatch carries partial updates. Nil fields are left untouched; a
// non-nil Steps replaces the whole step set after re-validation.
type UpdatePatch struct {
	Name        *string
	Description *string
	Active      *bool
	Steps       []StepInput
}

type StepSpecDTO struct {
	Order         int    `json:"order"`
	ApproverType  string `json:"approver_type"`
	ApproverValue string `json:"approver_value,omitempty"`
}

type TemplateDTO struct {
	TemplateID  string        `json:"template_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	EntityType  string        `json:"entity_type"`
	Active      bool          `json:"active"`
	Steps       []StepSpecDTO `json:"steps"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
