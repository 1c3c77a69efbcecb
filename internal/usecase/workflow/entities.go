package workflow

import (
	"time"
)

type StartInput struct {
	TenantID    string
	InitiatorID string
	EntityType  string
	EntityID    string
}

// ResolveInput carries an approve or reject request for one step.
type ResolveInput struct {
	TenantID     string
	StepID       string
	ActingUserID string
	ActingRole   string
	Comments     *string
}

type StepDTO struct {
	StepID        string     `json:"step_id"`
	InstanceID    string     `json:"instance_id"`
	Order         int        `json:"order"`
	ApproverType  string     `json:"approver_type"`
	ApproverValue string     `json:"approver_value,omitempty"`
	Status        string     `json:"status"`
	ResolverID    *string    `json:"resolver_id,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Comments      *string    `json:"comments,omitempty"`
}

type TemplateSummary struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
}

type InstanceDTO struct {
	InstanceID       string           `json:"instance_id"`
	TemplateID       string           `json:"template_id"`
	EntityType       string           `json:"entity_type"`
	EntityID         string           `json:"entity_id"`
	InitiatorID      string           `json:"initiator_id"`
	Status           string           `json:"status"`
	CurrentStepOrder int              `json:"current_step_order,omitempty"`
	Steps            []StepDTO        `json:"steps,omitempty"`
	Template         *TemplateSummary `json:"template,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// ListFilter mirrors the query-side filters exposed over HTTP.
type ListFilter struct {
	EntityType  string
	EntityID    string
	Status      string
	InitiatedBy string
}

type InstancePage struct {
	Items   []InstanceDTO `json:"items"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// PendingApprovalDTO is one actionable step for a given user, with enough
// instance context to render a work queue.
type PendingApprovalDTO struct {
	Step        StepDTO `json:"step"`
	InstanceID  string  `json:"instance_id"`
	EntityType  string  `json:"entity_type"`
	EntityID    string  `json:"entity_id"`
	InitiatorID string  `json:"initiator_id"`
}
