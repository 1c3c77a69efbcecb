package workflow

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// Not-found family (entity absent, or present under another tenant).
	ErrTemplateNotFound = errors.New("workflow template not found")
	ErrInstanceNotFound = errors.New("workflow instance not found")
	ErrStepNotFound     = errors.New("workflow step not found")

	// Conflict family.
	ErrDuplicateActiveWorkflow = errors.New("an active workflow already exists for this entity")
	ErrStepAlreadyResolved     = errors.New("step has already been resolved")

	// Invalid-state family.
	ErrInstanceNotActive  = errors.New("workflow instance is not in progress")
	ErrNotCurrentStep     = errors.New("step is not the current step of its instance")
	ErrInvalidCancelState = errors.New("workflow instance is already in a terminal state")

	// Invalid-input family.
	ErrInvalidStepConfig = errors.New("step orders must be 1..N with no gaps or duplicates and a non-empty approver")
	ErrEmptyTemplate     = errors.New("template has no steps")

	ErrNotAuthorized = errors.New("user may not resolve this step")
)

// ApproverType is the closed set of approver specifications a step may carry.
type ApproverType string

const (
	// ApproverUser matches a single user id.
	ApproverUser ApproverType = "USER"
	// ApproverRole matches any actor holding the named role.
	ApproverRole ApproverType = "ROLE"
	// ApproverManager matches the direct manager of the instance initiator.
	ApproverManager ApproverType = "MANAGER"
)

func (t ApproverType) Valid() bool {
	switch t {
	case ApproverUser, ApproverRole, ApproverManager:
		return true
	}
	return false
}

type InstanceStatus string

const (
	InstancePending    InstanceStatus = "PENDING"
	InstanceInProgress InstanceStatus = "IN_PROGRESS"
	InstanceApproved   InstanceStatus = "APPROVED"
	InstanceRejected   InstanceStatus = "REJECTED"
	InstanceCancelled  InstanceStatus = "CANCELLED"
)

// Terminal reports whether the status is final. Terminal instances are
// immutable.
func (s InstanceStatus) Terminal() bool {
	switch s {
	case InstanceApproved, InstanceRejected, InstanceCancelled:
		return true
	}
	return false
}

type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
)

// Template is a tenant-scoped, reusable approval sequence for one entity type.
// Steps are embedded and snapshotted into Instances at start time, so editing
// a template never affects a running instance.
type Template struct {
	ID          uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateID  string         `gorm:"column:template_id;size:32;uniqueIndex:ux_templates_template_id"`
	TenantID    string         `gorm:"column:tenant_id;size:32;index:idx_templates_tenant_entity"`
	Name        string         `gorm:"column:name;size:255;not null"`
	Description string         `gorm:"column:description;type:text"`
	EntityType  string         `gorm:"column:entity_type;size:64;index:idx_templates_tenant_entity"`
	Active      bool           `gorm:"column:active;default:true"`
	Steps       []TemplateStep `gorm:"foreignKey:TemplateRef;references:ID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Template) TableName() string { return "workflow_templates" }

// MaxOrder returns the highest step order, 0 for an empty template.
func (t *Template) MaxOrder() int {
	max := 0
	for _, s := range t.Steps {
		if s.Order > max {
			max = s.Order
		}
	}
	return max
}

// TemplateStep is one configured approval gate within a Template.
// `order` is a reserved word, hence the step_order column.
type TemplateStep struct {
	ID            uint64       `gorm:"column:id;primaryKey;autoIncrement"`
	TemplateRef   uint64       `gorm:"column:template_ref;not null;index"`
	Order         int          `gorm:"column:step_order;not null"`
	ApproverType  ApproverType `gorm:"column:approver_type;size:16;not null"`
	ApproverValue string       `gorm:"column:approver_value;size:64"`
}

func (TemplateStep) TableName() string { return "workflow_template_steps" }

// StepSpec is the validated input shape for template steps.
type StepSpec struct {
	Order         int
	ApproverType  ApproverType
	ApproverValue string
}

// ValidateStepSpecs enforces the template step rules: at least one step,
// orders forming a dense 1..N sequence, a known approver type per step, and a
// non-empty approver value for USER and ROLE steps (MANAGER needs none).
func ValidateStepSpecs(specs []StepSpec) error {
	if len(specs) == 0 {
		return ErrEmptyTemplate
	}
	seen := make(map[int]bool, len(specs))
	for _, s := range specs {
		if s.Order < 1 || s.Order > len(specs) || seen[s.Order] {
			return ErrInvalidStepConfig
		}
		seen[s.Order] = true
		if !s.ApproverType.Valid() {
			return ErrInvalidStepConfig
		}
		if s.ApproverType != ApproverManager && s.ApproverValue == "" {
			return ErrInvalidStepConfig
		}
	}
	return nil
}

// Instance is one execution of a Template against one business entity.
type Instance struct {
	ID               uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	InstanceID       string         `gorm:"column:instance_id;size:32;uniqueIndex:ux_instances_instance_id"`
	TenantID         string         `gorm:"column:tenant_id;size:32;index:idx_instances_tenant_entity"`
	TemplateID       string         `gorm:"column:template_id;size:32;not null"`
	EntityType       string         `gorm:"column:entity_type;size:64;index:idx_instances_tenant_entity"`
	EntityID         string         `gorm:"column:entity_id;size:64;index:idx_instances_tenant_entity"`
	InitiatorID      string         `gorm:"column:initiator_id;size:32;not null"`
	Status           InstanceStatus `gorm:"column:status;size:16;index"`
	ActiveKey        *string        `gorm:"column:active_key;size:160;uniqueIndex:ux_instances_active_key"`
	CurrentStepOrder int            `gorm:"column:current_step_order"`
	Steps            []Step         `gorm:"foreignKey:InstanceRef;references:ID"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt      *time.Time     `gorm:"column:completed_at"`
}

func (Instance) TableName() string { return "workflow_instances" }

// ActiveEntityKey is the uniqueness token behind the one-running-workflow-per-
// entity rule. A non-terminal instance carries it in active_key, which sits
// under a unique index, so two starts racing past the existence check cannot
// both insert: the loser hits a duplicate-key error.
func ActiveEntityKey(tenantID, entityType, entityID string) string {
	return tenantID + "|" + entityType + "|" + entityID
}

// SyncActiveKey derives ActiveKey from the current status. Call it before
// persisting any status change: terminal instances must release the key so
// the entity can start a new workflow.
func (i *Instance) SyncActiveKey() {
	if i.Status.Terminal() {
		i.ActiveKey = nil
		return
	}
	k := ActiveEntityKey(i.TenantID, i.EntityType, i.EntityID)
	i.ActiveKey = &k
}

// CurrentStep returns the step whose order matches CurrentStepOrder. Lookup is
// always by order value, never by slice index.
func (i *Instance) CurrentStep() *Step {
	for idx := range i.Steps {
		if i.Steps[idx].Order == i.CurrentStepOrder {
			return &i.Steps[idx]
		}
	}
	return nil
}

// MaxOrder returns the highest step order of the instance.
func (i *Instance) MaxOrder() int {
	max := 0
	for _, s := range i.Steps {
		if s.Order > max {
			max = s.Order
		}
	}
	return max
}

// NextOrder returns the lowest step order strictly greater than order, or 0
// when none remains.
func (i *Instance) NextOrder(order int) int {
	next := 0
	for _, s := range i.Steps {
		if s.Order > order && (next == 0 || s.Order < next) {
			next = s.Order
		}
	}
	return next
}

// Step is one approval gate within an Instance. Approver type/value are
// snapshotted from the template at start time and never change. TenantID and
// InstanceID are denormalized so a step can be fetched tenant-scoped without a
// join.
type Step struct {
	ID            uint64       `gorm:"column:id;primaryKey;autoIncrement"`
	StepID        string       `gorm:"column:step_id;size:32;uniqueIndex:ux_steps_step_id"`
	InstanceRef   uint64       `gorm:"column:instance_ref;not null;index"`
	InstanceID    string       `gorm:"column:instance_id;size:32;index"`
	TenantID      string       `gorm:"column:tenant_id;size:32;index"`
	Order         int          `gorm:"column:step_order;not null"`
	ApproverType  ApproverType `gorm:"column:approver_type;size:16;not null"`
	ApproverValue string       `gorm:"column:approver_value;size:64"`
	Status        StepStatus   `gorm:"column:status;size:16"`
	ResolverID    *string      `gorm:"column:resolver_id;size:32"`
	ResolvedAt    *time.Time   `gorm:"column:resolved_at"`
	Comments      *string      `gorm:"column:comments;type:text"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Step) TableName() string { return "workflow_steps" }
