package workflow

import "context"

// InstanceFilter narrows List results. Zero values mean "no filter".
type InstanceFilter struct {
	EntityType  string
	EntityID    string
	Status      InstanceStatus
	InitiatedBy string
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	// GetByTemplateID fetches a template with its steps, tenant-scoped.
	GetByTemplateID(ctx context.Context, tenantID, templateID string) (*Template, error)
	// FindActiveByEntityType returns the active template for the entity type,
	// or gorm.ErrRecordNotFound when the tenant has none configured.
	FindActiveByEntityType(ctx context.Context, tenantID, entityType string) (*Template, error)
	List(ctx context.Context, tenantID string) ([]Template, error)
	Save(ctx context.Context, t *Template) error
	// ReplaceSteps swaps the template's step set atomically with the caller's
	// transaction scope.
	ReplaceSteps(ctx context.Context, t *Template, steps []TemplateStep) error
	// Update persists the template's scalar fields and, when steps is
	// non-nil, replaces the step set, all in one transaction. A failure
	// anywhere leaves the stored template untouched.
	Update(ctx context.Context, t *Template, steps []TemplateStep) error
}

type InstanceRepository interface {
	// Create inserts the instance and all of its steps in one go.
	Create(ctx context.Context, i *Instance) error
	GetByInstanceID(ctx context.Context, tenantID, instanceID string) (*Instance, error)
	// GetByInstanceIDForUpdate locks the instance row for the duration of the
	// surrounding transaction. Steps are preloaded.
	GetByInstanceIDForUpdate(ctx context.Context, tenantID, instanceID string) (*Instance, error)
	// FindActiveByEntity returns the single non-terminal instance for an
	// entity, or gorm.ErrRecordNotFound.
	FindActiveByEntity(ctx context.Context, tenantID, entityType, entityID string) (*Instance, error)
	GetStepByStepID(ctx context.Context, tenantID, stepID string) (*Step, error)
	SaveInstance(ctx context.Context, i *Instance) error
	SaveStep(ctx context.Context, s *Step) error
	List(ctx context.Context, tenantID string, f InstanceFilter, p Page) ([]Instance, int64, error)
	ListInProgress(ctx context.Context, tenantID string) ([]Instance, error)
}

// ReportingChain answers manager relationships. It is an external collaborator
// (an HR directory); implementations may legitimately be unable to answer.
type ReportingChain interface {
	IsManagerOf(ctx context.Context, tenantID, managerID, subordinateID string) (bool, error)
}
