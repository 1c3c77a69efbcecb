package workflowmock

import (
	"context"

	domain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

var _ domain.TemplateRepository = (*TemplateRepo)(nil)

// TemplateRepo is a function-backed mock that satisfies
// workflow.TemplateRepository. Fill in the fields a test needs; unfilled
// getters report gorm.ErrRecordNotFound.
type TemplateRepo struct {
	CreateFn                 func(ctx context.Context, t *domain.Template) error
	GetByTemplateIDFn        func(ctx context.Context, tenantID, templateID string) (*domain.Template, error)
	FindActiveByEntityTypeFn func(ctx context.Context, tenantID, entityType string) (*domain.Template, error)
	ListFn                   func(ctx context.Context, tenantID string) ([]domain.Template, error)
	SaveFn                   func(ctx context.Context, t *domain.Template) error
	ReplaceStepsFn           func(ctx context.Context, t *domain.Template, steps []domain.TemplateStep) error
	UpdateFn                 func(ctx context.Context, t *domain.Template, steps []domain.TemplateStep) error
}

func (m *TemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}

func (m *TemplateRepo) GetByTemplateID(ctx context.Context, tenantID, templateID string) (*domain.Template, error) {
	if m.GetByTemplateIDFn != nil {
		return m.GetByTemplateIDFn(ctx, tenantID, templateID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *TemplateRepo) FindActiveByEntityType(ctx context.Context, tenantID, entityType string) (*domain.Template, error) {
	if m.FindActiveByEntityTypeFn != nil {
		return m.FindActiveByEntityTypeFn(ctx, tenantID, entityType)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *TemplateRepo) List(ctx context.Context, tenantID string) ([]domain.Template, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, tenantID)
	}
	return nil, nil
}

func (m *TemplateRepo) Save(ctx context.Context, t *domain.Template) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, t)
	}
	return nil
}

func (m *TemplateRepo) ReplaceSteps(ctx context.Context, t *domain.Template, steps []domain.TemplateStep) error {
	if m.ReplaceStepsFn != nil {
		return m.ReplaceStepsFn(ctx, t, steps)
	}
	return nil
}

// Update falls back to SaveFn + ReplaceStepsFn when UpdateFn is unset, so
// tests can observe the two halves separately.
func (m *TemplateRepo) Update(ctx context.Context, t *domain.Template, steps []domain.TemplateStep) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, t, steps)
	}
	if err := m.Save(ctx, t); err != nil {
		return err
	}
	if steps == nil {
		return nil
	}
	return m.ReplaceSteps(ctx, t, steps)
}
