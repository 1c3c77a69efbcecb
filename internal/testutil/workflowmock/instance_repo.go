package workflowmock

import (
	"context"

	domain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

var _ domain.InstanceRepository = (*InstanceRepo)(nil)

// InstanceRepo is a function-backed mock that satisfies
// workflow.InstanceRepository.
type InstanceRepo struct {
	CreateFn                   func(ctx context.Context, i *domain.Instance) error
	GetByInstanceIDFn          func(ctx context.Context, tenantID, instanceID string) (*domain.Instance, error)
	GetByInstanceIDForUpdateFn func(ctx context.Context, tenantID, instanceID string) (*domain.Instance, error)
	FindActiveByEntityFn       func(ctx context.Context, tenantID, entityType, entityID string) (*domain.Instance, error)
	GetStepByStepIDFn          func(ctx context.Context, tenantID, stepID string) (*domain.Step, error)
	SaveInstanceFn             func(ctx context.Context, i *domain.Instance) error
	SaveStepFn                 func(ctx context.Context, s *domain.Step) error
	ListFn                     func(ctx context.Context, tenantID string, f domain.InstanceFilter, p domain.Page) ([]domain.Instance, int64, error)
	ListInProgressFn           func(ctx context.Context, tenantID string) ([]domain.Instance, error)
}

func (m *InstanceRepo) Create(ctx context.Context, i *domain.Instance) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, i)
	}
	return nil
}

func (m *InstanceRepo) GetByInstanceID(ctx context.Context, tenantID, instanceID string) (*domain.Instance, error) {
	if m.GetByInstanceIDFn != nil {
		return m.GetByInstanceIDFn(ctx, tenantID, instanceID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *InstanceRepo) GetByInstanceIDForUpdate(ctx context.Context, tenantID, instanceID string) (*domain.Instance, error) {
	if m.GetByInstanceIDForUpdateFn != nil {
		return m.GetByInstanceIDForUpdateFn(ctx, tenantID, instanceID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *InstanceRepo) FindActiveByEntity(ctx context.Context, tenantID, entityType, entityID string) (*domain.Instance, error) {
	if m.FindActiveByEntityFn != nil {
		return m.FindActiveByEntityFn(ctx, tenantID, entityType, entityID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *InstanceRepo) GetStepByStepID(ctx context.Context, tenantID, stepID string) (*domain.Step, error) {
	if m.GetStepByStepIDFn != nil {
		return m.GetStepByStepIDFn(ctx, tenantID, stepID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *InstanceRepo) SaveInstance(ctx context.Context, i *domain.Instance) error {
	if m.SaveInstanceFn != nil {
		return m.SaveInstanceFn(ctx, i)
	}
	return nil
}

func (m *InstanceRepo) SaveStep(ctx context.Context, s *domain.Step) error {
	if m.SaveStepFn != nil {
		return m.SaveStepFn(ctx, s)
	}
	return nil
}

func (m *InstanceRepo) List(ctx context.Context, tenantID string, f domain.InstanceFilter, p domain.Page) ([]domain.Instance, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, tenantID, f, p)
	}
	return nil, 0, nil
}

func (m *InstanceRepo) ListInProgress(ctx context.Context, tenantID string) ([]domain.Instance, error) {
	if m.ListInProgressFn != nil {
		return m.ListInProgressFn(ctx, tenantID)
	}
	return nil, nil
}
