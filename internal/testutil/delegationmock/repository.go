package delegationmock

import (
	"context"
	"time"

	domain "approvalflow/internal/domain/delegation"

	"gorm.io/gorm"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies delegation.Repository.
type Repo struct {
	CreateFn            func(ctx context.Context, d *domain.Delegation) error
	GetByDelegationIDFn func(ctx context.Context, tenantID, delegationID string) (*domain.Delegation, error)
	FindActiveForFn     func(ctx context.Context, tenantID, userID string, asOf time.Time) ([]domain.Delegation, error)
	FindActiveTowardFn  func(ctx context.Context, tenantID, userID string, asOf time.Time) ([]domain.Delegation, error)
	ListFn              func(ctx context.Context, tenantID, delegatorID string) ([]domain.Delegation, error)
	DeleteFn            func(ctx context.Context, tenantID, delegationID string) error
}

func (m *Repo) Create(ctx context.Context, d *domain.Delegation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	return nil
}

func (m *Repo) GetByDelegationID(ctx context.Context, tenantID, delegationID string) (*domain.Delegation, error) {
	if m.GetByDelegationIDFn != nil {
		return m.GetByDelegationIDFn(ctx, tenantID, delegationID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) FindActiveFor(ctx context.Context, tenantID, userID string, asOf time.Time) ([]domain.Delegation, error) {
	if m.FindActiveForFn != nil {
		return m.FindActiveForFn(ctx, tenantID, userID, asOf)
	}
	return nil, nil
}

func (m *Repo) FindActiveToward(ctx context.Context, tenantID, userID string, asOf time.Time) ([]domain.Delegation, error) {
	if m.FindActiveTowardFn != nil {
		return m.FindActiveTowardFn(ctx, tenantID, userID, asOf)
	}
	return nil, nil
}

func (m *Repo) List(ctx context.Context, tenantID, delegatorID string) ([]domain.Delegation, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, tenantID, delegatorID)
	}
	return nil, nil
}

func (m *Repo) Delete(ctx context.Context, tenantID, delegationID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, tenantID, delegationID)
	}
	return domain.ErrNotFound
}
