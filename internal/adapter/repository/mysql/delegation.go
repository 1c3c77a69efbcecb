package mysql

import (
	"context"
	"errors"
	"time"

	delegationDomain "approvalflow/internal/domain/delegation"

	"gorm.io/gorm"
)

type DelegationRepository struct{ db *gorm.DB }

func NewDelegationRepository(db *gorm.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) Create(ctx context.Context, d *delegationDomain.Delegation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DelegationRepository) GetByDelegationID(ctx context.Context, tenantID, delegationID string) (*delegationDomain.Delegation, error) {
	var out delegationDomain.Delegation
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegation_id = ?", tenantID, delegationID).
		First(&out)
	return &out, res.Error
}

func (r *DelegationRepository) FindActiveFor(ctx context.Context, tenantID, userID string, asOf time.Time) ([]delegationDomain.Delegation, error) {
	var out []delegationDomain.Delegation
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegator_id = ? AND start_date <= ? AND end_date >= ?",
			tenantID, userID, asOf, asOf).
		Find(&out)
	return out, res.Error
}

func (r *DelegationRepository) FindActiveToward(ctx context.Context, tenantID, userID string, asOf time.Time) ([]delegationDomain.Delegation, error) {
	var out []delegationDomain.Delegation
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ? AND start_date <= ? AND end_date >= ?",
			tenantID, userID, asOf, asOf).
		Find(&out)
	return out, res.Error
}

func (r *DelegationRepository) List(ctx context.Context, tenantID, delegatorID string) ([]delegationDomain.Delegation, error) {
	var out []delegationDomain.Delegation
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegator_id = ?", tenantID, delegatorID).
		Order("start_date DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *DelegationRepository) Delete(ctx context.Context, tenantID, delegationID string) error {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegation_id = ?", tenantID, delegationID).
		Delete(&delegationDomain.Delegation{})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return delegationDomain.ErrNotFound
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return delegationDomain.ErrNotFound
	}
	return nil
}
