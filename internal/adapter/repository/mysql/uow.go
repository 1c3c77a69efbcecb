package mysql

import (
	"context"

	"approvalflow/internal/domain/uow"
	"approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func txRepos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Templates:   &TemplateRepository{db: tx},
		Instances:   &InstanceRepository{db: tx},
		Delegations: &DelegationRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos(tx))
	})
}

func (u *GormUoW) WithinInstanceTx(ctx context.Context, tenantID, instanceID string, fn func(r uow.Repos, i *workflow.Instance) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos(tx)
		// lock the instance row up-front so concurrent approve/reject/cancel
		// calls on the same instance serialize here
		i, err := r.Instances.GetByInstanceIDForUpdate(ctx, tenantID, instanceID)
		if err != nil {
			return err
		}
		return fn(r, i)
	})
}
