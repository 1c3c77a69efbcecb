package mysql

import (
	"context"

	workflowDomain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstanceRepository struct{ db *gorm.DB }

func NewInstanceRepository(db *gorm.DB) *InstanceRepository { return &InstanceRepository{db: db} }

func (r *InstanceRepository) Create(ctx context.Context, i *workflowDomain.Instance) error {
	// Instance and all steps go in together; callers run this inside a UoW
	// transaction so the insert is all-or-nothing.
	return r.db.WithContext(ctx).Create(i).Error
}

func (r *InstanceRepository) GetByInstanceID(ctx context.Context, tenantID, instanceID string) (*workflowDomain.Instance, error) {
	var out workflowDomain.Instance
	res := r.db.WithContext(ctx).
		Preload("Steps").
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		First(&out)
	return &out, res.Error
}

func (r *InstanceRepository) GetByInstanceIDForUpdate(ctx context.Context, tenantID, instanceID string) (*workflowDomain.Instance, error) {
	q := r.db.WithContext(ctx)
	// SQLite (used in tests) has no FOR UPDATE; its single-writer model covers
	// us there. MySQL gets a real row lock.
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out workflowDomain.Instance
	res := q.
		Preload("Steps").
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		First(&out)
	return &out, res.Error
}

func (r *InstanceRepository) FindActiveByEntity(ctx context.Context, tenantID, entityType, entityID string) (*workflowDomain.Instance, error) {
	var out workflowDomain.Instance
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ? AND status IN ?",
			tenantID, entityType, entityID,
			[]workflowDomain.InstanceStatus{workflowDomain.InstancePending, workflowDomain.InstanceInProgress}).
		First(&out)
	return &out, res.Error
}

func (r *InstanceRepository) GetStepByStepID(ctx context.Context, tenantID, stepID string) (*workflowDomain.Step, error) {
	var out workflowDomain.Step
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND step_id = ?", tenantID, stepID).
		First(&out)
	return &out, res.Error
}

func (r *InstanceRepository) SaveInstance(ctx context.Context, i *workflowDomain.Instance) error {
	return r.db.WithContext(ctx).Omit("Steps").Save(i).Error
}

func (r *InstanceRepository) SaveStep(ctx context.Context, s *workflowDomain.Step) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *InstanceRepository) List(ctx context.Context, tenantID string, f workflowDomain.InstanceFilter, p workflowDomain.Page) ([]workflowDomain.Instance, int64, error) {
	q := r.db.WithContext(ctx).Model(&workflowDomain.Instance{}).Where("tenant_id = ?", tenantID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.InitiatedBy != "" {
		q = q.Where("initiator_id = ?", f.InitiatedBy)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	var out []workflowDomain.Instance
	res := q.
		Preload("Steps").
		Order("created_at DESC, id DESC").
		Offset((p.Number - 1) * p.Size).
		Limit(p.Size).
		Find(&out)
	return out, total, res.Error
}

func (r *InstanceRepository) ListInProgress(ctx context.Context, tenantID string) ([]workflowDomain.Instance, error) {
	var out []workflowDomain.Instance
	res := r.db.WithContext(ctx).
		Preload("Steps").
		Where("tenant_id = ? AND status = ?", tenantID, workflowDomain.InstanceInProgress).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
