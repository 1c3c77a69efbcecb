package mysql

import (
	"context"

	workflowDomain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

type TemplateRepository struct{ db *gorm.DB }

func NewTemplateRepository(db *gorm.DB) *TemplateRepository { return &TemplateRepository{db: db} }

func (r *TemplateRepository) Create(ctx context.Context, t *workflowDomain.Template) error {
	// Steps are inserted with the template via the association.
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TemplateRepository) GetByTemplateID(ctx context.Context, tenantID, templateID string) (*workflowDomain.Template, error) {
	var out workflowDomain.Template
	res := r.db.WithContext(ctx).
		Preload("Steps").
		Where("tenant_id = ? AND template_id = ?", tenantID, templateID).
		First(&out)
	return &out, res.Error
}

func (r *TemplateRepository) FindActiveByEntityType(ctx context.Context, tenantID, entityType string) (*workflowDomain.Template, error) {
	var out workflowDomain.Template
	res := r.db.WithContext(ctx).
		Preload("Steps").
		Where("tenant_id = ? AND entity_type = ? AND active = ?", tenantID, entityType, true).
		Order("updated_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *TemplateRepository) List(ctx context.Context, tenantID string) ([]workflowDomain.Template, error) {
	var out []workflowDomain.Template
	res := r.db.WithContext(ctx).
		Preload("Steps").
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *TemplateRepository) Save(ctx context.Context, t *workflowDomain.Template) error {
	// Omit the association: step replacement goes through ReplaceSteps so the
	// old set is actually removed.
	return r.db.WithContext(ctx).Omit("Steps").Save(t).Error
}

func (r *TemplateRepository) Update(ctx context.Context, t *workflowDomain.Template, steps []workflowDomain.TemplateStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := &TemplateRepository{db: tx}
		if err := scoped.Save(ctx, t); err != nil {
			return err
		}
		if steps == nil {
			return nil
		}
		return scoped.ReplaceSteps(ctx, t, steps)
	})
}

func (r *TemplateRepository) ReplaceSteps(ctx context.Context, t *workflowDomain.Template, steps []workflowDomain.TemplateStep) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("template_ref = ?", t.ID).Delete(&workflowDomain.TemplateStep{}).Error; err != nil {
		return err
	}
	for i := range steps {
		steps[i].ID = 0
		steps[i].TemplateRef = t.ID
	}
	if err := tx.Create(&steps).Error; err != nil {
		return err
	}
	t.Steps = steps
	return nil
}
