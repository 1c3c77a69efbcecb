package template

import (
	"context"
	"errors"
	"sort"

	"approvalflow/internal/domain/workflow"
	"approvalflow/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct{ repo workflow.TemplateRepository }

func NewUsecase(r workflow.TemplateRepository) *Usecase { return &Usecase{repo: r} }

func toSpecs(in []StepInput) []workflow.StepSpec {
	specs := make([]workflow.StepSpec, 0, len(in))
	for _, s := range in {
		specs = append(specs, workflow.StepSpec{
			Order:         s.Order,
			ApproverType:  workflow.ApproverType(s.ApproverType),
			ApproverValue: s.ApproverValue,
		})
	}
	return specs
}

func toSteps(specs []workflow.StepSpec) []workflow.TemplateStep {
	steps := make([]workflow.TemplateStep, 0, len(specs))
	for _, s := range specs {
		steps = append(steps, workflow.TemplateStep{
			Order:         s.Order,
			ApproverType:  s.ApproverType,
			ApproverValue: s.ApproverValue,
		})
	}
	return steps
}

func toDTO(t *workflow.Template) *TemplateDTO {
	steps := make([]StepSpecDTO, 0, len(t.Steps))
	for _, s := range t.Steps {
		steps = append(steps, StepSpecDTO{
			Order:         s.Order,
			ApproverType:  string(s.ApproverType),
			ApproverValue: s.ApproverValue,
		})
	}
	sort.Slice(steps, func(a, b int) bool { return steps[a].Order < steps[b].Order })
	return &TemplateDTO{
		TemplateID:  t.TemplateID,
		Name:        t.Name,
		Description: t.Description,
		EntityType:  t.EntityType,
		Active:      t.Active,
		Steps:       steps,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (u *Usecase) Create(ctx context.Context, in CreateInput) (*TemplateDTO, error) {
	specs := toSpecs(in.Steps)
	if err := workflow.ValidateStepSpecs(specs); err != nil {
		return nil, err
	}

	t := &workflow.Template{
		TemplateID:  id.NewID32(),
		TenantID:    in.TenantID,
		Name:        in.Name,
		Description: in.Description,
		EntityType:  in.EntityType,
		Active:      true,
		Steps:       toSteps(specs),
	}
	if err := u.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return toDTO(t), nil
}

func (u *Usecase) Get(ctx context.Context, tenantID, templateID string) (*TemplateDTO, error) {
	t, err := u.repo.GetByTemplateID(ctx, tenantID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrTemplateNotFound
		}
		return nil, err
	}
	return toDTO(t), nil
}

func (u *Usecase) List(ctx context.Context, tenantID string) ([]TemplateDTO, error) {
	ts, err := u.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateDTO, 0, len(ts))
	for i := range ts {
		out = append(out, *toDTO(&ts[i]))
	}
	return out, nil
}

// FindActiveForEntityType returns nil, nil when the tenant has no active
// template for the entity type. Absence is not an error.
func (u *Usecase) FindActiveForEntityType(ctx context.Context, tenantID, entityType string) (*TemplateDTO, error) {
	t, err := u.repo.FindActiveByEntityType(ctx, tenantID, entityType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDTO(t), nil
}

// Update applies a patch. The whole patch is validated up front and persisted
// in a single repository transaction, so an invalid steps patch leaves the
// stored template fully intact. Running instances are unaffected either way:
// they snapshotted their steps at start time.
func (u *Usecase) Update(ctx context.Context, tenantID, templateID string, patch UpdatePatch) (*TemplateDTO, error) {
	var steps []workflow.TemplateStep
	if patch.Steps != nil {
		specs := toSpecs(patch.Steps)
		if err := workflow.ValidateStepSpecs(specs); err != nil {
			return nil, err
		}
		steps = toSteps(specs)
	}

	t, err := u.repo.GetByTemplateID(ctx, tenantID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrTemplateNotFound
		}
		return nil, err
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Active != nil {
		t.Active = *patch.Active
	}
	if err := u.repo.Update(ctx, t, steps); err != nil {
		return nil, err
	}
	return toDTO(t), nil
}

// Deactivate soft-disables the template so new workflows stop using it.
// Instances already started from it keep running on their snapshots.
func (u *Usecase) Deactivate(ctx context.Context, tenantID, templateID string) error {
	t, err := u.repo.GetByTemplateID(ctx, tenantID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workflow.ErrTemplateNotFound
		}
		return err
	}
	t.Active = false
	return u.repo.Save(ctx, t)
}
