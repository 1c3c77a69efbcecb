package workflow

import (
	"context"
	"errors"

	workflowDomain "approvalflow/internal/domain/workflow"

	"gorm.io/gorm"
)

// Query is the read side: it never mutates instances.
type Query struct {
	instances workflowDomain.InstanceRepository
	templates workflowDomain.TemplateRepository
	resolver  *Resolver
}

func NewQuery(instances workflowDomain.InstanceRepository, templates workflowDomain.TemplateRepository, resolver *Resolver) *Query {
	return &Query{instances: instances, templates: templates, resolver: resolver}
}

// ListInstances pages through a tenant's instances, steps and template
// summary included for display.
func (q *Query) ListInstances(ctx context.Context, tenantID string, f ListFilter, page, perPage int) (*InstancePage, error) {
	items, total, err := q.instances.List(ctx, tenantID, workflowDomain.InstanceFilter{
		EntityType:  f.EntityType,
		EntityID:    f.EntityID,
		Status:      workflowDomain.InstanceStatus(f.Status),
		InitiatedBy: f.InitiatedBy,
	}, workflowDomain.Page{Number: page, Size: perPage})
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	// One template fetch per distinct template id on the page.
	summaries := make(map[string]*TemplateSummary, len(items))
	dtos := make([]InstanceDTO, 0, len(items))
	for i := range items {
		inst := &items[i]
		tpl, cached := summaries[inst.TemplateID]
		if !cached {
			t, err := q.templates.GetByTemplateID(ctx, tenantID, inst.TemplateID)
			switch {
			case err == nil:
				tpl = &TemplateSummary{TemplateID: t.TemplateID, Name: t.Name, EntityType: t.EntityType}
			case errors.Is(err, gorm.ErrRecordNotFound):
				tpl = nil // template was hard-deleted out-of-band; instance still renders
			default:
				return nil, err
			}
			summaries[inst.TemplateID] = tpl
		}
		dtos = append(dtos, *instanceDTO(inst, tpl))
	}

	return &InstancePage{Items: dtos, Total: total, Page: page, PerPage: perPage}, nil
}

// PendingApprovalsFor scans the tenant's in-progress instances and returns
// every current step the user may resolve, delegation substitution included.
// O(open instances) per call; an approver index would remove the scan if this
// ever shows up in profiles.
func (q *Query) PendingApprovalsFor(ctx context.Context, tenantID, userID, role string) ([]PendingApprovalDTO, error) {
	open, err := q.instances.ListInProgress(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]PendingApprovalDTO, 0)
	for i := range open {
		inst := &open[i]
		step := inst.CurrentStep()
		if step == nil || step.Status != workflowDomain.StepPending {
			continue
		}
		ok, err := q.resolver.CanResolve(ctx, step, inst, userID, role)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, PendingApprovalDTO{
			Step:        stepDTO(step),
			InstanceID:  inst.InstanceID,
			EntityType:  inst.EntityType,
			EntityID:    inst.EntityID,
			InitiatorID: inst.InitiatorID,
		})
	}
	return out, nil
}

// GetInstance fetches one instance with steps and template summary.
func (q *Query) GetInstance(ctx context.Context, tenantID, instanceID string) (*InstanceDTO, error) {
	inst, err := q.instances.GetByInstanceID(ctx, tenantID, instanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflowDomain.ErrInstanceNotFound
		}
		return nil, err
	}
	var tpl *TemplateSummary
	if t, err := q.templates.GetByTemplateID(ctx, tenantID, inst.TemplateID); err == nil {
		tpl = &TemplateSummary{TemplateID: t.TemplateID, Name: t.Name, EntityType: t.EntityType}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return instanceDTO(inst, tpl), nil
}
