package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"approvalflow/internal/domain/event"
	"approvalflow/internal/domain/uow"
	workflowDomain "approvalflow/internal/domain/workflow"
	"approvalflow/pkg/id"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Orchestrator owns every instance state transition. All mutations of one
// instance run inside a transaction that holds the instance row lock, so
// concurrent approve/reject/cancel calls serialize and the losing caller gets
// a clean domain error instead of corrupting the step ladder.
type Orchestrator struct {
	uow      uow.UnitOfWork
	resolver *Resolver
	events   event.Publisher
	log      zerolog.Logger
}

func NewOrchestrator(tx uow.UnitOfWork, resolver *Resolver, events event.Publisher, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{uow: tx, resolver: resolver, events: events, log: log}
}

// publish fires the event after the transaction committed. Delivery failures
// are the publisher's problem; the transition already happened.
func (o *Orchestrator) publish(ctx context.Context, e *event.Event) {
	if e == nil || o.events == nil {
		return
	}
	o.events.Publish(ctx, *e)
}

// Start materializes a new instance from the tenant's active template for the
// entity type. Returns nil, nil when no template is configured: the caller
// treats that as "no workflow required", not as a failure.
func (o *Orchestrator) Start(ctx context.Context, in StartInput) (*InstanceDTO, error) {
	var dto *InstanceDTO
	var evt *event.Event

	err := o.uow.WithinTx(ctx, func(r uow.Repos) error {
		// Friendly pre-check for the common duplicate case. It is a plain
		// snapshot read, so two racing starts can both pass it; the unique
		// active_key index below is what actually enforces exclusivity.
		_, err := r.Instances.FindActiveByEntity(ctx, in.TenantID, in.EntityType, in.EntityID)
		switch {
		case err == nil:
			return workflowDomain.ErrDuplicateActiveWorkflow
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		tpl, err := r.Templates.FindActiveByEntityType(ctx, in.TenantID, in.EntityType)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // no template configured, dto stays nil
			}
			return err
		}
		// Defensive: creation-time validation forbids empty templates, but a
		// row edited out-of-band must not produce a zero-step instance.
		if len(tpl.Steps) == 0 {
			return workflowDomain.ErrEmptyTemplate
		}

		first := 0
		for _, s := range tpl.Steps {
			if first == 0 || s.Order < first {
				first = s.Order
			}
		}

		inst := &workflowDomain.Instance{
			InstanceID:       id.NewID32(),
			TenantID:         in.TenantID,
			TemplateID:       tpl.TemplateID,
			EntityType:       in.EntityType,
			EntityID:         in.EntityID,
			InitiatorID:      in.InitiatorID,
			Status:           workflowDomain.InstanceInProgress,
			CurrentStepOrder: first,
		}
		inst.SyncActiveKey()
		// Snapshot the template's steps; later template edits cannot touch
		// this instance.
		for _, ts := range tpl.Steps {
			inst.Steps = append(inst.Steps, workflowDomain.Step{
				StepID:        id.NewID32(),
				InstanceID:    inst.InstanceID,
				TenantID:      in.TenantID,
				Order:         ts.Order,
				ApproverType:  ts.ApproverType,
				ApproverValue: ts.ApproverValue,
				Status:        workflowDomain.StepPending,
			})
		}
		if err := r.Instances.Create(ctx, inst); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return workflowDomain.ErrDuplicateActiveWorkflow
			}
			return err
		}

		dto = instanceDTO(inst, nil)
		evt = &event.Event{
			Name:       event.WorkflowStarted,
			TenantID:   in.TenantID,
			InstanceID: inst.InstanceID,
			EntityType: in.EntityType,
			EntityID:   in.EntityID,
			Payload:    map[string]any{"initiator_id": in.InitiatorID},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dto != nil {
		o.log.Info().
			Str("tenant_id", in.TenantID).
			Str("instance_id", dto.InstanceID).
			Str("entity_type", in.EntityType).
			Str("entity_id", in.EntityID).
			Msg("workflow started")
	}
	o.publish(ctx, evt)
	return dto, nil
}

// ApproveStep resolves the current step positively, advancing the instance or
// completing it when this was the last step.
func (o *Orchestrator) ApproveStep(ctx context.Context, in ResolveInput) (*StepDTO, error) {
	return o.resolveStep(ctx, in, true)
}

// RejectStep resolves the current step negatively. Rejection terminates the
// whole instance no matter how many steps remain; later steps stay PENDING as
// a historical record.
func (o *Orchestrator) RejectStep(ctx context.Context, in ResolveInput) (*StepDTO, error) {
	return o.resolveStep(ctx, in, false)
}

func (o *Orchestrator) resolveStep(ctx context.Context, in ResolveInput, approve bool) (*StepDTO, error) {
	var dto *StepDTO
	var evt *event.Event

	err := o.uow.WithinTx(ctx, func(r uow.Repos) error {
		// Locate the step to learn its instance, then take the instance lock
		// and re-read the step under it. Everything checked below is stable
		// until commit.
		probe, err := r.Instances.GetStepByStepID(ctx, in.TenantID, in.StepID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowDomain.ErrStepNotFound
			}
			return err
		}
		inst, err := r.Instances.GetByInstanceIDForUpdate(ctx, in.TenantID, probe.InstanceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowDomain.ErrStepNotFound
			}
			return err
		}
		step, err := r.Instances.GetStepByStepID(ctx, in.TenantID, in.StepID)
		if err != nil {
			return err
		}

		if step.Status != workflowDomain.StepPending {
			return workflowDomain.ErrStepAlreadyResolved
		}
		if inst.Status != workflowDomain.InstanceInProgress {
			return workflowDomain.ErrInstanceNotActive
		}
		if step.Order != inst.CurrentStepOrder {
			return workflowDomain.ErrNotCurrentStep
		}

		ok, err := o.resolver.CanResolve(ctx, step, inst, in.ActingUserID, in.ActingRole)
		if err != nil {
			return err
		}
		if !ok {
			return workflowDomain.ErrNotAuthorized
		}

		now := time.Now().UTC()
		if approve {
			step.Status = workflowDomain.StepApproved
		} else {
			step.Status = workflowDomain.StepRejected
		}
		step.ResolverID = &in.ActingUserID
		step.ResolvedAt = &now
		step.Comments = in.Comments
		if err := r.Instances.SaveStep(ctx, step); err != nil {
			return err
		}

		switch {
		case !approve:
			inst.Status = workflowDomain.InstanceRejected
			inst.CompletedAt = &now
			evt = o.lifecycleEvent(event.WorkflowRejected, inst, map[string]any{
				"step_id":     step.StepID,
				"resolver_id": in.ActingUserID,
			})
		case step.Order == inst.MaxOrder():
			inst.Status = workflowDomain.InstanceApproved
			inst.CompletedAt = &now
			evt = o.lifecycleEvent(event.WorkflowApproved, inst, map[string]any{
				"step_id":     step.StepID,
				"resolver_id": in.ActingUserID,
			})
		default:
			next := inst.NextOrder(step.Order)
			inst.CurrentStepOrder = next
			payload := map[string]any{
				"step_id":         step.StepID,
				"resolver_id":     in.ActingUserID,
				"next_step_order": next,
			}
			if ns := inst.CurrentStep(); ns != nil {
				payload["next_step_id"] = ns.StepID
			}
			evt = o.lifecycleEvent(event.WorkflowStepApproved, inst, payload)
		}
		inst.SyncActiveKey()
		if err := r.Instances.SaveInstance(ctx, inst); err != nil {
			return err
		}

		d := stepDTO(step)
		dto = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info().
		Str("tenant_id", in.TenantID).
		Str("step_id", in.StepID).
		Str("resolver_id", in.ActingUserID).
		Bool("approved", approve).
		Msg("workflow step resolved")
	o.publish(ctx, evt)
	return dto, nil
}

// Cancel terminates a non-terminal instance. Outstanding steps stay PENDING
// as a historical record.
func (o *Orchestrator) Cancel(ctx context.Context, tenantID, instanceID, actingUserID string) error {
	var evt *event.Event

	err := o.uow.WithinInstanceTx(ctx, tenantID, instanceID, func(r uow.Repos, inst *workflowDomain.Instance) error {
		if inst.Status.Terminal() {
			return workflowDomain.ErrInvalidCancelState
		}
		now := time.Now().UTC()
		inst.Status = workflowDomain.InstanceCancelled
		inst.CompletedAt = &now
		inst.SyncActiveKey()
		if err := r.Instances.SaveInstance(ctx, inst); err != nil {
			return err
		}
		evt = o.lifecycleEvent(event.WorkflowCancelled, inst, map[string]any{
			"cancelled_by": actingUserID,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workflowDomain.ErrInstanceNotFound
		}
		return err
	}
	o.log.Info().
		Str("tenant_id", tenantID).
		Str("instance_id", instanceID).
		Str("cancelled_by", actingUserID).
		Msg("workflow cancelled")
	o.publish(ctx, evt)
	return nil
}

func (o *Orchestrator) lifecycleEvent(name string, inst *workflowDomain.Instance, payload map[string]any) *event.Event {
	return &event.Event{
		Name:       name,
		TenantID:   inst.TenantID,
		InstanceID: inst.InstanceID,
		EntityType: inst.EntityType,
		EntityID:   inst.EntityID,
		Payload:    payload,
	}
}

func stepDTO(s *workflowDomain.Step) StepDTO {
	return StepDTO{
		StepID:        s.StepID,
		InstanceID:    s.InstanceID,
		Order:         s.Order,
		ApproverType:  string(s.ApproverType),
		ApproverValue: s.ApproverValue,
		Status:        string(s.Status),
		ResolverID:    s.ResolverID,
		ResolvedAt:    s.ResolvedAt,
		Comments:      s.Comments,
	}
}

func instanceDTO(i *workflowDomain.Instance, tpl *TemplateSummary) *InstanceDTO {
	steps := make([]StepDTO, 0, len(i.Steps))
	for idx := range i.Steps {
		steps = append(steps, stepDTO(&i.Steps[idx]))
	}
	sort.Slice(steps, func(a, b int) bool { return steps[a].Order < steps[b].Order })
	currentOrder := i.CurrentStepOrder
	if i.Status != workflowDomain.InstanceInProgress {
		currentOrder = 0 // meaningful only while in progress
	}
	return &InstanceDTO{
		InstanceID:       i.InstanceID,
		TemplateID:       i.TemplateID,
		EntityType:       i.EntityType,
		EntityID:         i.EntityID,
		InitiatorID:      i.InitiatorID,
		Status:           string(i.Status),
		CurrentStepOrder: currentOrder,
		Steps:            steps,
		Template:         tpl,
		CreatedAt:        i.CreatedAt,
		CompletedAt:      i.CompletedAt,
	}
}
