package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	delegationDomain "approvalflow/internal/domain/delegation"
	"approvalflow/internal/domain/uow"
	workflowDomain "approvalflow/internal/domain/workflow"
	"approvalflow/internal/testutil/delegationmock"
	"approvalflow/internal/testutil/eventmock"
	"approvalflow/internal/testutil/uowmock"
	"approvalflow/internal/testutil/workflowmock"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	testTenant = "t-100"
	userAlice  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	userBob    = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	userCarol  = "cccccccccccccccccccccccccccccccc"
	userDave   = "dddddddddddddddddddddddddddddddd"
)

// store emulates the database for orchestrator tests. The mutex plays the
// role of the instance row lock: every "transaction" holds it end to end, so
// two concurrent resolve calls serialize exactly like they would against
// MySQL.
type store struct {
	mu        sync.Mutex
	template  *workflowDomain.Template
	instances map[string]*workflowDomain.Instance
}

func newStore(tpl *workflowDomain.Template) *store {
	return &store{template: tpl, instances: map[string]*workflowDomain.Instance{}}
}

func copyInstance(i *workflowDomain.Instance) *workflowDomain.Instance {
	cp := *i
	cp.Steps = make([]workflowDomain.Step, len(i.Steps))
	copy(cp.Steps, i.Steps)
	return &cp
}

func (s *store) repos() uow.Repos {
	instances := &workflowmock.InstanceRepo{
		CreateFn: func(_ context.Context, i *workflowDomain.Instance) error {
			// emulate the unique active_key index
			if i.ActiveKey != nil {
				for _, other := range s.instances {
					if other.ActiveKey != nil && *other.ActiveKey == *i.ActiveKey {
						return gorm.ErrDuplicatedKey
					}
				}
			}
			s.instances[i.InstanceID] = copyInstance(i)
			return nil
		},
		FindActiveByEntityFn: func(_ context.Context, tenantID, entityType, entityID string) (*workflowDomain.Instance, error) {
			for _, i := range s.instances {
				if i.TenantID == tenantID && i.EntityType == entityType && i.EntityID == entityID && !i.Status.Terminal() {
					return copyInstance(i), nil
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		GetByInstanceIDForUpdateFn: func(_ context.Context, tenantID, instanceID string) (*workflowDomain.Instance, error) {
			i, ok := s.instances[instanceID]
			if !ok || i.TenantID != tenantID {
				return nil, gorm.ErrRecordNotFound
			}
			return copyInstance(i), nil
		},
		GetStepByStepIDFn: func(_ context.Context, tenantID, stepID string) (*workflowDomain.Step, error) {
			for _, i := range s.instances {
				if i.TenantID != tenantID {
					continue
				}
				for idx := range i.Steps {
					if i.Steps[idx].StepID == stepID {
						cp := i.Steps[idx]
						return &cp, nil
					}
				}
			}
			return nil, gorm.ErrRecordNotFound
		},
		SaveInstanceFn: func(_ context.Context, in *workflowDomain.Instance) error {
			i, ok := s.instances[in.InstanceID]
			if !ok {
				return gorm.ErrRecordNotFound
			}
			i.Status = in.Status
			i.ActiveKey = in.ActiveKey
			i.CurrentStepOrder = in.CurrentStepOrder
			i.CompletedAt = in.CompletedAt
			return nil
		},
		SaveStepFn: func(_ context.Context, st *workflowDomain.Step) error {
			i, ok := s.instances[st.InstanceID]
			if !ok {
				return gorm.ErrRecordNotFound
			}
			for idx := range i.Steps {
				if i.Steps[idx].StepID == st.StepID {
					i.Steps[idx] = *st
					return nil
				}
			}
			return gorm.ErrRecordNotFound
		},
	}
	templates := &workflowmock.TemplateRepo{
		FindActiveByEntityTypeFn: func(_ context.Context, tenantID, entityType string) (*workflowDomain.Template, error) {
			if s.template != nil && s.template.TenantID == tenantID && s.template.EntityType == entityType && s.template.Active {
				return s.template, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
	return uow.Repos{Templates: templates, Instances: instances, Delegations: &delegationmock.Repo{}}
}

func (s *store) uow() *uowmock.UoW {
	return &uowmock.UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			return fn(s.repos())
		},
		WithinInstanceTxFn: func(ctx context.Context, tenantID, instanceID string, fn func(uow.Repos, *workflowDomain.Instance) error) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			r := s.repos()
			i, err := r.Instances.GetByInstanceIDForUpdate(ctx, tenantID, instanceID)
			if err != nil {
				return err
			}
			return fn(r, i)
		},
	}
}

func threeStepTemplate() *workflowDomain.Template {
	return &workflowDomain.Template{
		ID:         1,
		TemplateID: "11111111111111111111111111111111",
		TenantID:   testTenant,
		Name:       "leave approval",
		EntityType: "LEAVE_REQUEST",
		Active:     true,
		Steps: []workflowDomain.TemplateStep{
			{Order: 1, ApproverType: workflowDomain.ApproverUser, ApproverValue: userBob},
			{Order: 2, ApproverType: workflowDomain.ApproverRole, ApproverValue: "HR_ADMIN"},
			{Order: 3, ApproverType: workflowDomain.ApproverUser, ApproverValue: userCarol},
		},
	}
}

type fixture struct {
	store       *store
	orc         *Orchestrator
	events      *eventmock.Publisher
	delegations *delegationmock.Repo
}

func newFixture(tpl *workflowDomain.Template) *fixture {
	s := newStore(tpl)
	ev := eventmock.New()
	del := &delegationmock.Repo{}
	resolver := NewResolver(del, nil)
	return &fixture{
		store:       s,
		orc:         NewOrchestrator(s.uow(), resolver, ev, zerolog.Nop()),
		events:      ev,
		delegations: del,
	}
}

func mustStart(t *testing.T, f *fixture, entityID string) *InstanceDTO {
	t.Helper()
	dto, err := f.orc.Start(context.Background(), StartInput{
		TenantID:    testTenant,
		InitiatorID: userAlice,
		EntityType:  "LEAVE_REQUEST",
		EntityID:    entityID,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if dto == nil {
		t.Fatalf("Start returned nil instance with a template configured")
	}
	return dto
}

func stepByOrder(t *testing.T, dto *InstanceDTO, order int) StepDTO {
	t.Helper()
	for _, s := range dto.Steps {
		if s.Order == order {
			return s
		}
	}
	t.Fatalf("no step with order %d in %+v", order, dto.Steps)
	return StepDTO{}
}

func TestStart_NoTemplateIsNotAnError(t *testing.T) {
	f := newFixture(nil)

	dto, err := f.orc.Start(context.Background(), StartInput{
		TenantID:    testTenant,
		InitiatorID: userAlice,
		EntityType:  "EXPENSE",
		EntityID:    "ent-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil instance, got %+v", dto)
	}
	if got := f.events.Names(); len(got) != 0 {
		t.Fatalf("no events expected, got %v", got)
	}
}

func TestStart_SnapshotsTemplateSteps(t *testing.T) {
	f := newFixture(threeStepTemplate())

	dto := mustStart(t, f, "ent-1")

	if dto.Status != string(workflowDomain.InstanceInProgress) {
		t.Errorf("status = %s, want IN_PROGRESS", dto.Status)
	}
	if dto.CurrentStepOrder != 1 {
		t.Errorf("current step order = %d, want 1", dto.CurrentStepOrder)
	}
	if len(dto.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(dto.Steps))
	}
	for _, s := range dto.Steps {
		if s.Status != string(workflowDomain.StepPending) {
			t.Errorf("step %d status = %s, want PENDING", s.Order, s.Status)
		}
	}

	// Editing the template afterwards must not touch the running instance.
	f.store.template.Steps = f.store.template.Steps[:1]
	got, err := f.store.repos().Instances.GetByInstanceIDForUpdate(context.Background(), testTenant, dto.InstanceID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Steps) != 3 {
		t.Errorf("snapshot lost steps after template edit: %d", len(got.Steps))
	}

	if names := f.events.Names(); len(names) != 1 || names[0] != "workflow.started" {
		t.Errorf("events = %v, want [workflow.started]", names)
	}
}

func TestStart_DuplicateActiveWorkflow(t *testing.T) {
	f := newFixture(threeStepTemplate())
	mustStart(t, f, "ent-1")

	_, err := f.orc.Start(context.Background(), StartInput{
		TenantID:    testTenant,
		InitiatorID: userAlice,
		EntityType:  "LEAVE_REQUEST",
		EntityID:    "ent-1",
	})
	if !errors.Is(err, workflowDomain.ErrDuplicateActiveWorkflow) {
		t.Fatalf("want ErrDuplicateActiveWorkflow, got %v", err)
	}

	// But a different entity id is fine.
	mustStart(t, f, "ent-2")
}

// Two starts for the same entity racing past the existence check: under
// REPEATABLE READ both snapshot reads see no active instance, so the unique
// active_key index is the only thing standing between us and two running
// workflows. The mock pins the reads to that stale result to force the
// interleaving deterministically.
func TestStart_ConcurrentStartsYieldOneInstance(t *testing.T) {
	tpl := threeStepTemplate()
	var mu sync.Mutex
	byKey := map[string]*workflowDomain.Instance{}

	instances := &workflowmock.InstanceRepo{
		FindActiveByEntityFn: func(context.Context, string, string, string) (*workflowDomain.Instance, error) {
			return nil, gorm.ErrRecordNotFound
		},
		CreateFn: func(_ context.Context, i *workflowDomain.Instance) error {
			mu.Lock()
			defer mu.Unlock()
			if i.ActiveKey == nil {
				t.Error("new running instance has no active key")
				return nil
			}
			if _, taken := byKey[*i.ActiveKey]; taken {
				return gorm.ErrDuplicatedKey
			}
			byKey[*i.ActiveKey] = copyInstance(i)
			return nil
		},
	}
	templates := &workflowmock.TemplateRepo{
		FindActiveByEntityTypeFn: func(context.Context, string, string) (*workflowDomain.Template, error) {
			return tpl, nil
		},
	}
	u := &uowmock.UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			return fn(uow.Repos{Templates: templates, Instances: instances, Delegations: &delegationmock.Repo{}})
		},
	}
	orc := NewOrchestrator(u, NewResolver(&delegationmock.Repo{}, nil), eventmock.New(), zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = orc.Start(context.Background(), StartInput{
				TenantID:    testTenant,
				InitiatorID: userAlice,
				EntityType:  "LEAVE_REQUEST",
				EntityID:    "ent-1",
			})
		}(n)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, workflowDomain.ErrDuplicateActiveWorkflow):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each (errs=%v)", wins, losses, errs)
	}
	if len(byKey) != 1 {
		t.Fatalf("stored %d running instances for one entity, want 1", len(byKey))
	}
}

func TestStart_AllowedAgainAfterTerminal(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")

	if err := f.orc.Cancel(context.Background(), testTenant, dto.InstanceID, userAlice); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	mustStart(t, f, "ent-1")
}

func TestStart_EmptyTemplate(t *testing.T) {
	tpl := threeStepTemplate()
	tpl.Steps = nil
	f := newFixture(tpl)

	_, err := f.orc.Start(context.Background(), StartInput{
		TenantID:    testTenant,
		InitiatorID: userAlice,
		EntityType:  "LEAVE_REQUEST",
		EntityID:    "ent-1",
	})
	if !errors.Is(err, workflowDomain.ErrEmptyTemplate) {
		t.Fatalf("want ErrEmptyTemplate, got %v", err)
	}
}

func TestApprove_SequentialGating(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")
	ctx := context.Background()

	// Step 3 is not current yet.
	_, err := f.orc.ApproveStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 3).StepID,
		ActingUserID: userCarol,
	})
	if !errors.Is(err, workflowDomain.ErrNotCurrentStep) {
		t.Fatalf("want ErrNotCurrentStep, got %v", err)
	}

	// Approve step 1 as its named user.
	got, err := f.orc.ApproveStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 1).StepID,
		ActingUserID: userBob,
	})
	if err != nil {
		t.Fatalf("ApproveStep: %v", err)
	}
	if got.Status != string(workflowDomain.StepApproved) {
		t.Errorf("step status = %s, want APPROVED", got.Status)
	}
	if got.ResolverID == nil || *got.ResolverID != userBob {
		t.Errorf("resolver = %v, want %s", got.ResolverID, userBob)
	}

	inst := f.store.instances[dto.InstanceID]
	if inst.CurrentStepOrder != 2 {
		t.Errorf("current step order = %d, want 2", inst.CurrentStepOrder)
	}
	for _, s := range inst.Steps {
		if s.Order > 1 && s.Status != workflowDomain.StepPending {
			t.Errorf("step %d should still be PENDING, got %s", s.Order, s.Status)
		}
	}

	// A stale retry on step 1 must fail, not double-apply.
	_, err = f.orc.ApproveStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 1).StepID,
		ActingUserID: userBob,
	})
	if !errors.Is(err, workflowDomain.ErrStepAlreadyResolved) {
		t.Fatalf("want ErrStepAlreadyResolved, got %v", err)
	}

	if names := f.events.Names(); len(names) != 2 || names[1] != "workflow.step.approved" {
		t.Errorf("events = %v, want [... workflow.step.approved]", names)
	}
}

func TestApprove_LastStepCompletesInstance(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")
	ctx := context.Background()

	steps := []struct {
		order int
		user  string
		role  string
	}{
		{1, userBob, ""},
		{2, userDave, "HR_ADMIN"},
		{3, userCarol, ""},
	}
	for _, s := range steps {
		if _, err := f.orc.ApproveStep(ctx, ResolveInput{
			TenantID: testTenant, StepID: stepByOrder(t, dto, s.order).StepID,
			ActingUserID: s.user, ActingRole: s.role,
		}); err != nil {
			t.Fatalf("approve step %d: %v", s.order, err)
		}
	}

	inst := f.store.instances[dto.InstanceID]
	if inst.Status != workflowDomain.InstanceApproved {
		t.Errorf("instance status = %s, want APPROVED", inst.Status)
	}
	if inst.CompletedAt == nil {
		t.Errorf("completedAt not set")
	}

	want := []string{"workflow.started", "workflow.step.approved", "workflow.step.approved", "workflow.approved"}
	got := f.events.Names()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestReject_IsTerminalRegardlessOfPosition(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")
	ctx := context.Background()

	if _, err := f.orc.ApproveStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 1).StepID, ActingUserID: userBob,
	}); err != nil {
		t.Fatalf("approve step 1: %v", err)
	}

	comment := "budget exceeded"
	got, err := f.orc.RejectStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 2).StepID,
		ActingUserID: userDave, ActingRole: "HR_ADMIN", Comments: &comment,
	})
	if err != nil {
		t.Fatalf("RejectStep: %v", err)
	}
	if got.Status != string(workflowDomain.StepRejected) {
		t.Errorf("step status = %s, want REJECTED", got.Status)
	}
	if got.Comments == nil || *got.Comments != comment {
		t.Errorf("comments = %v, want %q", got.Comments, comment)
	}

	inst := f.store.instances[dto.InstanceID]
	if inst.Status != workflowDomain.InstanceRejected {
		t.Errorf("instance status = %s, want REJECTED", inst.Status)
	}
	if inst.CompletedAt == nil {
		t.Errorf("completedAt not set")
	}
	// Step 3 stays PENDING forever as a historical record.
	for _, s := range inst.Steps {
		if s.Order == 3 && s.Status != workflowDomain.StepPending {
			t.Errorf("step 3 = %s, want PENDING", s.Status)
		}
	}

	// Any further resolution attempt hits the terminal instance.
	_, err = f.orc.ApproveStep(ctx, ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 3).StepID, ActingUserID: userCarol,
	})
	if !errors.Is(err, workflowDomain.ErrInstanceNotActive) {
		t.Fatalf("want ErrInstanceNotActive, got %v", err)
	}
}

func TestApprove_NotAuthorized(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")

	_, err := f.orc.ApproveStep(context.Background(), ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 1).StepID,
		ActingUserID: userCarol, // step 1 belongs to Bob
	})
	if !errors.Is(err, workflowDomain.ErrNotAuthorized) {
		t.Fatalf("want ErrNotAuthorized, got %v", err)
	}
	inst := f.store.instances[dto.InstanceID]
	if inst.CurrentStepOrder != 1 {
		t.Errorf("instance advanced on unauthorized approval")
	}
}

func TestApprove_DelegateActsForDelegator(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")

	now := time.Now().UTC()
	f.delegations.FindActiveTowardFn = func(_ context.Context, tenantID, userID string, asOf time.Time) ([]delegationDomain.Delegation, error) {
		if userID != userDave {
			return nil, nil
		}
		return []delegationDomain.Delegation{{
			TenantID:    tenantID,
			DelegatorID: userBob,
			DelegateID:  userDave,
			StartDate:   now.Add(-time.Hour),
			EndDate:     now.Add(time.Hour),
		}}, nil
	}

	got, err := f.orc.ApproveStep(context.Background(), ResolveInput{
		TenantID: testTenant, StepID: stepByOrder(t, dto, 1).StepID,
		ActingUserID: userDave, // delegate of Bob
	})
	if err != nil {
		t.Fatalf("ApproveStep via delegation: %v", err)
	}
	if got.ResolverID == nil || *got.ResolverID != userDave {
		t.Errorf("resolver = %v, want the delegate %s", got.ResolverID, userDave)
	}
}

func TestApprove_StepNotFound(t *testing.T) {
	f := newFixture(threeStepTemplate())
	mustStart(t, f, "ent-1")

	_, err := f.orc.ApproveStep(context.Background(), ResolveInput{
		TenantID: testTenant, StepID: "ffffffffffffffffffffffffffffffff",
		ActingUserID: userBob,
	})
	if !errors.Is(err, workflowDomain.ErrStepNotFound) {
		t.Fatalf("want ErrStepNotFound, got %v", err)
	}
}

func TestApprove_WrongTenant(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")

	_, err := f.orc.ApproveStep(context.Background(), ResolveInput{
		TenantID: "t-999", StepID: stepByOrder(t, dto, 1).StepID,
		ActingUserID: userBob,
	})
	if !errors.Is(err, workflowDomain.ErrStepNotFound) {
		t.Fatalf("want ErrStepNotFound for foreign tenant, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")
	ctx := context.Background()

	if err := f.orc.Cancel(ctx, testTenant, dto.InstanceID, userAlice); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	inst := f.store.instances[dto.InstanceID]
	if inst.Status != workflowDomain.InstanceCancelled {
		t.Errorf("status = %s, want CANCELLED", inst.Status)
	}
	if inst.CompletedAt == nil {
		t.Errorf("completedAt not set")
	}
	for _, s := range inst.Steps {
		if s.Status != workflowDomain.StepPending {
			t.Errorf("cancel must not touch steps, step %d = %s", s.Order, s.Status)
		}
	}

	if err := f.orc.Cancel(ctx, testTenant, dto.InstanceID, userAlice); !errors.Is(err, workflowDomain.ErrInvalidCancelState) {
		t.Fatalf("want ErrInvalidCancelState, got %v", err)
	}
	if err := f.orc.Cancel(ctx, testTenant, "ffffffffffffffffffffffffffffffff", userAlice); !errors.Is(err, workflowDomain.ErrInstanceNotFound) {
		t.Fatalf("want ErrInstanceNotFound, got %v", err)
	}

	if names := f.events.Names(); names[len(names)-1] != "workflow.cancelled" {
		t.Errorf("last event = %s, want workflow.cancelled", names[len(names)-1])
	}
}

func TestConcurrentApprove_ExactlyOneWins(t *testing.T) {
	f := newFixture(threeStepTemplate())
	dto := mustStart(t, f, "ent-1")
	stepID := stepByOrder(t, dto, 1).StepID

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.orc.ApproveStep(context.Background(), ResolveInput{
				TenantID: testTenant, StepID: stepID, ActingUserID: userBob,
			})
		}(n)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, workflowDomain.ErrStepAlreadyResolved), errors.Is(err, workflowDomain.ErrNotCurrentStep):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each (errs=%v)", wins, losses, errs)
	}

	inst := f.store.instances[dto.InstanceID]
	if inst.CurrentStepOrder != 2 {
		t.Errorf("current step order = %d, want 2 after a single successful approval", inst.CurrentStepOrder)
	}
}
